package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	User          UserConfig     `toml:"user"`
	Store         StoreConfig    `toml:"store"`
	Suggest       SuggestConfig  `toml:"suggest"`
	Calendar      CalendarConfig `toml:"calendar"`
	Planner       PlannerConfig  `toml:"planner"`
	Notifications NotifyConfig   `toml:"notifications"`
}

// UserConfig identifies the local user. The CLI acts on behalf of a single user.
type UserConfig struct {
	ID          string `toml:"id"`
	DisplayName string `toml:"display_name"`
	Timezone    string `toml:"timezone"`
}

type StoreConfig struct {
	Path string `toml:"path"` // empty means ~/.config/skedule/skedule.db
}

type SuggestConfig struct {
	Quota            int `toml:"quota"`
	MinCount         int `toml:"min_count"`
	MaxCount         int `toml:"max_count"`
	DefaultCount     int `toml:"default_count"`
	MaxWindowDays    int `toml:"max_window_days"`
	MaxLookbackHours int `toml:"max_lookback_hours"`
}

type CalendarConfig struct {
	// Sources lists the busy providers to merge: "google", "graph", "ics".
	Sources []string `toml:"sources"`
	// EventTarget is where approved blocks are written: "google", "graph" or "".
	EventTarget     string       `toml:"event_target"`
	CacheTTLSeconds int          `toml:"cache_ttl_seconds"`
	Google          GoogleConfig `toml:"google"`
	Graph           GraphConfig  `toml:"graph"`
	ICS             ICSConfig    `toml:"ics"`
}

type GoogleConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	CalendarID      string `toml:"calendar_id"`
	RedirectURL     string `toml:"redirect_url"`
}

type GraphConfig struct {
	ClientID string `toml:"client_id"`
	TenantID string `toml:"tenant_id"`
}

type ICSConfig struct {
	Source string `toml:"source"` // ICS URL or file path
}

type PlannerConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		User: UserConfig{
			ID:       "local",
			Timezone: "UTC",
		},
		Suggest: SuggestConfig{
			Quota:            15,
			MinCount:         3,
			MaxCount:         20,
			DefaultCount:     5,
			MaxWindowDays:    7,
			MaxLookbackHours: 24,
		},
		Calendar: CalendarConfig{
			CacheTTLSeconds: 120,
			Google: GoogleConfig{
				CalendarID:  "primary",
				RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
			},
		},
		Planner: PlannerConfig{
			Model: "gpt-4o-mini",
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
	}
}

// CacheTTL returns the busy cache lifetime; zero disables caching.
func (c CalendarConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "skedule"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKEDULE_USER"); v != "" {
		cfg.User.ID = v
	}
	if v := os.Getenv("SKEDULE_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.Calendar.Google.CredentialsFile = v
	}
	if v := os.Getenv("MSGRAPH_CLIENT_ID"); v != "" {
		cfg.Calendar.Graph.ClientID = v
	}
	if v := os.Getenv("MSGRAPH_TENANT_ID"); v != "" {
		cfg.Calendar.Graph.TenantID = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Planner.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Planner.Model = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// SaveUser persists the [user] section using a read-modify-write approach
// to preserve other settings.
func SaveUser(u UserConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	return saveUserFile(path, u)
}

func saveUserFile(path string, u UserConfig) error {
	cfg := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	user, ok := cfg["user"].(map[string]any)
	if !ok {
		user = make(map[string]any)
	}
	if u.ID != "" {
		user["id"] = u.ID
	}
	if u.DisplayName != "" {
		user["display_name"] = u.DisplayName
	}
	if u.Timezone != "" {
		user["timezone"] = u.Timezone
	}
	cfg["user"] = user

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

// WriteDefault writes the default config to path unless a file already
// exists there. It reports whether it wrote one.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking config file: %w", err)
	}

	data, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return false, fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("writing default config: %w", err)
	}
	return true, nil
}
