// Package planner asks a language model for a free-form time-block plan.
// Plans are advisory and never touch suggestion state.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/interval"
	"github.com/christopherklint97/skedule/internal/model"
)

// MaxWindow is the longest range a plan covers; longer ranges are truncated.
const MaxWindow = 7 * 24 * time.Hour

// ErrNotConfigured means no API key was provided.
var ErrNotConfigured = errors.New("planner API key not configured")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Request describes the work to plan. Zero Start means now and zero End
// means Start plus MaxWindow.
type Request struct {
	UserID      string
	Task        string
	Preferences map[string]string
	Start       time.Time
	End         time.Time
}

// Result holds the parsed plan, or Raw when the model's answer was not
// valid JSON, along with the free blocks that were offered.
type Result struct {
	Plan       *Plan
	Raw        string
	FreeBlocks []interval.Interval
}

type Planner struct {
	client openai.Client
	model  string
	busy   calendar.BusySource
	logger *slog.Logger
	now    func() time.Time
}

// New builds a planner. busy may be nil, in which case the whole window is free.
func New(cfg Config, busy calendar.BusySource, logger *slog.Logger, opts ...option.RequestOption) (*Planner, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(60 * time.Second),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &Planner{
		client: openai.NewClient(reqOpts...),
		model:  cfg.Model,
		busy:   busy,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Window resolves the request range, capping it at MaxWindow.
func (p *Planner) Window(req Request) (interval.Interval, error) {
	start := req.Start
	if start.IsZero() {
		start = p.now()
	}
	end := req.End
	if end.IsZero() || end.After(start.Add(MaxWindow)) {
		end = start.Add(MaxWindow)
	}
	if !end.After(start) {
		return interval.Interval{}, errors.New("end must be after start")
	}
	return interval.New(start, end), nil
}

// Plan gathers the user's free time and asks the model to lay out the task.
func (p *Planner) Plan(ctx context.Context, req Request, profile model.Profile) (*Result, error) {
	if req.Task == "" {
		return nil, errors.New("task description is required")
	}
	window, err := p.Window(req)
	if err != nil {
		return nil, err
	}

	var busy []interval.Interval
	if p.busy != nil {
		busy, err = p.busy.FetchBusy(ctx, req.UserID, window.Start, window.End)
		if err != nil {
			return nil, fmt.Errorf("fetching busy time: %w", err)
		}
	}
	free := interval.Free(window, busy)

	userPrompt, err := buildUserPrompt(req, profile, free)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("requesting plan",
		"model", p.model,
		"free_blocks", len(free),
		"user_prompt_len", len(userPrompt),
	)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "time_block_plan",
					Schema: planSchema(),
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("requesting plan: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("planner returned no choices")
	}
	content := resp.Choices[0].Message.Content

	p.logger.Debug("plan received",
		"elapsed", time.Since(start),
		"content_len", len(content),
		"content", truncateStr(content, 2000),
	)

	result := &Result{FreeBlocks: free}
	var plan Plan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		p.logger.Warn("plan is not valid JSON, returning raw content", "error", err)
		result.Raw = content
		return result, nil
	}
	result.Plan = &plan
	return result, nil
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
