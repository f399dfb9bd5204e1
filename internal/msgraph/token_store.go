package msgraph

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/christopherklint97/skedule/internal/calendar"
)

// TokenStore caches Graph tokens per user in the state table.
type TokenStore struct {
	state calendar.StateStore
}

func NewTokenStore(state calendar.StateStore) *TokenStore {
	return &TokenStore{state: state}
}

func tokenKey(userID string) string {
	return "msgraph_tokens:" + userID
}

// Load returns nil, nil if the user has no cached token.
func (s *TokenStore) Load(userID string) (*oauth2.Token, error) {
	raw, err := s.state.GetState(tokenKey(userID))
	if err != nil {
		return nil, fmt.Errorf("reading tokens: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("parsing tokens: %w", err)
	}
	return &tok, nil
}

func (s *TokenStore) Save(userID string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshaling tokens: %w", err)
	}
	if err := s.state.SetState(tokenKey(userID), string(data)); err != nil {
		return fmt.Errorf("writing tokens: %w", err)
	}
	return nil
}

func (s *TokenStore) Delete(userID string) error {
	return s.state.DeleteState(tokenKey(userID))
}
