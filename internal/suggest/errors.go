package suggest

import (
	"errors"
	"fmt"

	"github.com/christopherklint97/skedule/internal/store"
)

var (
	// ErrNotFound means the task or suggestion does not exist or belongs to
	// another user. It is the store's sentinel so either may be matched.
	ErrNotFound = store.ErrNotFound
	// ErrAlreadyProcessed means the suggestion is no longer pending.
	ErrAlreadyProcessed = errors.New("suggestion already processed")
	ErrQuotaExceeded    = errors.New("suggestion quota exceeded")
	ErrRangeInvalid     = errors.New("invalid time range")
	// ErrProviderFailure wraps busy-time and event-creation failures.
	ErrProviderFailure = errors.New("calendar provider failure")
)

// QuotaExceededError reports the cap and how many outstanding suggestions
// were counted against it.
type QuotaExceededError struct {
	Cap   int
	Count int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("suggestion quota exceeded: %d of %d outstanding, approve or reject some first", e.Count, e.Cap)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
