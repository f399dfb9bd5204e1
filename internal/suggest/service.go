package suggest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/model"
	"github.com/christopherklint97/skedule/internal/store"
)

// Store is the persistence the service needs; *store.DB implements it.
type Store interface {
	store.Repo
	InTx(ctx context.Context, fn func(store.Repo) error) error
}

// Notifier is told when an approval completes a task.
type Notifier interface {
	TaskCompleted(task model.Task, progress model.Progress)
}

// Config bounds generation.
type Config struct {
	// Quota caps a user's outstanding suggestions.
	Quota int
	// MinCount and MaxCount clamp the number of slots produced per run.
	MinCount     int
	MaxCount     int
	DefaultCount int
	// MaxWindow is the longest query range accepted.
	MaxWindow time.Duration
	// MaxLookback is how far before now a range may start.
	MaxLookback time.Duration
}

func DefaultConfig() Config {
	return Config{
		Quota:        15,
		MinCount:     3,
		MaxCount:     20,
		DefaultCount: 5,
		MaxWindow:    7 * 24 * time.Hour,
		MaxLookback:  24 * time.Hour,
	}
}

// Options carries the optional collaborators of a Service.
type Options struct {
	// Busy supplies provider busy time. Nil means the calendar is empty.
	Busy calendar.BusySource
	// Events receives approved blocks. Nil disables calendar writes.
	Events   calendar.EventCreator
	Notifier Notifier
	Config   Config
	Logger   *slog.Logger
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Service proposes time blocks for tasks and manages their lifecycle.
type Service struct {
	store    Store
	busy     calendar.BusySource
	events   calendar.EventCreator
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	locks    keyedMutex
}

func New(st Store, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Config == (Config{}) {
		opts.Config = DefaultConfig()
	}
	return &Service{
		store:    st,
		busy:     opts.Busy,
		events:   opts.Events,
		notifier: opts.Notifier,
		cfg:      opts.Config,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Config returns the limits the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// ApproveResult reports the outcome of an approval.
type ApproveResult struct {
	AddedToCalendar  bool
	CalendarEventID  string
	TaskComplete     bool
	ApprovedMinutes  int
	EstimatedMinutes *int
}

// List returns the user's suggestions in every status, ordered by start.
// An empty taskID lists all tasks.
func (s *Service) List(ctx context.Context, userID, taskID string) ([]store.SlotView, error) {
	return s.store.ListSlotViews(ctx, store.SlotFilter{UserID: userID, TaskID: taskID})
}

// ListPending returns only pending suggestions.
func (s *Service) ListPending(ctx context.Context, userID, taskID string) ([]store.SlotView, error) {
	return s.store.ListSlotViews(ctx, store.SlotFilter{
		UserID:   userID,
		TaskID:   taskID,
		Statuses: []model.Status{model.StatusPending},
	})
}

// Approve moves a pending suggestion to approved. When addToCalendar is set
// and an event creator is configured the block is written to the calendar
// after the approval is committed; a failure there returns the result
// together with an ErrProviderFailure and the approval stands.
func (s *Service) Approve(ctx context.Context, userID, slotID string, addToCalendar bool) (*ApproveResult, error) {
	slot, err := s.store.GetSlot(ctx, userID, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status.Terminal() {
		return nil, fmt.Errorf("suggestion %s is %s: %w", slotID, slot.Status, ErrAlreadyProcessed)
	}

	unlock := s.locks.Lock(taskKey(userID, slot.TaskID))
	defer unlock()

	task, err := s.store.GetTask(ctx, userID, slot.TaskID)
	if err != nil {
		return nil, err
	}

	before, err := s.progress(ctx, s.store, task)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, userID, slotID, model.StatusApproved); err != nil {
		return nil, err
	}

	progress, err := s.progress(ctx, s.store, task)
	if err != nil {
		return nil, err
	}

	result := &ApproveResult{
		TaskComplete:     progress.Complete(),
		ApprovedMinutes:  progress.ApprovedMinutes,
		EstimatedMinutes: progress.EstimatedMinutes,
	}

	if progress.Complete() {
		n, err := s.store.DeleteSlots(ctx, store.SlotFilter{
			UserID:   userID,
			TaskID:   task.ID,
			Statuses: []model.Status{model.StatusPending},
		})
		if err != nil {
			return nil, fmt.Errorf("clearing pending suggestions: %w", err)
		}
		s.logger.Info("task complete", "user", userID, "task", task.ID, "cleared", n)
		if !before.Complete() && s.notifier != nil {
			s.notifier.TaskCompleted(*task, progress)
		}
	}

	if addToCalendar {
		if s.events == nil {
			s.logger.Info("no calendar configured for events, skipping", "slot", slotID)
			return result, nil
		}
		eventID, err := s.events.CreateEvent(ctx, userID, calendar.NewEvent{
			Title:       task.Name,
			Description: task.Description,
			Start:       slot.Start,
			End:         slot.End,
		})
		if err != nil {
			return result, fmt.Errorf("%w: creating event: %w", ErrProviderFailure, err)
		}
		if err := s.store.SetSlotEventID(ctx, slotID, eventID); err != nil {
			s.logger.Warn("failed to record calendar event id", "slot", slotID, "error", err)
		}
		result.AddedToCalendar = true
		result.CalendarEventID = eventID
	}

	return result, nil
}

// Reject moves a pending suggestion to rejected.
func (s *Service) Reject(ctx context.Context, userID, slotID string) error {
	slot, err := s.store.GetSlot(ctx, userID, slotID)
	if err != nil {
		return err
	}
	if slot.Status.Terminal() {
		return fmt.Errorf("suggestion %s is %s: %w", slotID, slot.Status, ErrAlreadyProcessed)
	}
	return s.transition(ctx, userID, slotID, model.StatusRejected)
}

// transition applies a pending -> next change as a compare-and-set so two
// concurrent calls cannot both succeed.
func (s *Service) transition(ctx context.Context, userID, slotID string, next model.Status) error {
	if !model.StatusPending.CanTransition(next) {
		return fmt.Errorf("invalid transition to %s", next)
	}
	n, err := s.store.SetSlotStatus(ctx, store.SlotFilter{
		UserID:   userID,
		IDs:      []string{slotID},
		Statuses: []model.Status{model.StatusPending},
	}, next)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("suggestion %s: %w", slotID, ErrAlreadyProcessed)
	}
	s.logger.Debug("suggestion updated", "user", userID, "slot", slotID, "status", next)
	return nil
}

// TaskStatus reports approved effort against the task's estimate.
func (s *Service) TaskStatus(ctx context.Context, userID, taskID string) (*model.Progress, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	p, err := s.progress(ctx, s.store, task)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) progress(ctx context.Context, r store.Repo, task *model.Task) (model.Progress, error) {
	approved, err := r.ListSlots(ctx, store.SlotFilter{
		UserID:   task.UserID,
		TaskID:   task.ID,
		Statuses: []model.Status{model.StatusApproved},
	})
	if err != nil {
		return model.Progress{}, fmt.Errorf("summing approved minutes: %w", err)
	}
	p := model.Progress{EstimatedMinutes: task.EstimatedMinutes}
	for _, sl := range approved {
		p.ApprovedMinutes += sl.Minutes()
	}
	return p, nil
}
