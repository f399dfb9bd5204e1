package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/christopherklint97/skedule/internal/interval"
	"github.com/christopherklint97/skedule/internal/model"
	"github.com/christopherklint97/skedule/internal/slots"
	"github.com/christopherklint97/skedule/internal/store"
)

// maxBusyFetches bounds concurrent provider calls per generation.
const maxBusyFetches = 4

// GenerateRequest asks for new suggestions for one task in [Start, End).
type GenerateRequest struct {
	UserID string
	TaskID string
	Start  time.Time
	End    time.Time
	// Count is used when the task has no estimate; zero means the default.
	Count int
}

// RejectAllRequest rejects pending suggestions and optionally regenerates.
// An empty TaskID covers all of the user's tasks. Start, End and Count are
// used for regeneration; a zero range means from now over the maximum window.
type RejectAllRequest struct {
	UserID    string
	TaskID    string
	Start     time.Time
	End       time.Time
	Count     int
	Resuggest bool
}

type RejectAllResult struct {
	Rejected    int
	Resuggested int
	// Skipped holds the tasks whose regeneration failed, keyed by task id.
	Skipped map[string]error
}

// quotaScope selects which statuses count against the quota.
type quotaScope int

const (
	countPending quotaScope = iota
	countPendingAndApproved
)

func (q quotaScope) statuses() []model.Status {
	if q == countPendingAndApproved {
		return []model.Status{model.StatusPending, model.StatusApproved}
	}
	return []model.Status{model.StatusPending}
}

// Generate replaces the task's pending suggestions with a fresh ranked set.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) ([]model.Slot, error) {
	if err := s.checkRange(req.Start, req.End); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(taskKey(req.UserID, req.TaskID))
	defer unlock()

	return s.generate(ctx, req, countPending)
}

// RejectAll rejects pending suggestions and, when asked, regenerates for
// every task that is not yet complete. Regeneration counts approved
// suggestions against the quota as well as pending ones.
func (s *Service) RejectAll(ctx context.Context, req RejectAllRequest) (*RejectAllResult, error) {
	if req.Resuggest {
		if req.Start.IsZero() && req.End.IsZero() {
			req.Start = s.now()
			req.End = req.Start.Add(s.cfg.MaxWindow)
		}
		if err := s.checkRange(req.Start, req.End); err != nil {
			return nil, err
		}
	}

	var taskIDs []string
	if req.TaskID != "" {
		if _, err := s.store.GetTask(ctx, req.UserID, req.TaskID); err != nil {
			return nil, err
		}
		taskIDs = []string{req.TaskID}
	} else {
		tasks, err := s.store.ListTasks(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			taskIDs = append(taskIDs, t.ID)
		}
	}

	n, err := s.store.SetSlotStatus(ctx, store.SlotFilter{
		UserID:   req.UserID,
		TaskID:   req.TaskID,
		Statuses: []model.Status{model.StatusPending},
	}, model.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("rejecting suggestions: %w", err)
	}
	result := &RejectAllResult{Rejected: int(n)}
	s.logger.Info("suggestions rejected", "user", req.UserID, "task", req.TaskID, "count", n)

	if !req.Resuggest {
		return result, nil
	}

	for _, taskID := range taskIDs {
		created, err := s.resuggest(ctx, req, taskID)
		if errors.Is(err, ErrQuotaExceeded) {
			s.logger.Info("quota reached, stopping regeneration", "user", req.UserID)
			break
		}
		if err != nil {
			if result.Skipped == nil {
				result.Skipped = make(map[string]error)
			}
			result.Skipped[taskID] = err
			s.logger.Warn("regeneration failed", "task", taskID, "error", err)
			continue
		}
		result.Resuggested += len(created)
	}
	return result, nil
}

func (s *Service) resuggest(ctx context.Context, req RejectAllRequest, taskID string) ([]model.Slot, error) {
	unlock := s.locks.Lock(taskKey(req.UserID, taskID))
	defer unlock()

	return s.generate(ctx, GenerateRequest{
		UserID: req.UserID,
		TaskID: taskID,
		Start:  req.Start,
		End:    req.End,
		Count:  req.Count,
	}, countPendingAndApproved)
}

func (s *Service) checkRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrRangeInvalid)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end must be after start", ErrRangeInvalid)
	}
	if s.cfg.MaxWindow > 0 && end.Sub(start) > s.cfg.MaxWindow {
		return fmt.Errorf("%w: range longer than %s", ErrRangeInvalid, s.cfg.MaxWindow)
	}
	if s.cfg.MaxLookback > 0 && start.Before(s.now().Add(-s.cfg.MaxLookback)) {
		return fmt.Errorf("%w: start more than %s in the past", ErrRangeInvalid, s.cfg.MaxLookback)
	}
	return nil
}

// generate runs one generation with the caller holding the task lock.
func (s *Service) generate(ctx context.Context, req GenerateRequest, scope quotaScope) ([]model.Slot, error) {
	task, err := s.store.GetTask(ctx, req.UserID, req.TaskID)
	if err != nil {
		return nil, err
	}

	// Quota first so an exhausted user never reaches the provider.
	remaining, err := s.remainingQuota(ctx, s.store, req.UserID, scope)
	if err != nil {
		return nil, err
	}

	progress, err := s.progress(ctx, s.store, task)
	if err != nil {
		return nil, err
	}
	if progress.Complete() {
		if _, err := s.store.DeleteSlots(ctx, pendingOf(task)); err != nil {
			return nil, fmt.Errorf("clearing pending suggestions: %w", err)
		}
		s.logger.Debug("task already complete, nothing to suggest", "task", task.ID)
		return []model.Slot{}, nil
	}

	limit := s.desiredCount(task, progress, req.Count)
	if limit > remaining {
		limit = remaining
	}

	profile, err := s.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	loc := profile.Location()
	// The store keeps whole seconds; start on a whole minute so returned
	// slots read back unchanged.
	rng := interval.New(ceilTime(req.Start, time.Minute), req.End)
	window := slots.WindowFor(task.EffectivePreference())

	busy, err := s.assembleBusy(ctx, task, rng, window, loc)
	if err != nil {
		return nil, err
	}

	planned := slots.Plan(slots.Request{
		Range:    rng,
		Duration: task.BlockDuration(),
		Window:   window,
		Location: loc,
		Busy:     busy,
		Limit:    limit,
	})

	created, err := s.replacePending(ctx, task, planned, scope)
	if err != nil {
		return nil, err
	}

	s.logger.Info("suggestions generated",
		"user", req.UserID, "task", task.ID, "requested", limit, "created", len(created))
	return created, nil
}

// desiredCount derives how many blocks to propose before the quota cap.
func (s *Service) desiredCount(task *model.Task, progress model.Progress, requested int) int {
	n := requested
	if task.EstimatedMinutes != nil {
		per := int(task.BlockDuration() / time.Minute)
		rem := progress.RemainingMinutes()
		n = (rem + per - 1) / per
	} else if n <= 0 {
		n = s.cfg.DefaultCount
	}
	if n < s.cfg.MinCount {
		n = s.cfg.MinCount
	}
	if n > s.cfg.MaxCount {
		n = s.cfg.MaxCount
	}
	return n
}

func (s *Service) remainingQuota(ctx context.Context, r store.Repo, userID string, scope quotaScope) (int, error) {
	count, err := r.CountSlots(ctx, store.SlotFilter{UserID: userID, Statuses: scope.statuses()})
	if err != nil {
		return 0, fmt.Errorf("counting outstanding suggestions: %w", err)
	}
	if count >= s.cfg.Quota {
		return 0, &QuotaExceededError{Cap: s.cfg.Quota, Count: count}
	}
	return s.cfg.Quota - count, nil
}

// assembleBusy fetches provider busy time once per preference sub-window and
// adds the user's pending and approved suggestions in the range. The task's
// own pending suggestions are left out because they are about to be replaced.
func (s *Service) assembleBusy(ctx context.Context, task *model.Task, rng interval.Interval, window slots.Window, loc *time.Location) ([]interval.Interval, error) {
	var (
		mu   sync.Mutex
		busy []interval.Interval
	)

	if s.busy != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxBusyFetches)
		for _, sub := range window.SubWindows(rng, loc) {
			g.Go(func() error {
				ivs, err := s.busy.FetchBusy(gctx, task.UserID, sub.Start, sub.End)
				if err != nil {
					return err
				}
				mu.Lock()
				for _, iv := range ivs {
					busy = append(busy, interval.New(iv.Start.Truncate(time.Second), ceilTime(iv.End, time.Second)))
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("%w: fetching busy time: %w", ErrProviderFailure, err)
		}
	}

	existing, err := s.store.ListSlots(ctx, store.SlotFilter{
		UserID:   task.UserID,
		Statuses: []model.Status{model.StatusPending, model.StatusApproved},
		From:     rng.Start,
		To:       rng.End,
	})
	if err != nil {
		return nil, err
	}
	for _, sl := range existing {
		if sl.TaskID == task.ID && sl.Status == model.StatusPending {
			continue
		}
		busy = append(busy, sl.Interval())
	}

	return interval.Merge(busy), nil
}

// replacePending deletes the task's pending suggestions and inserts the new
// ones in one transaction, re-checking the quota inside it.
func (s *Service) replacePending(ctx context.Context, task *model.Task, planned []slots.Candidate, scope quotaScope) ([]model.Slot, error) {
	created := []model.Slot{}
	err := s.store.InTx(ctx, func(r store.Repo) error {
		remaining, err := s.remainingQuota(ctx, r, task.UserID, scope)
		if err != nil {
			return err
		}
		if _, err := r.DeleteSlots(ctx, pendingOf(task)); err != nil {
			return fmt.Errorf("clearing pending suggestions: %w", err)
		}

		now := s.now()
		seen := make(map[string]bool)
		for _, c := range planned {
			if len(created) >= remaining {
				break
			}
			key := c.Key()
			if seen[key] {
				continue
			}
			seen[key] = true

			slot, err := model.NewSlot(uuid.NewString(), task.UserID, task.ID, c.Interval)
			if err != nil {
				return err
			}
			slot.CreatedAt = now
			if err := r.InsertSlot(ctx, &slot); err != nil {
				return err
			}
			created = append(created, slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func pendingOf(task *model.Task) store.SlotFilter {
	return store.SlotFilter{
		UserID:   task.UserID,
		TaskID:   task.ID,
		Statuses: []model.Status{model.StatusPending},
	}
}

// ceilTime rounds t up to a multiple of d.
func ceilTime(t time.Time, d time.Duration) time.Time {
	if r := t.Truncate(d); r.Before(t) {
		return r.Add(d)
	}
	return t
}
