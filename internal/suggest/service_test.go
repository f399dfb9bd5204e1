package suggest

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/interval"
	"github.com/christopherklint97/skedule/internal/model"
	"github.com/christopherklint97/skedule/internal/store"
)

var day1 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day1.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type fakeBusy struct {
	mu    sync.Mutex
	busy  []interval.Interval
	err   error
	calls []interval.Interval
}

func (f *fakeBusy) FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, interval.New(start, end))
	if f.err != nil {
		return nil, f.err
	}
	return f.busy, nil
}

func (f *fakeBusy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeEvents struct {
	created []calendar.NewEvent
	err     error
}

func (f *fakeEvents) CreateEvent(ctx context.Context, userID string, ev calendar.NewEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, ev)
	return "evt-" + ev.Start.Format("1504"), nil
}

type fakeNotifier struct {
	completed []string
}

func (f *fakeNotifier) TaskCompleted(task model.Task, progress model.Progress) {
	f.completed = append(f.completed, task.ID)
}

type fixture struct {
	svc      *Service
	db       *store.DB
	busy     *fakeBusy
	events   *fakeEvents
	notifier *fakeNotifier
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		busy:     &fakeBusy{},
		events:   &fakeEvents{},
		notifier: &fakeNotifier{},
	}
	f.svc = New(db, Options{
		Busy:     f.busy,
		Events:   f.events,
		Notifier: f.notifier,
		Now:      func() time.Time { return day1 },
	})
	return f
}

func (f *fixture) task(t *testing.T, userID string, pref model.Preference, estimate *int) *model.Task {
	t.Helper()
	task := &model.Task{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             "write report",
		Description:      "quarterly numbers",
		Difficulty:       model.DifficultyMedium,
		Preference:       &pref,
		EstimatedMinutes: estimate,
		CreatedAt:        day1,
	}
	task.SetFocusLevel(model.FocusMedium)
	require.NoError(t, f.db.InsertTask(context.Background(), task))
	return task
}

func (f *fixture) slot(t *testing.T, task *model.Task, start time.Time, minutes int, status model.Status) model.Slot {
	t.Helper()
	s, err := model.NewSlot(uuid.NewString(), task.UserID, task.ID,
		interval.New(start, start.Add(time.Duration(minutes)*time.Minute)))
	require.NoError(t, err)
	s.Status = status
	require.NoError(t, f.db.InsertSlot(context.Background(), &s))
	return s
}

func (f *fixture) count(t *testing.T, filter store.SlotFilter) int {
	t.Helper()
	n, err := f.db.CountSlots(context.Background(), filter)
	require.NoError(t, err)
	return n
}

func ptr(v int) *int { return &v }

func dayRequest(task *model.Task, count int) GenerateRequest {
	return GenerateRequest{UserID: task.UserID, TaskID: task.ID, Start: day1, End: day1.Add(24 * time.Hour), Count: count}
}

func TestGenerate_MiddayAroundBusyHour(t *testing.T) {
	f := setup(t)
	f.busy.busy = []interval.Interval{interval.New(at(13, 0), at(14, 0))}
	task := f.task(t, "alice", model.PreferMidday, nil)

	got, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Start.Equal(at(11, 0)))
	assert.True(t, got[1].Start.Equal(at(11, 50)))
	assert.True(t, got[2].Start.Equal(at(14, 0)))
	busy := interval.New(at(13, 0), at(14, 0))
	for _, s := range got {
		assert.Equal(t, model.StatusPending, s.Status)
		assert.Equal(t, 50*time.Minute, s.End.Sub(s.Start))
		assert.False(t, s.Interval().Overlaps(busy))
		assert.False(t, s.Start.Before(at(11, 0)))
		assert.False(t, s.End.After(at(20, 0)))
	}

	// One midday sub-window in a one-day range means one provider call.
	require.Equal(t, 1, f.busy.callCount())
	assert.True(t, f.busy.calls[0].Start.Equal(at(11, 0)))
	assert.True(t, f.busy.calls[0].End.Equal(at(20, 0)))

	stored, err := f.svc.List(context.Background(), "alice", task.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "write report", stored[0].TaskName)
}

func TestGenerate_LocalTimezone(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.UpsertProfile(context.Background(), &model.Profile{UserID: "alice", Timezone: "Europe/Stockholm"}))
	task := f.task(t, "alice", model.PreferMorning, nil)

	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, loc)

	got, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: "alice", TaskID: task.ID, Start: start, End: start.Add(24 * time.Hour), Count: 3,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 5, got[0].Start.In(loc).Hour(), "morning starts at 05:00 local")
	for _, s := range got {
		assert.Less(t, s.End.Add(-time.Nanosecond).In(loc).Hour(), 11)
	}
}

func TestGenerate_QuotaExhausted(t *testing.T) {
	f := setup(t)
	other := f.task(t, "alice", model.PreferMidday, nil)
	for i := 0; i < 15; i++ {
		f.slot(t, other, day1.AddDate(0, 0, 5).Add(time.Duration(i)*time.Hour), 50, model.StatusPending)
	}
	task := f.task(t, "alice", model.PreferMidday, nil)

	_, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	var qerr *QuotaExceededError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, 15, qerr.Cap)
	assert.Equal(t, 15, qerr.Count)
	assert.Zero(t, f.busy.callCount(), "provider is not called when the quota is exhausted")
}

func TestGenerate_CappedByRemainingQuota(t *testing.T) {
	f := setup(t)
	other := f.task(t, "alice", model.PreferMidday, nil)
	for i := 0; i < 12; i++ {
		f.slot(t, other, day1.AddDate(0, 0, 5).Add(time.Duration(i)*time.Hour), 50, model.StatusPending)
	}
	task := f.task(t, "alice", model.PreferMidday, nil)

	got, err := f.svc.Generate(context.Background(), dayRequest(task, 5))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 15, f.count(t, store.SlotFilter{UserID: "alice", Statuses: []model.Status{model.StatusPending}}))
}

func TestGenerate_QuotaIsPerUser(t *testing.T) {
	f := setup(t)
	bob := f.task(t, "bob", model.PreferMidday, nil)
	for i := 0; i < 15; i++ {
		f.slot(t, bob, day1.AddDate(0, 0, 5).Add(time.Duration(i)*time.Hour), 50, model.StatusPending)
	}
	task := f.task(t, "alice", model.PreferMidday, nil)

	got, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestGenerate_CountClamped(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	req := dayRequest(task, 1)
	req.End = day1.Add(72 * time.Hour)

	got, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, got, 3, "raised to the minimum")

	req.Count = 50
	got, err = f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	// The task's own three pending count against the quota until replaced.
	assert.Len(t, got, 12)
}

func TestGenerate_EstimateDrivesCount(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, ptr(300))

	got, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)
	assert.Len(t, got, 6, "ceil(300/50)")

	small := f.task(t, "bob", model.PreferMidday, ptr(60))
	got, err = f.svc.Generate(context.Background(), dayRequest(small, 10))
	require.NoError(t, err)
	assert.Len(t, got, 3, "two blocks needed, raised to the minimum")
}

func TestGenerate_EstimateSubtractsApproved(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, ptr(400))
	f.slot(t, task, day1.AddDate(0, 0, -1).Add(12*time.Hour), 200, model.StatusApproved)

	got, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)
	assert.Len(t, got, 4, "ceil(200/50)")
}

func TestGenerate_ReplacesOwnPending(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)

	first, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)

	assert.Equal(t, 3, f.count(t, pendingOf(task)))
	// The old pending blocks are replaced, not treated as busy.
	assert.True(t, first[0].Start.Equal(second[0].Start))
	assert.NotEqual(t, first[0].ID, second[0].ID)
}

func TestGenerate_ReturnedSlotsMatchStored(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	busy := interval.New(at(12, 30), at(13, 0).Add(300*time.Millisecond))
	f.busy.busy = []interval.Interval{busy}

	start := at(12, 7).Add(42*time.Second + 500*time.Millisecond)
	created, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: "alice", TaskID: task.ID, Start: start, End: day1.Add(24 * time.Hour), Count: 3,
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	stored, err := f.svc.List(context.Background(), "alice", task.ID)
	require.NoError(t, err)
	byID := make(map[string]model.Slot, len(stored))
	for _, v := range stored {
		byID[v.ID] = v.Slot
	}
	for _, s := range created {
		got, ok := byID[s.ID]
		require.True(t, ok, "slot %s not stored", s.ID)
		assert.True(t, s.Start.Equal(got.Start), "start %s stored as %s", s.Start, got.Start)
		assert.True(t, s.End.Equal(got.End), "end %s stored as %s", s.End, got.End)
		assert.False(t, got.Interval().Overlaps(busy))
		assert.False(t, got.Start.Before(at(12, 8)))
	}
}

func TestCeilTime(t *testing.T) {
	assert.True(t, at(12, 8).Equal(ceilTime(at(12, 7).Add(time.Millisecond), time.Minute)))
	assert.True(t, at(12, 7).Equal(ceilTime(at(12, 7), time.Minute)))
	assert.True(t, at(13, 0).Add(time.Second).Equal(ceilTime(at(13, 0).Add(300*time.Millisecond), time.Second)))
}

func TestGenerate_AvoidsOtherSuggestions(t *testing.T) {
	f := setup(t)
	a := f.task(t, "alice", model.PreferMidday, nil)
	b := f.task(t, "alice", model.PreferMidday, nil)
	approved := f.slot(t, a, at(16, 0), 50, model.StatusApproved)

	first, err := f.svc.Generate(context.Background(), dayRequest(a, 3))
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), dayRequest(b, 3))
	require.NoError(t, err)

	taken := []interval.Interval{approved.Interval()}
	for _, s := range first {
		taken = append(taken, s.Interval())
	}
	for _, s := range second {
		for _, iv := range taken {
			assert.False(t, s.Interval().Overlaps(iv), "%s overlaps %s", s.Interval().Key(), iv.Key())
		}
	}
}

func TestGenerate_CompleteTaskClearsPending(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, ptr(60))
	f.slot(t, task, day1.AddDate(0, 0, -1).Add(12*time.Hour), 60, model.StatusApproved)
	f.slot(t, task, at(12, 0), 50, model.StatusPending)

	got, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.count(t, pendingOf(task)))
	assert.Zero(t, f.busy.callCount())
}

func TestGenerate_InvalidRange(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)

	cases := map[string]GenerateRequest{
		"end before start": {Start: at(12, 0), End: at(11, 0)},
		"empty":            {Start: at(12, 0), End: at(12, 0)},
		"too long":         {Start: day1, End: day1.AddDate(0, 0, 8)},
		"too far back":     {Start: day1.AddDate(0, 0, -3), End: day1},
		"missing":          {},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			req.UserID = "alice"
			req.TaskID = task.ID
			_, err := f.svc.Generate(context.Background(), req)
			assert.ErrorIs(t, err, ErrRangeInvalid)
		})
	}
	assert.Zero(t, f.busy.callCount())
}

func TestGenerate_TaskNotFound(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: "bob", TaskID: task.ID, Start: day1, End: day1.Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerate_ProviderFailureKeepsState(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	f.slot(t, task, at(12, 0), 50, model.StatusPending)
	f.busy.err = calendar.ErrNotConnected

	_, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.ErrorIs(t, err, calendar.ErrNotConnected)
	assert.Equal(t, 1, f.count(t, pendingOf(task)))
}

func TestGenerate_NightFetchesEachSubWindow(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferNight, nil)

	got, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
	require.NoError(t, err)
	require.NotEmpty(t, got)
	// [00:00, 05:00) and [20:00, 24:00) on the one day.
	assert.Equal(t, 2, f.busy.callCount())
}

func TestGenerate_ConcurrentSameTask(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Generate(context.Background(), dayRequest(task, 3))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, f.count(t, pendingOf(task)))
}

func TestApprove_Twice(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusPending)

	res, err := f.svc.Approve(context.Background(), "alice", s.ID, false)
	require.NoError(t, err)
	assert.False(t, res.AddedToCalendar)
	assert.Equal(t, 50, res.ApprovedMinutes)
	assert.False(t, res.TaskComplete)

	_, err = f.svc.Approve(context.Background(), "alice", s.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	assert.ErrorIs(t, f.svc.Reject(context.Background(), "alice", s.ID), ErrAlreadyProcessed)
}

func TestApprove_RejectedSlot(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusRejected)

	_, err := f.svc.Approve(context.Background(), "alice", s.ID, true)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Empty(t, f.events.created)
	assert.Equal(t, 1, f.count(t, store.SlotFilter{UserID: "alice", Statuses: []model.Status{model.StatusRejected}}))
}

func TestApprove_NotOwned(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusPending)

	_, err := f.svc.Approve(context.Background(), "bob", s.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Approve(context.Background(), "alice", "missing", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApprove_Completion(t *testing.T) {
	tests := []struct {
		minutes  int
		complete bool
	}{
		{60, true},
		{59, false},
	}
	for _, tt := range tests {
		f := setup(t)
		task := f.task(t, "alice", model.PreferMidday, ptr(60))
		s := f.slot(t, task, at(12, 0), tt.minutes, model.StatusPending)
		other := f.slot(t, task, at(15, 0), 50, model.StatusPending)

		res, err := f.svc.Approve(context.Background(), "alice", s.ID, false)
		require.NoError(t, err)
		assert.Equal(t, tt.complete, res.TaskComplete, "%d minutes", tt.minutes)
		assert.Equal(t, tt.minutes, res.ApprovedMinutes)
		require.NotNil(t, res.EstimatedMinutes)
		assert.Equal(t, 60, *res.EstimatedMinutes)

		status, err := f.svc.TaskStatus(context.Background(), "alice", task.ID)
		require.NoError(t, err)
		assert.Equal(t, tt.complete, status.Complete())

		_, err = f.db.GetSlot(context.Background(), "alice", other.ID)
		if tt.complete {
			assert.ErrorIs(t, err, store.ErrNotFound, "remaining pending are cleared")
			assert.Equal(t, []string{task.ID}, f.notifier.completed)
		} else {
			assert.NoError(t, err)
			assert.Empty(t, f.notifier.completed)
		}
	}
}

func TestApprove_NoEstimateNeverCompletes(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 240, model.StatusPending)

	res, err := f.svc.Approve(context.Background(), "alice", s.ID, false)
	require.NoError(t, err)
	assert.False(t, res.TaskComplete)
	assert.Nil(t, res.EstimatedMinutes)
}

func TestApprove_CreatesCalendarEvent(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusPending)

	res, err := f.svc.Approve(context.Background(), "alice", s.ID, true)
	require.NoError(t, err)
	assert.True(t, res.AddedToCalendar)
	assert.Equal(t, "evt-1200", res.CalendarEventID)

	require.Len(t, f.events.created, 1)
	assert.Equal(t, "write report", f.events.created[0].Title)
	assert.Equal(t, "quarterly numbers", f.events.created[0].Description)
	assert.True(t, f.events.created[0].Start.Equal(at(12, 0)))

	got, err := f.db.GetSlot(context.Background(), "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1200", got.CalendarEventID)
}

func TestApprove_EventFailureKeepsApproval(t *testing.T) {
	f := setup(t)
	f.events.err = calendar.ErrTokenInvalid
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusPending)

	res, err := f.svc.Approve(context.Background(), "alice", s.ID, true)
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.ErrorIs(t, err, calendar.ErrTokenInvalid)
	require.NotNil(t, res)
	assert.False(t, res.AddedToCalendar)

	got, err := f.db.GetSlot(context.Background(), "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestApprove_WithoutEventCreator(t *testing.T) {
	f := setup(t)
	svc := New(f.db, Options{Now: func() time.Time { return day1 }})
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusPending)

	res, err := svc.Approve(context.Background(), "alice", s.ID, true)
	require.NoError(t, err)
	assert.False(t, res.AddedToCalendar)
}

func TestApprove_ConcurrentOnlyOneWins(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusPending)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, lost int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Approve(context.Background(), "alice", s.ID, false)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrAlreadyProcessed) {
				lost++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 5, lost)
}

func TestReject(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusPending)

	assert.ErrorIs(t, f.svc.Reject(context.Background(), "bob", s.ID), ErrNotFound)
	require.NoError(t, f.svc.Reject(context.Background(), "alice", s.ID))
	assert.ErrorIs(t, f.svc.Reject(context.Background(), "alice", s.ID), ErrAlreadyProcessed)

	_, err := f.svc.Approve(context.Background(), "alice", s.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestRejectAll_WithoutResuggest(t *testing.T) {
	f := setup(t)
	a := f.task(t, "alice", model.PreferMidday, nil)
	b := f.task(t, "alice", model.PreferMidday, nil)
	f.slot(t, a, at(11, 0), 50, model.StatusPending)
	f.slot(t, a, at(12, 0), 50, model.StatusApproved)
	f.slot(t, b, at(15, 0), 50, model.StatusPending)

	res, err := f.svc.RejectAll(context.Background(), RejectAllRequest{UserID: "alice", TaskID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)
	assert.Zero(t, res.Resuggested)
	assert.Equal(t, 1, f.count(t, pendingOf(b)))

	res, err = f.svc.RejectAll(context.Background(), RejectAllRequest{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, f.count(t, store.SlotFilter{UserID: "alice", Statuses: []model.Status{model.StatusApproved}}))
}

func TestRejectAll_ResuggestIncompleteTask(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, ptr(200))
	f.slot(t, task, at(11, 0), 50, model.StatusPending)
	f.slot(t, task, at(12, 0), 50, model.StatusPending)

	res, err := f.svc.RejectAll(context.Background(), RejectAllRequest{
		UserID: "alice", TaskID: task.ID, Start: day1, End: day1.Add(24 * time.Hour), Resuggest: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rejected)
	assert.Equal(t, 4, res.Resuggested)
	assert.Equal(t, 4, f.count(t, pendingOf(task)))
}

func TestRejectAll_ResuggestCompleteTask(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, ptr(60))
	f.slot(t, task, day1.AddDate(0, 0, -1).Add(12*time.Hour), 60, model.StatusApproved)
	f.slot(t, task, at(12, 0), 50, model.StatusPending)

	res, err := f.svc.RejectAll(context.Background(), RejectAllRequest{
		UserID: "alice", TaskID: task.ID, Resuggest: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)
	assert.Zero(t, res.Resuggested)
	assert.Zero(t, f.count(t, pendingOf(task)))
}

func TestRejectAll_ResuggestCountsApproved(t *testing.T) {
	f := setup(t)
	done := f.task(t, "alice", model.PreferMidday, nil)
	for i := 0; i < 13; i++ {
		f.slot(t, done, day1.AddDate(0, 0, -1).Add(time.Duration(i)*time.Hour), 50, model.StatusApproved)
	}
	task := f.task(t, "alice", model.PreferMidday, nil)

	res, err := f.svc.RejectAll(context.Background(), RejectAllRequest{
		UserID: "alice", TaskID: task.ID, Start: day1, End: day1.Add(24 * time.Hour), Count: 5, Resuggest: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Resuggested)
}

func TestRejectAll_UnknownTask(t *testing.T) {
	f := setup(t)
	_, err := f.svc.RejectAll(context.Background(), RejectAllRequest{UserID: "alice", TaskID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportApproved(t *testing.T) {
	f := setup(t)
	task := f.task(t, "alice", model.PreferMidday, nil)
	s := f.slot(t, task, at(12, 0), 50, model.StatusApproved)
	f.slot(t, task, at(15, 0), 50, model.StatusPending)

	var buf bytes.Buffer
	n, err := f.svc.ExportApproved(context.Background(), &buf, "alice", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "UID:"+s.ID+"@skedule")
	assert.Contains(t, buf.String(), "SUMMARY:write report")
}

func TestDesiredCount(t *testing.T) {
	svc := New(nil, Options{})
	task := &model.Task{FocusMinutes: 50}

	assert.Equal(t, 5, svc.desiredCount(task, model.Progress{}, 0), "default")
	assert.Equal(t, 3, svc.desiredCount(task, model.Progress{}, 2))
	assert.Equal(t, 20, svc.desiredCount(task, model.Progress{}, 40))

	task.EstimatedMinutes = ptr(1200)
	assert.Equal(t, 20, svc.desiredCount(task, model.Progress{EstimatedMinutes: ptr(1200)}, 3))
	assert.Equal(t, 4, svc.desiredCount(task, model.Progress{EstimatedMinutes: ptr(1200), ApprovedMinutes: 1010}, 3))
}
