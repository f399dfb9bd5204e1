package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/skedule/internal/model"
	"github.com/christopherklint97/skedule/internal/store"
	"github.com/christopherklint97/skedule/internal/suggest"
)

var base = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type fakeReviewer struct {
	mu         sync.Mutex
	items      []store.SlotView
	approved   []string
	calendar   []bool
	rejected   []string
	rejectAll  []suggest.RejectAllRequest
	approveErr error
	approveRes *suggest.ApproveResult
	rejectErr  error
}

func (f *fakeReviewer) ListPending(ctx context.Context, userID, taskID string) ([]store.SlotView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.SlotView(nil), f.items...), nil
}

func (f *fakeReviewer) remove(id string) {
	for i, it := range f.items {
		if it.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return
		}
	}
}

func (f *fakeReviewer) Approve(ctx context.Context, userID, slotID string, addToCalendar bool) (*suggest.ApproveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, slotID)
	f.calendar = append(f.calendar, addToCalendar)
	if f.approveErr != nil && f.approveRes == nil {
		return nil, f.approveErr
	}
	f.remove(slotID)
	res := f.approveRes
	if res == nil {
		res = &suggest.ApproveResult{AddedToCalendar: addToCalendar}
	}
	return res, f.approveErr
}

func (f *fakeReviewer) Reject(ctx context.Context, userID, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectErr != nil {
		return f.rejectErr
	}
	f.rejected = append(f.rejected, slotID)
	f.remove(slotID)
	return nil
}

func (f *fakeReviewer) RejectAll(ctx context.Context, req suggest.RejectAllRequest) (*suggest.RejectAllResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectAll = append(f.rejectAll, req)
	n := len(f.items)
	f.items = nil
	return &suggest.RejectAllResult{Rejected: n}, nil
}

func view(id, task string, offset time.Duration) store.SlotView {
	return store.SlotView{
		Slot: model.Slot{
			ID:     id,
			UserID: "u1",
			TaskID: "t-" + task,
			Start:  base.Add(offset),
			End:    base.Add(offset + 50*time.Minute),
			Status: model.StatusPending,
		},
		TaskName: task,
	}
}

// drive executes cmd and feeds the app's own result messages back into it.
// Spinner ticks and quit are dropped so the loop terminates.
func drive(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drive(t, a, c)
		}
	case loadedMsg, approvedMsg, rejectedMsg:
		_, next := a.Update(msg)
		drive(t, a, next)
	}
}

func press(t *testing.T, a *App, keys string) {
	t.Helper()
	for _, r := range keys {
		_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		drive(t, a, cmd)
	}
}

func newTestApp(t *testing.T, f *fakeReviewer, addToCalendar bool) *App {
	t.Helper()
	a := NewApp(f, "u1", "", time.UTC, addToCalendar)
	a.list.filter.Cursor.SetMode(cursor.CursorStatic)
	drive(t, a, a.Init())
	require.Equal(t, listView, a.state)
	return a
}

func TestApp_LoadsPending(t *testing.T) {
	f := &fakeReviewer{items: []store.SlotView{view("s1", "report", 0), view("s2", "slides", time.Hour)}}
	a := newTestApp(t, f, false)

	assert.Len(t, a.list.items, 2)
	out := a.View()
	assert.Contains(t, out, "report")
	assert.Contains(t, out, "09:00-09:50")
	assert.Contains(t, out, "2 pending")
}

func TestApp_ApproveSelected(t *testing.T) {
	f := &fakeReviewer{items: []store.SlotView{view("s1", "report", 0), view("s2", "slides", time.Hour)}}
	a := newTestApp(t, f, true)

	press(t, a, "ja")

	assert.Equal(t, []string{"s2"}, f.approved)
	assert.Equal(t, []bool{true}, f.calendar)
	assert.Equal(t, 1, a.GetResult().Approved)
	assert.Len(t, a.list.items, 1)
	assert.False(t, a.isError)
	assert.Contains(t, a.status, "added to calendar")
}

func TestApp_ToggleCalendar(t *testing.T) {
	f := &fakeReviewer{items: []store.SlotView{view("s1", "report", 0)}}
	a := newTestApp(t, f, true)

	press(t, a, "ca")
	assert.Equal(t, []bool{false}, f.calendar)
}

func TestApp_ApproveCompletesTask(t *testing.T) {
	f := &fakeReviewer{
		items:      []store.SlotView{view("s1", "report", 0)},
		approveRes: &suggest.ApproveResult{TaskComplete: true, ApprovedMinutes: 60},
	}
	a := newTestApp(t, f, false)

	press(t, a, "a")
	assert.Equal(t, []string{"report"}, a.GetResult().CompletedTasks)
	assert.Contains(t, a.status, "fully scheduled")
}

func TestApp_ApproveCalendarFailureStillCounts(t *testing.T) {
	f := &fakeReviewer{
		items:      []store.SlotView{view("s1", "report", 0)},
		approveRes: &suggest.ApproveResult{},
		approveErr: suggest.ErrProviderFailure,
	}
	a := newTestApp(t, f, true)

	press(t, a, "a")
	assert.Equal(t, 1, a.GetResult().Approved)
	assert.True(t, a.isError)
	assert.Contains(t, a.status, "calendar event failed")
}

func TestApp_ApproveAlreadyProcessed(t *testing.T) {
	f := &fakeReviewer{
		items:      []store.SlotView{view("s1", "report", 0)},
		approveErr: suggest.ErrAlreadyProcessed,
	}
	a := newTestApp(t, f, false)

	press(t, a, "a")
	assert.Equal(t, 0, a.GetResult().Approved)
	assert.True(t, a.isError)
	assert.Contains(t, a.status, "Already handled")
}

func TestApp_Reject(t *testing.T) {
	f := &fakeReviewer{items: []store.SlotView{view("s1", "report", 0), view("s2", "slides", time.Hour)}}
	a := newTestApp(t, f, false)

	press(t, a, "r")
	assert.Equal(t, []string{"s1"}, f.rejected)
	assert.Equal(t, 1, a.GetResult().Rejected)
	assert.Len(t, a.list.items, 1)
}

func TestApp_RejectError(t *testing.T) {
	f := &fakeReviewer{items: []store.SlotView{view("s1", "report", 0)}, rejectErr: errors.New("db locked")}
	a := newTestApp(t, f, false)

	press(t, a, "r")
	assert.True(t, a.isError)
	assert.Contains(t, a.status, "db locked")
	assert.Equal(t, 0, a.GetResult().Rejected)
}

func TestApp_RejectAllNeedsConfirmation(t *testing.T) {
	f := &fakeReviewer{items: []store.SlotView{view("s1", "report", 0), view("s2", "slides", time.Hour)}}
	a := newTestApp(t, f, false)

	press(t, a, "A")
	assert.Equal(t, confirmRejectAllView, a.state)
	assert.Contains(t, a.View(), "Reject all 2")

	press(t, a, "n")
	assert.Equal(t, listView, a.state)
	assert.Empty(t, f.rejectAll)

	press(t, a, "Ay")
	require.Len(t, f.rejectAll, 1)
	assert.Equal(t, "u1", f.rejectAll[0].UserID)
	assert.False(t, f.rejectAll[0].Resuggest)
	assert.Equal(t, 2, a.GetResult().Rejected)
	assert.Empty(t, a.list.items)
	assert.Contains(t, a.View(), "No pending suggestions")
}

func TestApp_Filter(t *testing.T) {
	f := &fakeReviewer{items: []store.SlotView{view("s1", "report", 0), view("s2", "slides", time.Hour)}}
	a := newTestApp(t, f, false)

	press(t, a, "/sli")
	assert.True(t, a.list.filtering)
	assert.Len(t, a.list.filtered, 1)

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(t, a, cmd)
	assert.False(t, a.list.filtering)

	press(t, a, "a")
	assert.Equal(t, []string{"s2"}, f.approved)

	press(t, a, "/")
	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	drive(t, a, cmd)
	assert.Empty(t, a.list.filter.Value())
}

func TestApp_Quit(t *testing.T) {
	a := newTestApp(t, &fakeReviewer{}, false)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
