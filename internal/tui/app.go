// Package tui implements the interactive review screen for pending suggestions.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/skedule/internal/store"
	"github.com/christopherklint97/skedule/internal/suggest"
)

const actionTimeout = 60 * time.Second

// Reviewer is the part of the suggestion service the review screen drives.
type Reviewer interface {
	ListPending(ctx context.Context, userID, taskID string) ([]store.SlotView, error)
	Approve(ctx context.Context, userID, slotID string, addToCalendar bool) (*suggest.ApproveResult, error)
	Reject(ctx context.Context, userID, slotID string) error
	RejectAll(ctx context.Context, req suggest.RejectAllRequest) (*suggest.RejectAllResult, error)
}

type viewState int

const (
	loadingView viewState = iota
	listView
	workingView
	confirmRejectAllView
)

// Result summarises what happened during a review session.
type Result struct {
	Approved       int
	Rejected       int
	CompletedTasks []string
}

type loadedMsg struct {
	items []store.SlotView
	err   error
}

type approvedMsg struct {
	item   store.SlotView
	result *suggest.ApproveResult
	err    error
}

type rejectedMsg struct {
	count int
	err   error
}

type App struct {
	state   viewState
	list    suggestionsModel
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	reviewer      Reviewer
	userID        string
	taskID        string
	addToCalendar bool

	working string
	status  string
	isError bool
	result  Result
}

// NewApp builds the review screen. An empty taskID reviews every task.
func NewApp(reviewer Reviewer, userID, taskID string, loc *time.Location, addToCalendar bool) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:         loadingView,
		list:          newSuggestionsModel(loc),
		spinner:       s,
		help:          help.New(),
		keys:          defaultKeyMap(),
		reviewer:      reviewer,
		userID:        userID,
		taskID:        taskID,
		addToCalendar: addToCalendar,
		working:       "Loading suggestions...",
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.load())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.help.Width = msg.Width
		return a, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case loadedMsg:
		return a.handleLoaded(msg)
	case approvedMsg:
		return a.handleApproved(msg)
	case rejectedMsg:
		return a.handleRejected(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	switch a.state {
	case listView:
		return a.updateList(msg)
	case confirmRejectAllView:
		return a.updateConfirm(msg)
	}
	return a, nil
}

func (a *App) View() string {
	header := headerStyle.Render("skedule: review suggestions")

	switch a.state {
	case loadingView, workingView:
		return header + "\n" + a.spinner.View() + " " + a.working
	case confirmRejectAllView:
		return header + "\n" +
			confirmPrompt.Render(fmt.Sprintf("Reject all %d pending suggestions?", len(a.list.items))) + "\n" +
			footerStyle.Render("[y]es • [n]o")
	}

	calendar := toggleOff.Render("off")
	if a.addToCalendar {
		calendar = toggleOn.Render("on")
	}
	sub := mutedStyle.Render(fmt.Sprintf("%d pending • add to calendar: %s", len(a.list.items), calendar))

	body := header + "\n" + sub + "\n" + listFrame.Render(a.list.View())
	if a.status != "" {
		style := okStatus
		if a.isError {
			style = failStatus
		}
		body += "\n" + style.Render(a.status)
	}
	return body + "\n" + footerStyle.Render(a.help.View(a.keys))
}

// GetResult returns the session summary once the program has exited.
func (a *App) GetResult() Result {
	return a.result
}

func (a *App) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if a.list.filtering {
		if ok && (keyMsg.Type == tea.KeyEnter || keyMsg.Type == tea.KeyEsc) {
			a.list.stopFilter(keyMsg.Type == tea.KeyEsc)
			return a, nil
		}
		return a, a.list.updateFilter(msg)
	}
	if !ok {
		return a, nil
	}

	switch {
	case key.Matches(keyMsg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(keyMsg, a.keys.Up):
		a.list.up()
	case key.Matches(keyMsg, a.keys.Down):
		a.list.down()
	case key.Matches(keyMsg, a.keys.Filter):
		return a, a.list.startFilter()
	case key.Matches(keyMsg, a.keys.Calendar):
		a.addToCalendar = !a.addToCalendar
	case key.Matches(keyMsg, a.keys.Refresh):
		return a.startWork("Loading suggestions...", a.load())
	case key.Matches(keyMsg, a.keys.Approve):
		if item, ok := a.list.selected(); ok {
			return a.startWork("Approving...", a.approve(item))
		}
	case key.Matches(keyMsg, a.keys.Reject):
		if item, ok := a.list.selected(); ok {
			return a.startWork("Rejecting...", a.reject(item))
		}
	case key.Matches(keyMsg, a.keys.RejectAll):
		if len(a.list.items) > 0 {
			a.state = confirmRejectAllView
		}
	}
	return a, nil
}

func (a *App) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch {
	case key.Matches(keyMsg, a.keys.Confirm):
		return a.startWork("Rejecting all...", a.rejectAll())
	case key.Matches(keyMsg, a.keys.Cancel):
		a.state = listView
	}
	return a, nil
}

func (a *App) startWork(label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	a.state = workingView
	a.working = label
	a.status = ""
	a.isError = false
	return a, tea.Batch(a.spinner.Tick, cmd)
}

func (a *App) setStatus(msg string, isError bool) {
	a.status = msg
	a.isError = isError
}

func (a *App) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	a.state = listView
	if msg.err != nil {
		a.setStatus("Error: "+msg.err.Error(), true)
		return a, nil
	}
	a.list.setItems(msg.items)
	return a, nil
}

func (a *App) handleApproved(msg approvedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err != nil && msg.result != nil:
		// The approval is stored; only the calendar write failed.
		a.result.Approved++
		a.setStatus("Approved, but the calendar event failed: "+msg.err.Error(), true)
	case errors.Is(msg.err, suggest.ErrAlreadyProcessed):
		a.setStatus("Already handled elsewhere; list refreshed.", true)
	case msg.err != nil:
		a.setStatus("Error: "+msg.err.Error(), true)
	default:
		a.result.Approved++
		status := "Approved " + msg.item.TaskName
		if msg.result.AddedToCalendar {
			status += " and added to calendar"
		}
		if msg.result.TaskComplete {
			a.result.CompletedTasks = append(a.result.CompletedTasks, msg.item.TaskName)
			status += fmt.Sprintf(" (task fully scheduled, %d min)", msg.result.ApprovedMinutes)
		}
		a.setStatus(status, false)
	}
	return a, a.load()
}

func (a *App) handleRejected(msg rejectedMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, suggest.ErrAlreadyProcessed):
		a.setStatus("Already handled elsewhere; list refreshed.", true)
	case msg.err != nil:
		a.setStatus("Error: "+msg.err.Error(), true)
	default:
		a.result.Rejected += msg.count
		a.setStatus(fmt.Sprintf("Rejected %d suggestion(s)", msg.count), false)
	}
	return a, a.load()
}

func (a *App) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		items, err := a.reviewer.ListPending(ctx, a.userID, a.taskID)
		return loadedMsg{items: items, err: err}
	}
}

func (a *App) approve(item store.SlotView) tea.Cmd {
	addToCalendar := a.addToCalendar
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		res, err := a.reviewer.Approve(ctx, a.userID, item.ID, addToCalendar)
		return approvedMsg{item: item, result: res, err: err}
	}
}

func (a *App) reject(item store.SlotView) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		if err := a.reviewer.Reject(ctx, a.userID, item.ID); err != nil {
			return rejectedMsg{err: err}
		}
		return rejectedMsg{count: 1}
	}
}

func (a *App) rejectAll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		res, err := a.reviewer.RejectAll(ctx, suggest.RejectAllRequest{UserID: a.userID, TaskID: a.taskID})
		if err != nil {
			return rejectedMsg{err: err}
		}
		return rejectedMsg{count: res.Rejected}
	}
}
