package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/skedule/internal/store"
)

const listVisible = 15

// suggestionsModel is the scrollable, filterable list of pending blocks.
type suggestionsModel struct {
	items     []store.SlotView
	filtered  []int // indices into items
	cursor    int
	filter    textinput.Model
	filtering bool
	loc       *time.Location
}

func newSuggestionsModel(loc *time.Location) suggestionsModel {
	ti := textinput.New()
	ti.Placeholder = "Filter by task..."
	ti.Prompt = "/ "
	if loc == nil {
		loc = time.UTC
	}
	return suggestionsModel{filter: ti, loc: loc}
}

func (m *suggestionsModel) setItems(items []store.SlotView) {
	m.items = items
	m.applyFilter()
}

func (m *suggestionsModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.filtered = m.filtered[:0]
	for i, it := range m.items {
		if query == "" || strings.Contains(strings.ToLower(it.TaskName), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m suggestionsModel) selected() (store.SlotView, bool) {
	if len(m.filtered) == 0 {
		return store.SlotView{}, false
	}
	return m.items[m.filtered[m.cursor]], true
}

func (m *suggestionsModel) up() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *suggestionsModel) down() {
	if m.cursor < len(m.filtered)-1 {
		m.cursor++
	}
}

func (m *suggestionsModel) startFilter() tea.Cmd {
	m.filtering = true
	return m.filter.Focus()
}

// stopFilter leaves filter mode; reset also drops the query.
func (m *suggestionsModel) stopFilter(reset bool) {
	m.filtering = false
	m.filter.Blur()
	if reset {
		m.filter.SetValue("")
		m.applyFilter()
	}
}

func (m *suggestionsModel) updateFilter(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return cmd
}

func (m suggestionsModel) View() string {
	var sb strings.Builder

	if m.filtering || m.filter.Value() != "" {
		sb.WriteString(m.filter.View())
		sb.WriteString("\n\n")
	}

	if len(m.filtered) == 0 {
		if len(m.items) == 0 {
			sb.WriteString(mutedStyle.Render("No pending suggestions."))
		} else {
			sb.WriteString(mutedStyle.Render("No suggestions match the filter."))
		}
		return sb.String()
	}

	start := 0
	if m.cursor >= listVisible {
		start = m.cursor - listVisible + 1
	}
	end := min(start+listVisible, len(m.filtered))

	for i := start; i < end; i++ {
		it := m.items[m.filtered[i]]
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		line := prefix + formatRow(it, m.loc)
		if i == m.cursor {
			line = cursorRow.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(m.filtered) > listVisible {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %d of %d", m.cursor+1, len(m.filtered))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatRow(v store.SlotView, loc *time.Location) string {
	start := v.Start.In(loc)
	end := v.End.In(loc)
	return fmt.Sprintf("%s  %s-%s  %3dmin  %s",
		start.Format("Mon Jan 02"),
		start.Format("15:04"),
		end.Format("15:04"),
		v.Minutes(),
		v.TaskName,
	)
}
