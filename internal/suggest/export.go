package suggest

import (
	"context"
	"io"
	"time"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/model"
	"github.com/christopherklint97/skedule/internal/store"
)

// ExportApproved writes the user's approved blocks overlapping [from, to) as
// an iCalendar file and returns how many were written. Zero bounds are open.
func (s *Service) ExportApproved(ctx context.Context, w io.Writer, userID string, from, to time.Time) (int, error) {
	views, err := s.store.ListSlotViews(ctx, store.SlotFilter{
		UserID:   userID,
		Statuses: []model.Status{model.StatusApproved},
		From:     from,
		To:       to,
	})
	if err != nil {
		return 0, err
	}

	events := make([]calendar.ExportEvent, 0, len(views))
	for _, v := range views {
		events = append(events, calendar.ExportEvent{
			ID: v.ID,
			NewEvent: calendar.NewEvent{
				Title: v.TaskName,
				Start: v.Start,
				End:   v.End,
			},
		})
	}
	if err := calendar.WriteICS(w, events, s.now()); err != nil {
		return 0, err
	}
	return len(events), nil
}
