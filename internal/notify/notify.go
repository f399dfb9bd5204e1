// Package notify sends desktop notifications.
package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/christopherklint97/skedule/internal/model"
)

const appName = "skedule"

// Desktop notifies the local user through the OS notification centre.
type Desktop struct {
	enabled bool
	send    func(title, message string) error
	logger  *slog.Logger
}

func New(enabled bool, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Desktop{enabled: enabled, send: Send, logger: logger}
}

// Send shows a single notification.
func Send(title, message string) error {
	return beeep.Notify(title, message, "")
}

// TaskCompleted announces that approved blocks now cover the task's estimate.
// Failures are logged, never returned.
func (d *Desktop) TaskCompleted(task model.Task, progress model.Progress) {
	if !d.enabled {
		return
	}
	msg := fmt.Sprintf("%q is fully scheduled (%d min approved).", task.Name, progress.ApprovedMinutes)
	if err := d.send(appName, msg); err != nil {
		d.logger.Warn("failed to send notification", "error", err)
	}
}
