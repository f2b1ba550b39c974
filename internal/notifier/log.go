package notifier

import (
	"log/slog"

	"github.com/amishk599/leadradar/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes saved leads to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each lead via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each lead. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(leads []model.Lead) error {
	for _, l := range leads {
		args := []any{"company", l.Company, "role", l.Role, "status", l.Status, "url", l.SourceURL, "context", l.Context}
		if len(l.Contacts) > 0 {
			args = append(args, "contacts", l.Contacts)
		}
		n.logger.Info("new lead", args...)
	}
	return nil
}
