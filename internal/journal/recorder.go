package journal

import (
	"context"
	"log/slog"
	"time"

	"vidshelf/internal/logging"
	"vidshelf/internal/rpc"
)

const appendTimeout = 5 * time.Second

// Recorder returns a general notification listener that appends every
// notification to store under sessionID. Write failures are logged; the
// notification still reaches the other listeners.
func Recorder(store *Store, sessionID string, logger *slog.Logger) func(rpc.Notification) {
	logger = logging.NewComponentLogger(logger, "journal")
	return func(n rpc.Notification) {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()
		if _, err := store.Append(ctx, Entry{
			SessionID:  sessionID,
			Name:       n.Name,
			Parameters: n.Parameters,
		}); err != nil {
			logging.WarnWithContext(logger, "failed to record notification", "journal_append_failed",
				logging.String(logging.FieldNotification, n.Name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "notification missing from history"),
				logging.String(logging.FieldErrorHint, "check free space and permissions for the journal database"))
		}
	}
}
