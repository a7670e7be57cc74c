package analytics

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/kafka"
)

// UserInvalidator drops cached results for one user.
type UserInvalidator interface {
	InvalidateUser(ctx context.Context, user string) error
}

// HandleTaskEvent returns a Kafka handler that invalidates the owning user's
// cached results whenever the task service reports a change. Undecodable
// messages are skipped so they do not block the partition.
func HandleTaskEvent(cache UserInvalidator) kafka.MessageHandler {
	log := slog.Default().With("component", "task-event-handler")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[TaskEvent](value)
		if err != nil {
			log.Warn("skipping undecodable task event", "key", string(key), "error", err)
			return nil
		}
		user, err := ParseUserID(event.UserID)
		if err != nil {
			log.Warn("skipping task event with invalid user id", "user_id", event.UserID)
			return nil
		}
		if err := cache.InvalidateUser(ctx, user.String()); err != nil {
			return err
		}
		log.Debug("invalidated cached analytics", "user_id", user, "action", event.Action)
		return nil
	}
}
