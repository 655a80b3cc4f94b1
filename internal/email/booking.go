package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/leaguehq/leaguehq/internal/db"
)

const bookingEmailTimeout = 5 * time.Second

// SendBookingEmail delivers a booking message to the user asynchronously.
// The send runs on a detached context so a finished request does not abort
// it; failures are logged and otherwise ignored.
func SendBookingEmail(ctx context.Context, q *db.Queries, client EmailSender, userID int64, message Message, logger *zerolog.Logger) {
	if client == nil || q == nil {
		return
	}
	if message.Subject == "" || message.Body == "" {
		return
	}

	user, err := q.GetUserByID(ctx, userID)
	if err != nil {
		if logger != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user for booking email")
		}
		return
	}
	if !user.Email.Valid {
		return
	}
	recipient := strings.TrimSpace(user.Email.String)
	if recipient == "" {
		return
	}

	go func() {
		sendCtx, cancel := newEmailContext(ctx, bookingEmailTimeout)
		defer cancel()
		if sendCtx.Err() != nil {
			return
		}
		if err := client.Send(sendCtx, recipient, message.Subject, message.Body); err != nil && logger != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to send booking email")
		}
	}()
}

func newEmailContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	// Detach cancellation so handler-scoped contexts don't abort async sends.
	parent = context.WithoutCancel(parent)
	return context.WithTimeout(parent, timeout)
}
