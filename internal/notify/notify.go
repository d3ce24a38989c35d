// Package notify creates per-recipient notification records. A broadcast is
// N independent sequential creates: a failure partway leaves the earlier
// notifications in place.
package notify

import (
	"context"

	"communityhub/pkg/types"

	"github.com/sirupsen/logrus"
)

type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *types.Notification) error
	MarkAllRead(ctx context.Context, userID string) error
}

type Notifier struct {
	store  NotificationStore
	logger *logrus.Logger
}

func NewNotifier(store NotificationStore, logger *logrus.Logger) *Notifier {
	return &Notifier{store: store, logger: logger}
}

// Notify creates one unread notification for the recipient.
func (n *Notifier) Notify(ctx context.Context, userID, title, message, model, modelID string) (*types.Notification, error) {
	notification := &types.Notification{
		Title:   title,
		Message: message,
		Status:  types.NotificationStatusUnread,
		UserID:  userID,
	}
	if model != "" {
		notification.Model = &model
	}
	if modelID != "" {
		notification.ModelID = &modelID
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// Outcome is one recipient's result from a broadcast.
type Outcome struct {
	UserID       string
	Notification *types.Notification
	Err          error
}

// Broadcast notifies each recipient in order. A failed create is logged and
// recorded in the outcome list; it does not stop the loop or roll back the
// recipients already notified.
func (n *Notifier) Broadcast(ctx context.Context, userIDs []string, title, message, model, modelID string) []Outcome {
	outcomes := make([]Outcome, 0, len(userIDs))

	for _, userID := range userIDs {
		notification, err := n.Notify(ctx, userID, title, message, model, modelID)
		if err != nil {
			n.logger.WithError(err).WithField("user_id", userID).Warn("notification create failed")
		}
		outcomes = append(outcomes, Outcome{UserID: userID, Notification: notification, Err: err})
	}

	return outcomes
}

// MarkAllRead marks every one of the user's notifications read. Idempotent.
func (n *Notifier) MarkAllRead(ctx context.Context, userID string) error {
	return n.store.MarkAllRead(ctx, userID)
}
