package types

import (
	"errors"
	"time"
)

type NotificationStatus string

const (
	NotificationStatusRead   NotificationStatus = "read"
	NotificationStatusUnread NotificationStatus = "unread"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification is one per-recipient record. Model/ModelID point at the
// document the notification is about (a community, a support ticket).
type Notification struct {
	ID        string             `db:"id" json:"id"`
	Title     string             `db:"title" json:"title"`
	Message   string             `db:"message" json:"message"`
	Status    NotificationStatus `db:"status" json:"status"`
	UserID    string             `db:"user_id" json:"user_id"`
	Model     *string            `db:"model" json:"model"`
	ModelID   *string            `db:"model_id" json:"model_id"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}
