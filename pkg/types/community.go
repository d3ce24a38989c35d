package types

import (
	"errors"
	"time"
)

var (
	ErrCommunityNotFound = errors.New("community not found")
	ErrMessageNotFound   = errors.New("message not found")
)

type Community struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one entry in a community or support-ticket chat. Exactly one
// of Message and AttachmentID is set.
type ChatMessage struct {
	ID           string    `db:"id" json:"id"`
	ParentID     string    `db:"parent_id" json:"-"`
	Message      *string   `db:"message" json:"message"`
	AttachmentID *string   `db:"attachment_id" json:"attachment_id"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Populated, never stored.
	Attachment *File `db:"-" json:"attachment,omitempty"`
	Author     *User `db:"-" json:"author,omitempty"`
}
