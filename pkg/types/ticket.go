package types

import (
	"errors"
	"time"
)

type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
)

type TicketPriority string

const (
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityUrgent TicketPriority = "urgent"
)

var ErrTicketNotFound = errors.New("support ticket not found")

type SupportTicket struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Status      TicketStatus   `db:"status" json:"status"`
	Priority    TicketPriority `db:"priority" json:"priority"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`

	FileIDs []string `db:"-" json:"files,omitempty"`
	Files   []*File  `db:"-" json:"file_records,omitempty"`
	Creator *User    `db:"-" json:"creator,omitempty"`
}
