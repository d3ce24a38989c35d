package types

import (
	"errors"
	"time"
)

var ErrResourceNotFound = errors.New("resource not found")

// Resource is a shared document bundle. Files carries the ids of the owned
// FileRecords; a resource always owns at least one.
type Resource struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	FileIDs []string `db:"-" json:"files"`
	Files   []*File  `db:"-" json:"file_records,omitempty"`
}
