package types

import (
	"errors"
	"time"
)

var ErrFileNotFound = errors.New("file not found")

// File is the metadata row for one stored blob. Path is the sole source of
// truth for where the bytes live under the shared storage root.
type File struct {
	ID           string    `db:"id" json:"id"`
	OriginalName string    `db:"original_name" json:"original_name"`
	Name         string    `db:"name" json:"name"`
	Path         string    `db:"path" json:"path"`
	Mimetype     string    `db:"mimetype" json:"mimetype"`
	Extension    string    `db:"extension" json:"extension"`
	UploadedBy   *string   `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
