// Package uploads mediates every file upload and delete so a FileRecord row
// and its stored bytes never diverge: the row is created only after the bytes
// are durably written, and removing a record deletes first the bytes, then
// the row.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"strings"

	"communityhub/pkg/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileStore is the slice of the document store the manager needs.
type FileStore interface {
	File(ctx context.Context, fileID string) (*types.File, error)
	CreateFile(ctx context.Context, file *types.File) error
	DeleteFile(ctx context.Context, fileID string) error
}

// BlobStore is the byte-storage boundary.
type BlobStore interface {
	Write(ctx context.Context, path string, body io.Reader, contentType string) error
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

type Manager struct {
	files  FileStore
	blobs  BlobStore
	logger *logrus.Logger
}

func NewManager(files FileStore, blobs BlobStore, logger *logrus.Logger) *Manager {
	return &Manager{files: files, blobs: blobs, logger: logger}
}

// Store writes the uploaded bytes under folder and records a FileRecord for
// them. A nil header means no file was supplied, which is a valid silent
// outcome: Store returns (nil, nil) and the caller proceeds without a file.
// If the byte write fails no FileRecord is created.
func (m *Manager) Store(ctx context.Context, header *multipart.FileHeader, folder, uploadedBy string) (*types.File, error) {
	if header == nil {
		return nil, nil
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	extension := strings.TrimPrefix(strings.ToLower(path.Ext(header.Filename)), ".")

	storedName := uuid.NewString()
	if extension != "" {
		storedName += "." + extension
	}
	storedName = strings.ReplaceAll(storedName, " ", "-")

	storedPath := path.Join(folder, storedName)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension("." + extension)
	}

	// Bytes first. A failed write must leave no metadata row behind.
	if err := m.blobs.Write(ctx, storedPath, src, contentType); err != nil {
		return nil, fmt.Errorf("write upload bytes: %w", err)
	}

	file := &types.File{
		OriginalName: header.Filename,
		Name:         storedName,
		Path:         storedPath,
		Mimetype:     contentType,
		Extension:    extension,
	}
	if uploadedBy != "" {
		file.UploadedBy = &uploadedBy
	}

	if err := m.files.CreateFile(ctx, file); err != nil {
		// The row never existed; drop the bytes so neither side dangles.
		if cleanupErr := m.blobs.Delete(ctx, storedPath); cleanupErr != nil {
			m.logger.WithError(cleanupErr).WithField("path", storedPath).
				Warn("failed to clean up bytes after record create failure")
		}
		return nil, fmt.Errorf("create file record: %w", err)
	}

	return file, nil
}

// RemoveResult reports the outcome of a best-effort delete. Callers log a
// failure and continue; a failed cleanup never aborts the surrounding
// operation.
type RemoveResult struct {
	FileID string
	Err    error
}

func (r RemoveResult) OK() bool {
	return r.Err == nil
}

// Remove deletes a FileRecord's bytes and then the record itself. Bytes
// already absent at the stored path count as success; the goal is that the
// row and the bytes agree, not that the byte layer was touched.
func (m *Manager) Remove(ctx context.Context, fileID string) RemoveResult {
	file, err := m.files.File(ctx, fileID)
	if err != nil {
		return RemoveResult{FileID: fileID, Err: fmt.Errorf("look up file record: %w", err)}
	}

	exists, err := m.blobs.Exists(ctx, file.Path)
	if err != nil {
		return RemoveResult{FileID: fileID, Err: fmt.Errorf("stat stored bytes: %w", err)}
	}

	if exists {
		if err := m.blobs.Delete(ctx, file.Path); err != nil {
			return RemoveResult{FileID: fileID, Err: fmt.Errorf("delete stored bytes: %w", err)}
		}
	}

	if err := m.files.DeleteFile(ctx, fileID); err != nil {
		return RemoveResult{FileID: fileID, Err: fmt.Errorf("delete file record: %w", err)}
	}

	return RemoveResult{FileID: fileID}
}

// RemoveAll removes each record in turn, logging failures and carrying on.
// It returns the per-file outcomes.
func (m *Manager) RemoveAll(ctx context.Context, fileIDs []string) []RemoveResult {
	results := make([]RemoveResult, 0, len(fileIDs))
	for _, id := range fileIDs {
		res := m.Remove(ctx, id)
		if !res.OK() {
			m.logger.WithError(res.Err).WithField("file_id", id).Warn("best-effort file cleanup failed")
		}
		results = append(results, res)
	}
	return results
}

// ErrNoFile can be matched by callers that need to distinguish "nothing
// uploaded" from a failed upload when working with raw form lookups.
var ErrNoFile = errors.New("no file supplied")

// HeaderFromForm fetches the first uploaded file under the given form key,
// returning nil when the key is absent.
func HeaderFromForm(form *multipart.Form, key string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	headers := form.File[key]
	if len(headers) == 0 {
		return nil
	}
	return headers[0]
}
