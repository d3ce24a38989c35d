package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"communityhub/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileStore struct {
	records   map[string]*types.File
	nextID    int
	createErr error
	deleteErr error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{records: make(map[string]*types.File)}
}

func (s *fakeFileStore) File(ctx context.Context, fileID string) (*types.File, error) {
	file, ok := s.records[fileID]
	if !ok {
		return nil, types.ErrFileNotFound
	}
	return file, nil
}

func (s *fakeFileStore) CreateFile(ctx context.Context, file *types.File) error {
	if s.createErr != nil {
		return s.createErr
	}

	if file.ID == "" {
		s.nextID++
		file.ID = fmt.Sprintf("file-%d", s.nextID)
	}
	s.records[file.ID] = file
	return nil
}

func (s *fakeFileStore) DeleteFile(ctx context.Context, fileID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}

	delete(s.records, fileID)
	return nil
}

type fakeBlobStore struct {
	blobs    map[string][]byte
	writeErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Write(ctx context.Context, path string, body io.Reader, contentType string) error {
	if s.writeErr != nil {
		return s.writeErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.blobs[path] = data
	return nil
}

func (s *fakeBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := s.blobs[path]
	return ok, nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, path string) error {
	delete(s.blobs, path)
	return nil
}

func newTestManager(files FileStore, blobs BlobStore) *Manager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewManager(files, blobs, logger)
}

func fileHeader(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File[field][0]
}

func TestStore_RoundTrip(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	header := fileHeader(t, "attachment", "Annual Report.PDF", "pdf bytes")

	file, err := manager.Store(context.Background(), header, "tickets", "user-1")
	require.NoError(t, err)
	require.NotNil(t, file)

	assert.Equal(t, "Annual Report.PDF", file.OriginalName)
	assert.Equal(t, "pdf", file.Extension)
	assert.True(t, strings.HasSuffix(file.Name, ".pdf"))
	assert.NotContains(t, file.Name, " ")
	assert.Equal(t, "tickets/"+file.Name, file.Path)
	require.NotNil(t, file.UploadedBy)
	assert.Equal(t, "user-1", *file.UploadedBy)

	assert.Contains(t, files.records, file.ID)
	assert.Equal(t, []byte("pdf bytes"), blobs.blobs[file.Path])
}

func TestStore_NilHeaderIsNoOp(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	file, err := manager.Store(context.Background(), nil, "tickets", "user-1")
	require.NoError(t, err)
	assert.Nil(t, file)
	assert.Empty(t, files.records)
	assert.Empty(t, blobs.blobs)
}

func TestStore_WriteFailureLeavesNoRecord(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	blobs.writeErr = fmt.Errorf("disk full")
	manager := newTestManager(files, blobs)

	header := fileHeader(t, "attachment", "report.pdf", "pdf bytes")

	_, err := manager.Store(context.Background(), header, "tickets", "user-1")
	require.Error(t, err)
	assert.Empty(t, files.records)
	assert.Empty(t, blobs.blobs)
}

func TestStore_RecordFailureDropsBytes(t *testing.T) {
	files := newFakeFileStore()
	files.createErr = fmt.Errorf("insert failed")
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	header := fileHeader(t, "attachment", "report.pdf", "pdf bytes")

	_, err := manager.Store(context.Background(), header, "tickets", "user-1")
	require.Error(t, err)
	assert.Empty(t, files.records)
	assert.Empty(t, blobs.blobs)
}

func TestStore_AnonymousUploader(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	header := fileHeader(t, "photo", "me.jpg", "jpeg bytes")

	file, err := manager.Store(context.Background(), header, "users", "")
	require.NoError(t, err)
	assert.Nil(t, file.UploadedBy)
}

func TestRemove(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	header := fileHeader(t, "attachment", "report.pdf", "pdf bytes")
	file, err := manager.Store(context.Background(), header, "tickets", "user-1")
	require.NoError(t, err)

	result := manager.Remove(context.Background(), file.ID)
	assert.True(t, result.OK())
	assert.Empty(t, files.records)
	assert.Empty(t, blobs.blobs)
}

func TestRemove_MissingBytesStillDeletesRecord(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	header := fileHeader(t, "attachment", "report.pdf", "pdf bytes")
	file, err := manager.Store(context.Background(), header, "tickets", "user-1")
	require.NoError(t, err)

	// Bytes vanished out of band; the record delete still goes through.
	delete(blobs.blobs, file.Path)

	result := manager.Remove(context.Background(), file.ID)
	assert.True(t, result.OK())
	assert.Empty(t, files.records)
}

func TestRemove_UnknownID(t *testing.T) {
	manager := newTestManager(newFakeFileStore(), newFakeBlobStore())

	result := manager.Remove(context.Background(), "nope")
	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, types.ErrFileNotFound)
	assert.Equal(t, "nope", result.FileID)
}

func TestRemoveAll_ContinuesPastFailures(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	header := fileHeader(t, "attachment", "report.pdf", "pdf bytes")
	file, err := manager.Store(context.Background(), header, "tickets", "user-1")
	require.NoError(t, err)

	results := manager.RemoveAll(context.Background(), []string{"missing", file.ID})
	require.Len(t, results, 2)
	assert.False(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.Empty(t, files.records)
}

// Replacing a document's single attachment stores the new file first, so the
// reference is only rewritten once the new record exists, and then removes
// the old record and its bytes.
func TestReplaceSingleAttachment(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	oldFile, err := manager.Store(context.Background(), fileHeader(t, "photo", "old.jpg", "old bytes"), "users", "user-1")
	require.NoError(t, err)

	photoID := oldFile.ID

	newFile, err := manager.Store(context.Background(), fileHeader(t, "photo", "new.jpg", "new bytes"), "users", "user-1")
	require.NoError(t, err)

	// The new record exists before the reference moves off the old one.
	require.Contains(t, files.records, newFile.ID)
	result := manager.Remove(context.Background(), photoID)
	assert.True(t, result.OK())
	photoID = newFile.ID

	assert.NotEmpty(t, photoID)
	require.Len(t, files.records, 1)
	assert.Contains(t, files.records, newFile.ID)
	require.Len(t, blobs.blobs, 1)
	assert.Equal(t, []byte("new bytes"), blobs.blobs[newFile.Path])
}

// A failed store of the replacement leaves the old record, its bytes, and the
// reference untouched.
func TestReplaceSingleAttachment_StoreFailureKeepsOld(t *testing.T) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	manager := newTestManager(files, blobs)

	oldFile, err := manager.Store(context.Background(), fileHeader(t, "photo", "old.jpg", "old bytes"), "users", "user-1")
	require.NoError(t, err)

	blobs.writeErr = fmt.Errorf("disk full")

	_, err = manager.Store(context.Background(), fileHeader(t, "photo", "new.jpg", "new bytes"), "users", "user-1")
	require.Error(t, err)

	require.Len(t, files.records, 1)
	assert.Contains(t, files.records, oldFile.ID)
	assert.Equal(t, []byte("old bytes"), blobs.blobs[oldFile.Path])
}

func TestHeaderFromForm(t *testing.T) {
	assert.Nil(t, HeaderFromForm(nil, "photo"))

	form := &multipart.Form{File: map[string][]*multipart.FileHeader{}}
	assert.Nil(t, HeaderFromForm(form, "photo"))

	header := fileHeader(t, "photo", "me.jpg", "jpeg bytes")
	form.File["photo"] = []*multipart.FileHeader{header}
	assert.Equal(t, header, HeaderFromForm(form, "photo"))
}
