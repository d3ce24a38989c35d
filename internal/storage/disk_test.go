package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStorage_WriteAndOpen(t *testing.T) {
	store := NewDiskStorage(t.TempDir())
	ctx := context.Background()

	err := store.Write(ctx, "tickets/report.pdf", strings.NewReader("pdf bytes"), "application/pdf")
	require.NoError(t, err)

	body, err := store.Open(ctx, "tickets/report.pdf")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestDiskStorage_Exists(t *testing.T) {
	store := NewDiskStorage(t.TempDir())
	ctx := context.Background()

	exists, err := store.Exists(ctx, "users/me.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(ctx, "users/me.jpg", strings.NewReader("jpeg bytes"), "image/jpeg"))

	exists, err = store.Exists(ctx, "users/me.jpg")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDiskStorage_Delete(t *testing.T) {
	store := NewDiskStorage(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "users/me.jpg", strings.NewReader("jpeg bytes"), "image/jpeg"))
	require.NoError(t, store.Delete(ctx, "users/me.jpg"))

	exists, err := store.Exists(ctx, "users/me.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiskStorage_DeleteMissingIsNoError(t *testing.T) {
	store := NewDiskStorage(t.TempDir())

	assert.NoError(t, store.Delete(context.Background(), "never/written.txt"))
}

func TestDiskStorage_OpenMissing(t *testing.T) {
	store := NewDiskStorage(t.TempDir())

	_, err := store.Open(context.Background(), "never/written.txt")
	assert.Error(t, err)
}
