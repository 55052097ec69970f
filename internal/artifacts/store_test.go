package artifacts

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameNameZeroPadded(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{1, "frame_0001.jpg"},
		{42, "frame_0042.jpg"},
		{9999, "frame_9999.jpg"},
		{12345, "frame_12345.jpg"},
	}
	for _, tt := range tests {
		if got := FrameName(tt.index); got != tt.want {
			t.Errorf("FrameName(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestStoreSaveListOpen(t *testing.T) {
	mem := NewMemoryFileSystem()
	store, err := NewStore("processed", mem)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		name, err := store.SaveFrame(i, []byte{0xFF, byte(i)})
		require.NoError(t, err)
		assert.Equal(t, FrameName(i), name)
	}

	frames, err := store.List()
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, "frame_0001.jpg", frames[0].Filename)
	assert.Equal(t, int64(2), frames[0].Size)
	assert.Equal(t, "frame_0003.jpg", frames[2].Filename)

	data, err := store.Open("frame_0002.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 2}, data)
}

func TestStoreOpenRejectsTraversal(t *testing.T) {
	store, err := NewStore("processed", NewMemoryFileSystem())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "a/b.jpg", "..", "dir/../frame_0001.jpg"} {
		_, err := store.Open(name)
		assert.Truef(t, errors.Is(err, fs.ErrNotExist), "Open(%q) = %v, want ErrNotExist", name, err)
	}
}

func TestStoreOpenMissing(t *testing.T) {
	store, err := NewStore("processed", NewMemoryFileSystem())
	require.NoError(t, err)
	_, err = store.Open("frame_0001.jpg")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestStoreClear(t *testing.T) {
	mem := NewMemoryFileSystem()
	store, err := NewStore("processed", mem)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := store.SaveFrame(i, []byte{1})
		require.NoError(t, err)
	}
	require.NoError(t, store.Clear())

	frames, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestStoreSaveFailureSurfaces(t *testing.T) {
	mem := NewMemoryFileSystem()
	mem.FailWrites = true
	store, err := NewStore("processed", mem)
	require.NoError(t, err)

	_, err = store.SaveFrame(1, []byte{1})
	require.Error(t, err)
}
