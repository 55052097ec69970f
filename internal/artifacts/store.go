// Package artifacts persists annotated frame images produced during a job
// and serves them back for the frame-browsing endpoints.
package artifacts

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// FrameInfo describes one stored artifact.
type FrameInfo struct {
	Filename string
	Size     int64
}

// Store writes frames as zero-padded sequential JPEGs under one directory.
type Store struct {
	dir string
	fs  FileSystem
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string, filesystem FileSystem) (*Store, error) {
	if filesystem == nil {
		filesystem = OSFileSystem{}
	}
	if err := filesystem.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir %s: %w", dir, err)
	}
	return &Store{dir: dir, fs: filesystem}, nil
}

// FrameName returns the canonical artifact name for a frame index.
func FrameName(index int) string {
	return fmt.Sprintf("frame_%04d.jpg", index)
}

// SaveFrame persists one annotated frame and returns its filename.
func (s *Store) SaveFrame(index int, jpegData []byte) (string, error) {
	name := FrameName(index)
	if err := s.fs.WriteFile(filepath.Join(s.dir, name), jpegData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write frame artifact %s: %w", name, err)
	}
	return name, nil
}

// List returns all stored frames in name order.
func (s *Store) List() ([]FrameInfo, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frame artifacts: %w", err)
	}
	frames := make([]FrameInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		frames = append(frames, FrameInfo{Filename: e.Name(), Size: info.Size()})
	}
	return frames, nil
}

// Open reads one artifact by its bare filename. Names carrying path
// separators or traversal segments are rejected as not found.
func (s *Store) Open(name string) ([]byte, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return s.fs.ReadFile(filepath.Join(s.dir, name))
}

// Clear removes every stored frame. Called before a new job starts writing
// so listings never mix artifacts from two jobs.
func (s *Store) Clear() error {
	frames, err := s.List()
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := s.fs.Remove(filepath.Join(s.dir, f.Filename)); err != nil {
			return fmt.Errorf("failed to remove artifact %s: %w", f.Filename, err)
		}
	}
	return nil
}
