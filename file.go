package delay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileStore persists the Archive as a JSONL file
type FileStore struct {
	fs   afero.Fs
	path string
}

const (
	DefaultFilePath = "delay.jsonl"

	tempSuffix = ".tmp"
)

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore writing to path on the given filesystem.
// A nil filesystem uses the operating system's
func NewFileStore(fsys afero.Fs, path string) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultFilePath
	}
	return &FileStore{
		fs:   fsys,
		path: filepath.Clean(path),
	}
}

// Save writes the Archive to a temporary file and renames it over the
// previous one
func (s *FileStore) Save(ctx context.Context, a *Archive) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, a); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}

	tmp := s.path + tempSuffix
	if err := afero.WriteFile(s.fs, tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}

// Load reads the Archive, returning an empty one if the file does not exist
func (s *FileStore) Load(ctx context.Context) (*Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyArchive(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadJSONL(f)
}

func (s *FileStore) Close() error {
	return nil
}
