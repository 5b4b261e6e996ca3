package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kenobeee/mettta-space/internal/account"
	"github.com/kenobeee/mettta-space/internal/meeting"
)

const (
	meetingsFile = "meetings.json"
	usersFile    = "users.json"
)

// FileStore keeps one JSON file per collection. Writes go to a temp file in
// the same directory and are renamed over the target.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) LoadMeetings(_ context.Context) ([]meeting.Meeting, error) {
	var out []meeting.Meeting
	if err := s.readJSON(meetingsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) SaveMeetings(_ context.Context, meetings []meeting.Meeting) error {
	return s.writeJSON(meetingsFile, nonNil(meetings))
}

func (s *FileStore) LoadUsers(_ context.Context) ([]account.User, error) {
	var out []account.User
	if err := s.readJSON(usersFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) SaveUsers(_ context.Context, users []account.User) error {
	return s.writeJSON(usersFile, nonNil(users))
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
