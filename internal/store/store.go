// Package store persists meetings and users as JSON arrays, either in files
// under a data directory or in redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kenobeee/mettta-space/internal/account"
	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/meeting"
)

var ErrCorrupt = errors.New("stored state is corrupt")

// Store is the persistence port used by the coordinator.
type Store interface {
	LoadMeetings(ctx context.Context) ([]meeting.Meeting, error)
	SaveMeetings(ctx context.Context, meetings []meeting.Meeting) error
	LoadUsers(ctx context.Context) ([]account.User, error)
	SaveUsers(ctx context.Context, users []account.User) error
	Close() error
}

// Open builds the backend selected by cfg.Storage.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage {
	case config.StorageRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.StorageFile, "":
		return NewFileStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// State is everything loaded at startup.
type State struct {
	Meetings []meeting.Meeting
	Users    []account.User
}

// LoadState reads both collections. Unreadable or corrupt data is logged and
// replaced with an empty collection.
func LoadState(ctx context.Context, s Store, logger *slog.Logger) State {
	var st State

	meetings, err := s.LoadMeetings(ctx)
	if err != nil {
		logger.Warn("Discarding stored meetings", "error", err)
	} else {
		st.Meetings = meetings
	}

	users, err := s.LoadUsers(ctx)
	if err != nil {
		logger.Warn("Discarding stored users", "error", err)
	} else {
		st.Users = users
	}
	return st
}
