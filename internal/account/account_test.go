package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSaver struct {
	users []User
	err   error
}

func (s *memSaver) SaveUsers(_ context.Context, users []User) error {
	if s.err != nil {
		return s.err
	}
	s.users = users
	return nil
}

var now = time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

func TestRegisterAndAuthenticate(t *testing.T) {
	saver := &memSaver{}
	d := NewDirectory(nil, saver)

	u, err := d.Register(context.Background(), " Ada ", "Lovelace", now)
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Len(t, u.Token, 64)
	assert.Equal(t, "Ada Lovelace", u.DisplayName())
	assert.Equal(t, []User{u}, saver.users)

	got, err := d.Authenticate(u.Token)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = d.Authenticate("deadbeef")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestRegisterRejectsBadNames(t *testing.T) {
	d := NewDirectory(nil, nil)

	_, err := d.Register(context.Background(), "", "Smith", now)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = d.Register(context.Background(), "Ann", strings.Repeat("x", MaxNameRunes+1), now)
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.Empty(t, d.All())
}

func TestRegisterStorageFailureRollsBack(t *testing.T) {
	saver := &memSaver{err: errors.New("redis down")}
	d := NewDirectory(nil, saver)

	_, err := d.Register(context.Background(), "Ann", "Lee", now)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, d.All())
}

func TestDirectoryLoadsExistingUsers(t *testing.T) {
	existing := []User{
		{ID: "b", FirstName: "B", LastName: "B", Token: "tb", CreatedAt: now.Add(time.Minute)},
		{ID: "a", FirstName: "A", LastName: "A", Token: "ta", CreatedAt: now},
		{ID: "", Token: "broken"},
	}
	d := NewDirectory(existing, nil)

	all := d.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	u, err := d.Authenticate("tb")
	require.NoError(t, err)
	assert.Equal(t, "b", u.ID)
}
