// Package account keeps registered users and resolves their session tokens.
package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxNameRunes = 60
	tokenBytes   = 32
)

var (
	ErrInvalidName  = errors.New("first and last name are required")
	ErrUnknownToken = errors.New("unknown or expired token")
	ErrStorage      = errors.New("failed to persist users")
)

type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Saver persists the full user set.
type Saver interface {
	SaveUsers(ctx context.Context, users []User) error
}

// Directory indexes users by id and token. Not safe for concurrent use.
type Directory struct {
	byID    map[string]User
	byToken map[string]string
	saver   Saver
}

func NewDirectory(users []User, saver Saver) *Directory {
	d := &Directory{
		byID:    make(map[string]User, len(users)),
		byToken: make(map[string]string, len(users)),
		saver:   saver,
	}
	for _, u := range users {
		if u.ID == "" || u.Token == "" {
			continue
		}
		d.byID[u.ID] = u
		d.byToken[u.Token] = u.ID
	}
	return d
}

// Register creates and persists a new user with a fresh token.
func (d *Directory) Register(ctx context.Context, firstName, lastName string, now time.Time) (User, error) {
	first, err := cleanName(firstName)
	if err != nil {
		return User{}, err
	}
	last, err := cleanName(lastName)
	if err != nil {
		return User{}, err
	}

	token, err := newToken()
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:        uuid.NewString(),
		FirstName: first,
		LastName:  last,
		Token:     token,
		CreatedAt: now.UTC(),
	}
	d.byID[u.ID] = u
	d.byToken[u.Token] = u.ID

	if d.saver != nil {
		if err := d.saver.SaveUsers(ctx, d.All()); err != nil {
			delete(d.byID, u.ID)
			delete(d.byToken, u.Token)
			return User{}, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return u, nil
}

// Authenticate resolves a token to its user.
func (d *Directory) Authenticate(token string) (User, error) {
	id, ok := d.byToken[strings.TrimSpace(token)]
	if !ok {
		return User{}, ErrUnknownToken
	}
	return d.byID[id], nil
}

func (d *Directory) Get(id string) (User, bool) {
	u, ok := d.byID[id]
	return u, ok
}

// All returns users ordered by creation time.
func (d *Directory) All() []User {
	out := make([]User, 0, len(d.byID))
	for _, u := range d.byID {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func cleanName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n == 0 || n > MaxNameRunes {
		return "", ErrInvalidName
	}
	return s, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
