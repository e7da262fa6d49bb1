package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store that holds no session for the user.
var ErrNotFound = errors.New("session not found")

// Store persists sessions between turns.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID string) error
}
