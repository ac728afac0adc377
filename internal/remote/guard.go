package remote

import (
	"context"
	"fmt"
)

// SessionSource exposes the session currently held by the client
type SessionSource interface {
	CurrentSession() *Session
}

// Guard checks, before any write, that a session exists and belongs to the
// store's current user. The service enforces real authorization.
type Guard struct {
	Sessions SessionSource
}

// Verify returns ErrNoSession or ErrSessionMismatch when the write must be refused
func (g Guard) Verify(_ context.Context, userID string) error {
	if g.Sessions == nil {
		return ErrNoSession
	}
	sess := g.Sessions.CurrentSession()
	if sess == nil {
		return ErrNoSession
	}
	if sess.UserID != userID {
		return fmt.Errorf("%w: session %s, current %s", ErrSessionMismatch, sess.UserID, userID)
	}
	return nil
}
