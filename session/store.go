// Package session persists per-conversation dialogue state and message
// history between turns.
package session

import (
	"context"

	"usadba/models"
)

// Store keeps the booking context and conversation history for a session.
// A missing session yields a nil context and no error.
type Store interface {
	GetContext(ctx context.Context, sessionID string) (*models.BookingContext, error)
	SetContext(ctx context.Context, sessionID string, bctx *models.BookingContext) error
	ClearContext(ctx context.Context, sessionID string) error

	// History returns the stored messages oldest first.
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	AddMessage(ctx context.Context, sessionID, role, content string) error
	ClearHistory(ctx context.Context, sessionID string) error

	Ping(ctx context.Context) error
}
