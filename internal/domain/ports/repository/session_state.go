package repository

import (
	"context"

	"telegram-shop-bot/internal/domain/model"
)

// SessionStateRepository is the port for the persisted per-session dialog
// state. Get returns domain.ErrNotFound when no state was ever stored; Set is
// an idempotent overwrite with last-write-wins semantics. Set must reject any
// record whose state is outside the enumeration.
type SessionStateRepository interface {
	Get(ctx context.Context, sessionID string) (*model.SessionState, error)
	Set(ctx context.Context, sessionID string, state *model.SessionState) error
}
