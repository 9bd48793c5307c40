package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-shop-bot/internal/domain"
	"telegram-shop-bot/internal/domain/model"
	"telegram-shop-bot/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.SessionStateRepository = (*SessionStateRepo)(nil)

// SessionStateRepo persists per-session dialog state in Redis. Keys carry no
// TTL: a session is never deleted, only reset to the initial state by the
// restart command.
type SessionStateRepo struct {
	client *Client
}

func NewSessionStateRepo(client *Client) *SessionStateRepo {
	return &SessionStateRepo{client: client}
}

func (s *SessionStateRepo) stateKey(sessionID string) string {
	return fmt.Sprintf("dialog_state:%s", sessionID)
}

func (s *SessionStateRepo) Get(ctx context.Context, sessionID string) (*model.SessionState, error) {
	data, err := s.client.Get(ctx, s.stateKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	var rec model.SessionState
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("%w: decode state: %v", domain.ErrPersistence, err)
	}
	if !rec.State.Valid() {
		return nil, fmt.Errorf("%w: stored state %q outside enumeration", domain.ErrPersistence, rec.State)
	}
	return &rec, nil
}

func (s *SessionStateRepo) Set(ctx context.Context, sessionID string, state *model.SessionState) error {
	if state == nil || !state.State.Valid() {
		return fmt.Errorf("%w: state outside enumeration", domain.ErrInvalidArgument)
	}
	rec := *state
	rec.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.stateKey(sessionID), data, 0); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}
