package redis

import (
	"context"
	"fmt"
	"time"

	"telegram-shop-bot/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SessionLocker serializes event processing per session with a SetNX lease.
// The lease TTL bounds how long a crashed worker can wedge a session.
type SessionLocker struct {
	cli   *redis.Client
	lease time.Duration
}

func NewSessionLocker(c *Client, lease time.Duration) *SessionLocker {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &SessionLocker{cli: c.cli, lease: lease}
}

func (l *SessionLocker) lockKey(sessionID string) string {
	return fmt.Sprintf("dialog_lock:%s", sessionID)
}

// Lock blocks until the session lease is acquired or ctx is done. Events for
// the same session must wait, not fail, so per-session ordering is preserved.
func (l *SessionLocker) Lock(ctx context.Context, sessionID string) (string, error) {
	token := uuid.NewString()
	key := l.lockKey(sessionID)
	for {
		ok, err := l.cli.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return "", fmt.Errorf("%w: lock: %v", domain.ErrPersistence, err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", domain.ErrSessionBusy, ctx.Err())
		case <-time.After(25 * time.Millisecond):
		}
	}
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Unlock releases the lease only if the token still owns it.
func (l *SessionLocker) Unlock(ctx context.Context, sessionID, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{l.lockKey(sessionID)}, token).Result()
	return err
}
