//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"telegram-shop-bot/internal/config"
	"telegram-shop-bot/internal/domain"
	"telegram-shop-bot/internal/domain/model"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli, err := NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	if err != nil {
		t.Fatalf("connect to test redis: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli, mr
}

func TestSessionStateRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cli, mr := newTestClient(t)
	repo := NewSessionStateRepo(cli)

	in := &model.SessionState{State: model.StateDescription, ProductID: "p1"}
	if err := repo.Set(ctx, "chat-1", in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	out, err := repo.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.State != model.StateDescription || out.ProductID != "p1" {
		t.Errorf("got %+v", out)
	}
	if out.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped on save")
	}

	// Session records never expire.
	if ttl := mr.TTL("dialog_state:chat-1"); ttl != 0 {
		t.Errorf("ttl = %v, want none", ttl)
	}
}

func TestSessionStateRepo_GetMissing(t *testing.T) {
	ctx := context.Background()
	cli, _ := newTestClient(t)
	repo := NewSessionStateRepo(cli)

	_, err := repo.Get(ctx, "never-seen")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStateRepo_RejectsInvalidState(t *testing.T) {
	ctx := context.Background()
	cli, mr := newTestClient(t)
	repo := NewSessionStateRepo(cli)

	t.Run("on save", func(t *testing.T) {
		err := repo.Set(ctx, "chat-1", &model.SessionState{State: "LIMBO"})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		err = repo.Set(ctx, "chat-1", nil)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for nil record, got %v", err)
		}
	})

	t.Run("on load", func(t *testing.T) {
		mr.Set("dialog_state:chat-2", `{"state":"LIMBO"}`)
		_, err := repo.Get(ctx, "chat-2")
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
	})

	t.Run("on corrupt payload", func(t *testing.T) {
		mr.Set("dialog_state:chat-3", "not json")
		_, err := repo.Get(ctx, "chat-3")
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestSessionLocker_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	cli, _ := newTestClient(t)
	locker := NewSessionLocker(cli, time.Minute)

	token, err := locker.Lock(ctx, "chat-1")
	if err != nil {
		t.Fatalf("first Lock failed: %v", err)
	}

	// A second acquisition of the same session must block until released.
	shortCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(shortCtx, "chat-1"); !errors.Is(err, domain.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy while held, got %v", err)
	}

	// A different session is unaffected.
	other, err := locker.Lock(ctx, "chat-2")
	if err != nil {
		t.Fatalf("other session Lock failed: %v", err)
	}
	if err := locker.Unlock(ctx, "chat-2", other); err != nil {
		t.Fatalf("other session Unlock failed: %v", err)
	}

	if err := locker.Unlock(ctx, "chat-1", token); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	reacquired, err := locker.Lock(ctx, "chat-1")
	if err != nil {
		t.Fatalf("re-Lock after Unlock failed: %v", err)
	}
	_ = locker.Unlock(ctx, "chat-1", reacquired)
}

func TestSessionLocker_WrongTokenDoesNotRelease(t *testing.T) {
	ctx := context.Background()
	cli, _ := newTestClient(t)
	locker := NewSessionLocker(cli, time.Minute)

	if _, err := locker.Lock(ctx, "chat-1"); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := locker.Unlock(ctx, "chat-1", "stale-token"); err != nil {
		t.Fatalf("Unlock with wrong token errored: %v", err)
	}

	// The lease must still be held.
	shortCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(shortCtx, "chat-1"); !errors.Is(err, domain.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	cli, mr := newTestClient(t)
	limiter := NewRateLimiter(cli)
	key := SessionEventKey("chat-1")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d denied under the limit", i)
		}
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok {
		t.Error("request over the limit was allowed")
	}

	// The window expiring resets the counter.
	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow after window failed: %v", err)
	}
	if !ok {
		t.Error("request denied after the window reset")
	}
}
