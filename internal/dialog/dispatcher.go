package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"telegram-shop-bot/internal/domain"
	"telegram-shop-bot/internal/domain/model"
	"telegram-shop-bot/internal/domain/ports/repository"
	"telegram-shop-bot/internal/infra/logging"
	"telegram-shop-bot/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// SessionLocker serializes the load→save window per session. Events for
// distinct sessions proceed independently; two events for the same session
// must never overlap.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (token string, err error)
	Unlock(ctx context.Context, sessionID, token string) error
}

// Stats is a point-in-time snapshot of dispatcher counters, served by the
// admin API.
type Stats struct {
	Processed           uint64 `json:"processed"`
	Mismatches          uint64 `json:"mismatches"`
	CommerceFailures    uint64 `json:"commerce_failures"`
	PersistenceFailures uint64 `json:"persistence_failures"`
	LockBusy            uint64 `json:"lock_busy"`
	Dropped             uint64 `json:"dropped"`
}

// Dispatcher is the thin shell in front of the Engine: it validates the
// inbound event, takes the per-session lock, loads the prior record (forcing
// the initial state on the restart command) and delegates.
type Dispatcher struct {
	engine *Engine
	states repository.SessionStateRepository
	locker SessionLocker
	log    *zerolog.Logger

	processed           atomic.Uint64
	mismatches          atomic.Uint64
	commerceFailures    atomic.Uint64
	persistenceFailures atomic.Uint64
	lockBusy            atomic.Uint64
	dropped             atomic.Uint64
}

func NewDispatcher(
	engine *Engine,
	states repository.SessionStateRepository,
	locker SessionLocker,
	logger *zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{engine: engine, states: states, locker: locker, log: logger}
}

// Dispatch processes one inbound event end-to-end. The returned error means
// the event was not fully processed (a reliable transport may redeliver it);
// a protocol mismatch is not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.Event) error {
	if ev.SessionID == "" {
		d.dropped.Add(1)
		metrics.IncDialogFailure("transport")
		d.log.Warn().Msg("dropping event without session id")
		return fmt.Errorf("%w: missing session id", domain.ErrTransport)
	}

	ctx = logging.WithSessID(ctx, ev.SessionID)
	ctx = logging.WithEventID(ctx, ulid.Make().String())
	logger := logging.With(ctx, d.log)
	metrics.IncDialogEvent(string(ev.Kind))

	token, err := d.locker.Lock(ctx, ev.SessionID)
	if err != nil {
		// A wait cut short by ctx is contention, not a store outage.
		if errors.Is(err, domain.ErrSessionBusy) {
			d.lockBusy.Add(1)
		} else {
			d.persistenceFailures.Add(1)
		}
		return fmt.Errorf("acquire session lock: %w", err)
	}
	defer func() {
		if uerr := d.locker.Unlock(ctx, ev.SessionID, token); uerr != nil {
			logger.Warn().Err(uerr).Msg("session unlock failed")
		}
	}()

	current, err := d.load(ctx, ev)
	if err != nil {
		d.persistenceFailures.Add(1)
		return err
	}

	_, outcome, err := d.engine.Process(ctx, current, ev)
	if err != nil {
		if failureKind(err) == "persistence" {
			d.persistenceFailures.Add(1)
		} else {
			d.commerceFailures.Add(1)
		}
		return err
	}
	if outcome == OutcomeMismatch {
		d.mismatches.Add(1)
	}
	d.processed.Add(1)
	return nil
}

// load returns the record the engine should start from. The restart command
// forces the initial state without touching the store; an absent record is
// equivalent to the initial state.
func (d *Dispatcher) load(ctx context.Context, ev model.Event) (*model.SessionState, error) {
	if ev.IsRestart() {
		return model.Initial(), nil
	}
	current, err := d.states.Get(ctx, ev.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.Initial(), nil
		}
		return nil, fmt.Errorf("load session state: %w", err)
	}
	return current, nil
}

// Snapshot returns the current counters.
func (d *Dispatcher) Snapshot() Stats {
	return Stats{
		Processed:           d.processed.Load(),
		Mismatches:          d.mismatches.Load(),
		CommerceFailures:    d.commerceFailures.Load(),
		PersistenceFailures: d.persistenceFailures.Load(),
		LockBusy:            d.lockBusy.Load(),
		Dropped:             d.dropped.Load(),
	}
}
