// Package dialog holds the per-session state machine that turns inbound chat
// events into commerce operations and the next conversational state.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"telegram-shop-bot/internal/domain"
	"telegram-shop-bot/internal/domain/model"
	"telegram-shop-bot/internal/domain/ports/adapter"
	"telegram-shop-bot/internal/domain/ports/repository"
	"telegram-shop-bot/internal/infra/logging"
	"telegram-shop-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Engine is the dialog state machine. Given the session's current persisted
// record and one event it runs exactly one transition: optional commerce and
// presentation calls, then a single save of the next record. A failed
// commerce call aborts the transition and leaves the stored record untouched.
type Engine struct {
	shop      adapter.ShopClient
	presenter adapter.Presenter
	states    repository.SessionStateRepository
	log       *zerolog.Logger
	dev       bool
}

func NewEngine(
	shop adapter.ShopClient,
	presenter adapter.Presenter,
	states repository.SessionStateRepository,
	logger *zerolog.Logger,
	dev bool,
) *Engine {
	return &Engine{shop: shop, presenter: presenter, states: states, log: logger, dev: dev}
}

// Outcome makes the result of one transition an explicit value instead of a
// side effect of error handling.
type Outcome int

const (
	// OutcomeTransition means the event was handled and the next state
	// persisted (possibly equal to the previous one, e.g. repeated adds).
	OutcomeTransition Outcome = iota
	// OutcomeMismatch means the event was not valid input for the current
	// state; the view was re-rendered and the state re-persisted unchanged.
	OutcomeMismatch
	// OutcomeAborted means a side effect failed mid-transition; the stored
	// record was left exactly as it was before the event.
	OutcomeAborted
)

// mismatch marks a handler outcome as "event invalid in this state".
func mismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrProtocolMismatch, fmt.Sprintf(format, args...))
}

// Process runs one transition and persists its outcome. The returned record
// is what is now stored for the session; on OutcomeAborted the previous
// record is still in place and is returned unchanged.
func (e *Engine) Process(ctx context.Context, current *model.SessionState, ev model.Event) (*model.SessionState, Outcome, error) {
	if current == nil {
		current = model.Initial()
	}
	logger := logging.With(ctx, e.log)
	outcome := OutcomeTransition

	next, err := e.handle(ctx, current, ev)
	switch {
	case err == nil:
		// handled below
	case errors.Is(err, domain.ErrProtocolMismatch):
		metrics.IncMismatch(string(current.State))
		logger.Warn().
			Str("state", string(current.State)).
			Str("event_kind", string(ev.Kind)).
			Err(err).
			Msg("protocol mismatch, staying in state")
		// No-op transition: re-render the current view and keep the state.
		if rerr := e.renderFor(ctx, current, ev); rerr != nil {
			logger.Warn().Err(rerr).Msg("mismatch re-render failed")
			_ = e.presenter.NotifyFailure(ctx, ev.SessionID)
		}
		next = current
		outcome = OutcomeMismatch
	default:
		kind := failureKind(err)
		metrics.IncDialogFailure(kind)
		logger.Error().Str("state", string(current.State)).Err(err).Msg("transition aborted")
		if kind == "commerce" {
			_ = e.presenter.NotifyFailure(ctx, ev.SessionID)
		}
		return current, OutcomeAborted, err
	}

	if serr := e.states.Set(ctx, ev.SessionID, next); serr != nil {
		metrics.IncDialogFailure("persistence")
		logger.Error().Err(serr).Msg("saving next state failed")
		return current, OutcomeAborted, serr
	}
	metrics.IncTransition(string(current.State), string(next.State))
	logger.Debug().
		Str("from", string(current.State)).
		Str("to", string(next.State)).
		Msg("transition committed")
	return next, outcome, nil
}

func (e *Engine) handle(ctx context.Context, current *model.SessionState, ev model.Event) (*model.SessionState, error) {
	// The restart command wins in every state.
	if ev.IsRestart() {
		return e.handleRestart(ctx, ev)
	}
	switch current.State {
	case model.StateStart:
		return e.handleStart(ctx, ev)
	case model.StateMenu:
		return e.handleMenu(ctx, ev)
	case model.StateDescription:
		return e.handleDescription(ctx, current, ev)
	case model.StateCart:
		return e.handleCart(ctx, ev)
	case model.StateWaitingEmail:
		return e.handleWaitingEmail(ctx, ev)
	default:
		// The store guards the enumeration; reaching this means a bug.
		return nil, fmt.Errorf("%w: unhandled state %q", domain.ErrInvalidArgument, current.State)
	}
}

// handleRestart ensures the session's cart exists and shows the catalog.
func (e *Engine) handleRestart(ctx context.Context, ev model.Event) (*model.SessionState, error) {
	if _, err := e.shop.GetOrCreateCart(ctx, ev.SessionID); err != nil {
		return nil, err
	}
	if err := e.showMenu(ctx, ev.SessionID); err != nil {
		return nil, err
	}
	return &model.SessionState{State: model.StateMenu}, nil
}

// handleStart covers a non-restart event arriving before any menu was shown:
// invalid in this state, so fall back to showing the catalog.
func (e *Engine) handleStart(ctx context.Context, ev model.Event) (*model.SessionState, error) {
	logging.With(ctx, e.log).Debug().
		Str("event_kind", string(ev.Kind)).
		Msg("event before first menu, falling back to catalog")
	if err := e.showMenu(ctx, ev.SessionID); err != nil {
		return nil, err
	}
	return &model.SessionState{State: model.StateMenu}, nil
}

func (e *Engine) handleMenu(ctx context.Context, ev model.Event) (*model.SessionState, error) {
	if ev.Kind != model.EventSelection {
		return nil, mismatch("free text while catalog is shown")
	}
	switch ev.Selection.Kind {
	case model.SelectCart:
		if err := e.showCart(ctx, ev.SessionID); err != nil {
			return nil, err
		}
		return &model.SessionState{State: model.StateCart}, nil
	case model.SelectProduct:
		if err := e.showProduct(ctx, ev.SessionID, ev.Selection.ProductID); err != nil {
			return nil, err
		}
		return &model.SessionState{State: model.StateDescription, ProductID: ev.Selection.ProductID}, nil
	default:
		return nil, mismatch("selection %q in menu", ev.Selection.Kind)
	}
}

func (e *Engine) handleDescription(ctx context.Context, current *model.SessionState, ev model.Event) (*model.SessionState, error) {
	if ev.Kind != model.EventSelection {
		return nil, mismatch("free text while product card is shown")
	}
	switch ev.Selection.Kind {
	case model.SelectBack:
		if err := e.showMenu(ctx, ev.SessionID); err != nil {
			return nil, err
		}
		return &model.SessionState{State: model.StateMenu}, nil
	case model.SelectCart:
		if err := e.showCart(ctx, ev.SessionID); err != nil {
			return nil, err
		}
		return &model.SessionState{State: model.StateCart}, nil
	case model.SelectAddItem:
		if ev.Selection.ProductID == "" || ev.Selection.Quantity <= 0 {
			return nil, mismatch("add-to-cart with empty product or non-positive quantity")
		}
		if err := e.shop.AddCartItem(ctx, ev.SessionID, ev.Selection.ProductID, ev.Selection.Quantity); err != nil {
			return nil, err
		}
		// Stay on the card so the user can add more.
		return &model.SessionState{State: model.StateDescription, ProductID: current.ProductID}, nil
	default:
		return nil, mismatch("selection %q on product card", ev.Selection.Kind)
	}
}

func (e *Engine) handleCart(ctx context.Context, ev model.Event) (*model.SessionState, error) {
	if ev.Kind != model.EventSelection {
		return nil, mismatch("free text while cart is shown")
	}
	switch ev.Selection.Kind {
	case model.SelectBack:
		if err := e.showMenu(ctx, ev.SessionID); err != nil {
			return nil, err
		}
		return &model.SessionState{State: model.StateMenu}, nil
	case model.SelectCheckout:
		if err := e.presenter.RenderEmailPrompt(ctx, ev.SessionID); err != nil {
			logging.With(ctx, e.log).Warn().Err(err).Msg("render email prompt failed")
		}
		return &model.SessionState{State: model.StateWaitingEmail}, nil
	case model.SelectRemove:
		if ev.Selection.ItemID == "" {
			return nil, mismatch("remove with empty item id")
		}
		if err := e.shop.RemoveCartItem(ctx, ev.SessionID, ev.Selection.ItemID); err != nil {
			return nil, err
		}
		if err := e.showCart(ctx, ev.SessionID); err != nil {
			return nil, err
		}
		return &model.SessionState{State: model.StateCart}, nil
	default:
		return nil, mismatch("selection %q in cart", ev.Selection.Kind)
	}
}

func (e *Engine) handleWaitingEmail(ctx context.Context, ev model.Event) (*model.SessionState, error) {
	if ev.Kind != model.EventCommand {
		return nil, mismatch("button press while waiting for email")
	}
	email := ev.Text
	if !emailPattern.MatchString(email) {
		return nil, mismatch("text %q is not an email address", logging.Redact(email, e.dev))
	}
	if _, err := e.shop.CreateCustomer(ctx, ev.DisplayName, email); err != nil {
		return nil, err
	}
	logging.With(ctx, e.log).Info().
		Str("email", logging.Redact(email, e.dev)).
		Msg("customer created, checkout complete")
	if err := e.showMenu(ctx, ev.SessionID); err != nil {
		return nil, err
	}
	return &model.SessionState{State: model.StateMenu}, nil
}

// ---- view helpers ----

func (e *Engine) showMenu(ctx context.Context, sessionID string) error {
	products, err := e.shop.ListProducts(ctx)
	if err != nil {
		return err
	}
	if err := e.presenter.RenderMenu(ctx, sessionID, products); err != nil {
		logging.With(ctx, e.log).Warn().Err(err).Msg("render menu failed")
	}
	return nil
}

func (e *Engine) showCart(ctx context.Context, sessionID string) error {
	cart, err := e.shop.GetCartContents(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := e.presenter.RenderCart(ctx, sessionID, cart); err != nil {
		logging.With(ctx, e.log).Warn().Err(err).Msg("render cart failed")
	}
	return nil
}

func (e *Engine) showProduct(ctx context.Context, sessionID, productID string) error {
	product, err := e.shop.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	imageURL, err := e.shop.GetProductImageURL(ctx, productID)
	if err != nil {
		return err
	}
	if err := e.presenter.RenderProduct(ctx, sessionID, product, imageURL); err != nil {
		logging.With(ctx, e.log).Warn().Err(err).Msg("render product failed")
	}
	return nil
}

// renderFor re-renders the view belonging to the session's current state
// after a protocol mismatch.
func (e *Engine) renderFor(ctx context.Context, current *model.SessionState, ev model.Event) error {
	switch current.State {
	case model.StateStart, model.StateMenu:
		return e.showMenu(ctx, ev.SessionID)
	case model.StateDescription:
		if current.ProductID == "" {
			return e.showMenu(ctx, ev.SessionID)
		}
		return e.showProduct(ctx, ev.SessionID, current.ProductID)
	case model.StateCart:
		return e.showCart(ctx, ev.SessionID)
	case model.StateWaitingEmail:
		return e.presenter.RenderEmailPrompt(ctx, ev.SessionID)
	}
	return nil
}

func failureKind(err error) string {
	if errors.Is(err, domain.ErrPersistence) {
		return "persistence"
	}
	return "commerce"
}
