package adapter

import (
	"context"

	"telegram-shop-bot/internal/domain/model"
)

// Presenter renders views back to the user. Each call is a one-way
// instruction: the dialog engine never receives data back through it, and a
// render failure does not abort a state transition.
type Presenter interface {
	RenderMenu(ctx context.Context, sessionID string, products []model.Product) error
	RenderProduct(ctx context.Context, sessionID string, product *model.Product, imageURL string) error
	RenderCart(ctx context.Context, sessionID string, cart *model.Cart) error
	RenderEmailPrompt(ctx context.Context, sessionID string) error
	// NotifyFailure delivers a generic failure notice after an aborted
	// transition.
	NotifyFailure(ctx context.Context, sessionID string) error
}
