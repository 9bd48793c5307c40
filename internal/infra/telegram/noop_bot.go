package telegram

import (
	"context"
	"fmt"
	"io"

	"telegram-shop-bot/internal/domain/model"
	"telegram-shop-bot/internal/domain/ports/adapter"
)

var _ adapter.Presenter = (*NoopBot)(nil)

// NoopBot is a Presenter that writes every render call to an io.Writer
// instead of Telegram. Used by the demo binary and handy in dev mode.
type NoopBot struct {
	Out io.Writer
}

func NewNoopBot(out io.Writer) *NoopBot { return &NoopBot{Out: out} }

func (n *NoopBot) RenderMenu(_ context.Context, sessionID string, products []model.Product) error {
	fmt.Fprintf(n.Out, "[%s] menu (%d products):\n", sessionID, len(products))
	for _, p := range products {
		fmt.Fprintf(n.Out, "  - %s %s\n", p.Name, p.FormattedPrice)
	}
	return nil
}

func (n *NoopBot) RenderProduct(_ context.Context, sessionID string, product *model.Product, imageURL string) error {
	fmt.Fprintf(n.Out, "[%s] product card: %s %s image=%s\n", sessionID, product.Name, product.FormattedPrice, imageURL)
	return nil
}

func (n *NoopBot) RenderCart(_ context.Context, sessionID string, cart *model.Cart) error {
	fmt.Fprintf(n.Out, "[%s] cart (%d items, total %s)\n", sessionID, len(cart.Items), cart.FormattedTotal)
	return nil
}

func (n *NoopBot) RenderEmailPrompt(_ context.Context, sessionID string) error {
	fmt.Fprintf(n.Out, "[%s] prompt: email?\n", sessionID)
	return nil
}

func (n *NoopBot) NotifyFailure(_ context.Context, sessionID string) error {
	fmt.Fprintf(n.Out, "[%s] failure notice\n", sessionID)
	return nil
}
