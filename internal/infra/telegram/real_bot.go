package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-shop-bot/internal/config"
	"telegram-shop-bot/internal/domain/model"
	"telegram-shop-bot/internal/domain/ports/adapter"
	"telegram-shop-bot/internal/infra/metrics"
	red "telegram-shop-bot/internal/infra/redis"
)

// quantityPresets are the fixed add-to-cart amounts offered on a product card.
var quantityPresets = []int{1, 5, 10}

// Dispatcher is what the bot delegates extracted events to.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.Event) error
}

// RateLimiter gates inbound events per session before any dialog work
// happens. An over-limit event is answered directly and never dispatched.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// botAPI is the slice of the Bot API client the bot actually uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

var (
	_ adapter.Presenter = (*RealBot)(nil)
	_ botAPI            = (*tgbotapi.BotAPI)(nil)
	_ RateLimiter       = (*red.RateLimiter)(nil)
)

// RealBot polls Telegram updates, converts them into dialog events and also
// implements the Presenter port, rendering views back into the chat.
type RealBot struct {
	api         botAPI
	cfg         *config.BotConfig
	rateLimiter RateLimiter
	log         *zerolog.Logger

	cancelPolling context.CancelFunc
}

// NewRealBot connects to the Bot API. The dispatcher is supplied to
// StartPolling, since the bot doubles as the Presenter and is constructed
// before the dialog engine.
func NewRealBot(cfg *config.BotConfig, rateLimiter RateLimiter, logger *zerolog.Logger) (*RealBot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &RealBot{
		api:         api,
		cfg:         cfg,
		rateLimiter: rateLimiter,
		log:         logger,
	}, nil
}

// StartPolling consumes the update channel with a pool of workers. Ordering
// per session is enforced downstream by the dispatcher's session lock, so
// workers can run freely in parallel.
func (b *RealBot) StartPolling(ctx context.Context, dispatcher Dispatcher) error {
	if dispatcher == nil {
		return errors.New("dispatcher is nil")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < b.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := b.handleUpdate(ctx, dispatcher, up); err != nil {
						b.log.Warn().Int("worker", id).Err(err).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (b *RealBot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *RealBot) handleUpdate(ctx context.Context, dispatcher Dispatcher, up tgbotapi.Update) error {
	ev, ok := b.extractEvent(up)
	if !ok {
		metrics.IncTelegramUpdate("other")
		return nil
	}

	if b.rateLimiter != nil {
		allowed, err := b.rateLimiter.Allow(ctx, red.SessionEventKey(ev.SessionID), b.cfg.RateLimit, b.cfg.RateWindow)
		if err != nil {
			b.log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return b.sendText(ev.SessionID, "Слишком много запросов. Подождите немного.")
		}
	}

	return dispatcher.Dispatch(ctx, ev)
}

// extractEvent maps a raw update onto the event model. Updates without an
// extractable chat id are dropped here, before they reach the dispatcher.
func (b *RealBot) extractEvent(up tgbotapi.Update) (model.Event, bool) {
	switch {
	case up.CallbackQuery != nil:
		metrics.IncTelegramUpdate("callback")
		cq := up.CallbackQuery
		if cq.Message == nil || cq.Message.Chat == nil {
			return model.Event{}, false
		}
		// Stop the client-side spinner regardless of what happens next.
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.log.Debug().Err(err).Msg("callback ack failed")
		}
		sel, err := ParseSelection(cq.Data)
		if err != nil {
			b.log.Warn().Err(err).Msg("unparseable callback payload")
		}
		return model.Event{
			SessionID:   strconv.FormatInt(cq.Message.Chat.ID, 10),
			Kind:        model.EventSelection,
			Selection:   sel,
			DisplayName: displayName(cq.From),
		}, true

	case up.Message != nil && up.Message.Text != "":
		metrics.IncTelegramUpdate("message")
		return model.Event{
			SessionID:   strconv.FormatInt(up.Message.Chat.ID, 10),
			Kind:        model.EventCommand,
			Text:        strings.TrimSpace(up.Message.Text),
			DisplayName: displayName(up.Message.From),
		}, true
	}
	return model.Event{}, false
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.UserName
	}
	return name
}

// ---- Presenter implementation ----

func chatID(sessionID string) (int64, error) {
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session id %q is not a chat id: %w", sessionID, err)
	}
	return id, nil
}

func (b *RealBot) RenderMenu(ctx context.Context, sessionID string, products []model.Product) error {
	id, err := chatID(sessionID)
	if err != nil {
		return err
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		data := EncodeSelection(model.Selection{Kind: model.SelectProduct, ProductID: p.ID})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Name, data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🛒 Корзина", EncodeSelection(model.Selection{Kind: model.SelectCart})),
	))

	msg := tgbotapi.NewMessage(id, "Выберите товар:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = b.api.Send(msg)
	return err
}

func (b *RealBot) RenderProduct(ctx context.Context, sessionID string, product *model.Product, imageURL string) error {
	id, err := chatID(sessionID)
	if err != nil {
		return err
	}

	qtyRow := make([]tgbotapi.InlineKeyboardButton, 0, len(quantityPresets))
	for _, q := range quantityPresets {
		data := EncodeSelection(model.Selection{Kind: model.SelectAddItem, ProductID: product.ID, Quantity: q})
		qtyRow = append(qtyRow, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d кг", q), data))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		qtyRow,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Корзина", EncodeSelection(model.Selection{Kind: model.SelectCart})),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Назад", EncodeSelection(model.Selection{Kind: model.SelectBack})),
		),
	)

	caption := strings.Join([]string{product.Name, product.FormattedPrice, product.Description}, "\n\n")
	if imageURL == "" {
		msg := tgbotapi.NewMessage(id, caption)
		msg.ReplyMarkup = markup
		_, err = b.api.Send(msg)
		return err
	}
	photo := tgbotapi.NewPhoto(id, tgbotapi.FileURL(imageURL))
	photo.Caption = caption
	photo.ReplyMarkup = markup
	_, err = b.api.Send(photo)
	return err
}

func (b *RealBot) RenderCart(ctx context.Context, sessionID string, cart *model.Cart) error {
	id, err := chatID(sessionID)
	if err != nil {
		return err
	}

	if len(cart.Items) == 0 {
		msg := tgbotapi.NewMessage(id, "Корзина пуста.")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("В меню", EncodeSelection(model.Selection{Kind: model.SelectBack})),
			),
		)
		_, err = b.api.Send(msg)
		return err
	}

	var sb strings.Builder
	for _, it := range cart.Items {
		fmt.Fprintf(&sb, "%s\n%d кг — %s\n\n", it.Name, it.Quantity, it.FormattedPrice)
	}
	fmt.Fprintf(&sb, "Итого: %s", cart.FormattedTotal)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cart.Items)+2)
	for _, it := range cart.Items {
		data := EncodeSelection(model.Selection{Kind: model.SelectRemove, ItemID: it.ID})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Убрать "+it.Name, data),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Оплатить", EncodeSelection(model.Selection{Kind: model.SelectCheckout})),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("В меню", EncodeSelection(model.Selection{Kind: model.SelectBack})),
		),
	)

	msg := tgbotapi.NewMessage(id, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = b.api.Send(msg)
	return err
}

func (b *RealBot) RenderEmailPrompt(ctx context.Context, sessionID string) error {
	return b.sendText(sessionID, "Пришлите, пожалуйста, ваш email:")
}

func (b *RealBot) NotifyFailure(ctx context.Context, sessionID string) error {
	return b.sendText(sessionID, "Что-то пошло не так. Попробуйте ещё раз позже.")
}

func (b *RealBot) sendText(sessionID, text string) error {
	id, err := chatID(sessionID)
	if err != nil {
		return err
	}
	_, err = b.api.Send(tgbotapi.NewMessage(id, text))
	return err
}
