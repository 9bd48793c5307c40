// Command demo runs one scripted storefront conversation against in-memory
// fakes, printing every rendered view and committed transition.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"telegram-shop-bot/internal/config"
	"telegram-shop-bot/internal/dialog"
	"telegram-shop-bot/internal/domain"
	"telegram-shop-bot/internal/domain/model"
	"telegram-shop-bot/internal/infra/logging"
	tele "telegram-shop-bot/internal/infra/telegram"
)

type memStateRepo struct {
	mu    sync.Mutex
	store map[string]model.SessionState
}

func (m *memStateRepo) Get(_ context.Context, id string) (*model.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *memStateRepo) Set(_ context.Context, id string, st *model.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[id] = *st
	return nil
}

type memLocker struct{ mu sync.Mutex }

func (l *memLocker) Lock(context.Context, string) (string, error) {
	l.mu.Lock()
	return "", nil
}

func (l *memLocker) Unlock(context.Context, string, string) error {
	l.mu.Unlock()
	return nil
}

type memShop struct {
	products []model.Product
	carts    map[string][]model.CartItem
}

func (s *memShop) ListProducts(context.Context) ([]model.Product, error) { return s.products, nil }

func (s *memShop) GetProduct(_ context.Context, id string) (*model.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memShop) GetProductImageURL(_ context.Context, id string) (string, error) {
	return "https://example.com/" + id + ".jpg", nil
}

func (s *memShop) GetOrCreateCart(_ context.Context, ref string) (*model.Cart, error) {
	if _, ok := s.carts[ref]; !ok {
		s.carts[ref] = nil
	}
	return &model.Cart{Items: s.carts[ref]}, nil
}

func (s *memShop) GetCartContents(_ context.Context, ref string) (*model.Cart, error) {
	return &model.Cart{Items: s.carts[ref], FormattedTotal: fmt.Sprintf("%d items", len(s.carts[ref]))}, nil
}

func (s *memShop) AddCartItem(_ context.Context, ref, productID string, qty int) error {
	s.carts[ref] = append(s.carts[ref], model.CartItem{
		ID: fmt.Sprintf("item-%d", len(s.carts[ref])+1), ProductID: productID, Quantity: qty,
	})
	return nil
}

func (s *memShop) RemoveCartItem(_ context.Context, ref, itemID string) error {
	items := s.carts[ref]
	for i, it := range items {
		if it.ID == itemID {
			s.carts[ref] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memShop) CreateCustomer(_ context.Context, name, email string) (*model.Customer, error) {
	return &model.Customer{ID: "cust-1", Name: name, Email: email}, nil
}

func main() {
	ctx := context.Background()
	logger := logging.New(config.LogConfig{Level: "debug", Format: "console"}, true)

	shop := &memShop{
		products: []model.Product{
			{ID: "p1", Name: "Карп", FormattedPrice: "100 ₽"},
			{ID: "p2", Name: "Окунь", FormattedPrice: "80 ₽"},
		},
		carts: map[string][]model.CartItem{},
	}
	states := &memStateRepo{store: map[string]model.SessionState{}}
	presenter := tele.NewNoopBot(os.Stdout)

	engine := dialog.NewEngine(shop, presenter, states, logger, true)
	disp := dialog.NewDispatcher(engine, states, &memLocker{}, logger)

	const session = "42"
	script := []model.Event{
		{SessionID: session, Kind: model.EventCommand, Text: model.RestartCommand, DisplayName: "Demo User"},
		{SessionID: session, Kind: model.EventSelection, Selection: model.Selection{Kind: model.SelectProduct, ProductID: "p1"}},
		{SessionID: session, Kind: model.EventSelection, Selection: model.Selection{Kind: model.SelectAddItem, ProductID: "p1", Quantity: 5}},
		{SessionID: session, Kind: model.EventSelection, Selection: model.Selection{Kind: model.SelectCart}},
		{SessionID: session, Kind: model.EventSelection, Selection: model.Selection{Kind: model.SelectCheckout}},
		{SessionID: session, Kind: model.EventCommand, Text: "demo@example.com", DisplayName: "Demo User"},
	}

	for _, ev := range script {
		if err := disp.Dispatch(ctx, ev); err != nil {
			logger.Error().Err(err).Msg("dispatch failed")
			os.Exit(1)
		}
		rec, _ := states.Get(ctx, session)
		fmt.Printf("-> state: %s\n\n", rec.State)
	}

	fmt.Printf("stats: %+v\n", disp.Snapshot())
}
