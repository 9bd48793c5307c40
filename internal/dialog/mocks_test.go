//go:build !integration

package dialog_test

import (
	"context"
	"fmt"
	"sync"

	"telegram-shop-bot/internal/domain"
	"telegram-shop-bot/internal/domain/model"
)

// mockShop is a small in-memory commerce backend used by unit tests. Call
// counts and error hooks let tests assert exact side effects and inject
// failures mid-transition.
type mockShop struct {
	mu       sync.Mutex
	products []model.Product
	carts    map[string][]model.CartItem

	listCalls     int
	getCalls      int
	imageCalls    int
	cartCalls     int
	contentsCalls int
	addCalls      []addCall
	removeCalls   []removeCall
	customers     []model.Customer

	listErr     error
	getErr      error
	cartErr     error
	contentsErr error
	addErr      error
	removeErr   error
	customerErr error
}

type addCall struct {
	ref       string
	productID string
	qty       int
}

type removeCall struct {
	ref    string
	itemID string
}

func newMockShop() *mockShop {
	return &mockShop{
		products: []model.Product{
			{ID: "p1", Name: "Carp", FormattedPrice: "100", Description: "fresh"},
			{ID: "p2", Name: "Perch", FormattedPrice: "80", Description: "frozen"},
		},
		carts: make(map[string][]model.CartItem),
	}
}

func (m *mockShop) ListProducts(context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.products, nil
}

func (m *mockShop) GetProduct(_ context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.products {
		if m.products[i].ID == id {
			cp := m.products[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockShop) GetProductImageURL(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageCalls++
	return "https://img.test/" + id, nil
}

func (m *mockShop) GetOrCreateCart(_ context.Context, ref string) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cartCalls++
	if m.cartErr != nil {
		return nil, m.cartErr
	}
	if _, ok := m.carts[ref]; !ok {
		m.carts[ref] = nil
	}
	return &model.Cart{Items: m.carts[ref]}, nil
}

func (m *mockShop) GetCartContents(_ context.Context, ref string) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentsCalls++
	if m.contentsErr != nil {
		return nil, m.contentsErr
	}
	return &model.Cart{Items: m.carts[ref], FormattedTotal: "total"}, nil
}

func (m *mockShop) AddCartItem(_ context.Context, ref, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls = append(m.addCalls, addCall{ref: ref, productID: productID, qty: qty})
	if m.addErr != nil {
		return m.addErr
	}
	m.carts[ref] = append(m.carts[ref], model.CartItem{
		ID:        fmt.Sprintf("item-%d", len(m.carts[ref])+1),
		ProductID: productID,
		Quantity:  qty,
	})
	return nil
}

func (m *mockShop) RemoveCartItem(_ context.Context, ref, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalls = append(m.removeCalls, removeCall{ref: ref, itemID: itemID})
	if m.removeErr != nil {
		return m.removeErr
	}
	items := m.carts[ref]
	for i, it := range items {
		if it.ID == itemID {
			m.carts[ref] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockShop) CreateCustomer(_ context.Context, name, email string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.customerErr != nil {
		return nil, m.customerErr
	}
	c := model.Customer{ID: fmt.Sprintf("cust-%d", len(m.customers)+1), Name: name, Email: email}
	m.customers = append(m.customers, c)
	return &c, nil
}

// recordingPresenter records every render call in order.
type recordingPresenter struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPresenter) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *recordingPresenter) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return ""
	}
	return p.calls[len(p.calls)-1]
}

func (p *recordingPresenter) count(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (p *recordingPresenter) RenderMenu(_ context.Context, _ string, _ []model.Product) error {
	p.record("menu")
	return nil
}

func (p *recordingPresenter) RenderProduct(_ context.Context, _ string, _ *model.Product, _ string) error {
	p.record("product")
	return nil
}

func (p *recordingPresenter) RenderCart(_ context.Context, _ string, _ *model.Cart) error {
	p.record("cart")
	return nil
}

func (p *recordingPresenter) RenderEmailPrompt(_ context.Context, _ string) error {
	p.record("email_prompt")
	return nil
}

func (p *recordingPresenter) NotifyFailure(_ context.Context, _ string) error {
	p.record("failure")
	return nil
}

// memStateRepo is the in-memory session store. setErr simulates a
// persistence failure; every Set validates the enumeration invariant.
type memStateRepo struct {
	mu     sync.Mutex
	store  map[string]model.SessionState
	setErr error
	getErr error
	sets   int
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{store: make(map[string]model.SessionState)}
}

func (m *memStateRepo) Get(_ context.Context, id string) (*model.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := rec
	return &cp, nil
}

func (m *memStateRepo) Set(_ context.Context, id string, st *model.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, m.setErr)
	}
	if st == nil || !st.State.Valid() {
		return fmt.Errorf("%w: state outside enumeration", domain.ErrInvalidArgument)
	}
	m.store[id] = *st
	return nil
}

func (m *memStateRepo) stateOf(id string) model.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[id]
	if !ok {
		return ""
	}
	return rec.State
}

// keyedLocker serializes per key with real mutexes, mirroring the Redis
// locker's behavior for concurrency tests.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *keyedLocker) Lock(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return "", nil
}

func (l *keyedLocker) Unlock(_ context.Context, key, _ string) error {
	l.mu.Lock()
	m := l.locks[key]
	l.mu.Unlock()
	m.Unlock()
	return nil
}
