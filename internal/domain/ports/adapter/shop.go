package adapter

import (
	"context"

	"telegram-shop-bot/internal/domain/model"
)

// ShopClient is the port to the commerce backend. Every call is synchronous
// and fails with a typed error on any non-success response; authentication is
// a precondition the implementation satisfies before each call.
type ShopClient interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	GetProductImageURL(ctx context.Context, productID string) (string, error)
	GetOrCreateCart(ctx context.Context, cartRef string) (*model.Cart, error)
	GetCartContents(ctx context.Context, cartRef string) (*model.Cart, error)
	AddCartItem(ctx context.Context, cartRef, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, cartRef, itemID string) error
	CreateCustomer(ctx context.Context, name, email string) (*model.Customer, error)
}
