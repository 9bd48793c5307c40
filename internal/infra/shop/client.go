package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"telegram-shop-bot/internal/config"
	"telegram-shop-bot/internal/domain/model"
	"telegram-shop-bot/internal/domain/ports/adapter"
	"telegram-shop-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// APIError is the typed failure of one commerce backend call.
type APIError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shop %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("shop %s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

var _ adapter.ShopClient = (*Client)(nil)

// Client talks to a Moltin-style commerce backend over direct HTTP calls.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
	log      *zerolog.Logger

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
}

func NewClient(cfg config.ShopConfig, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		clientID: cfg.ClientID,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      logger,
	}
}

// doJSON performs one authorized call and decodes the response into out
// (when out is non-nil). Any non-2xx status or undecodable payload becomes a
// typed *APIError.
func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, out interface{}) error {
	start := time.Now()
	err := c.doJSONOnce(ctx, op, method, path, payload, out)
	metrics.ObserveShopCall(op, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("shop call failed")
	}
	return err
}

func (c *Client) doJSONOnce(ctx context.Context, op, method, path string, payload, out interface{}) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// ---- wire shapes ----

type productData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
	Meta        struct {
		DisplayPrice struct {
			WithTax struct {
				Formatted string `json:"formatted"`
			} `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
	Relationships struct {
		MainImage struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"main_image"`
	} `json:"relationships"`
}

func (p *productData) toModel() model.Product {
	return model.Product{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		SKU:            p.SKU,
		FormattedPrice: p.Meta.DisplayPrice.WithTax.Formatted,
	}
}

type cartItemData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Meta      struct {
		DisplayPrice struct {
			WithTax struct {
				Value struct {
					Formatted string `json:"formatted"`
				} `json:"value"`
			} `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
}

type cartMeta struct {
	DisplayPrice struct {
		WithTax struct {
			Formatted string `json:"formatted"`
		} `json:"with_tax"`
	} `json:"display_price"`
}

// ---- operations ----

func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var resp struct {
		Data []productData `json:"data"`
	}
	if err := c.doJSON(ctx, "list_products", http.MethodGet, "/v2/products", nil, &resp); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(resp.Data))
	for i := range resp.Data {
		products = append(products, resp.Data[i].toModel())
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	var resp struct {
		Data productData `json:"data"`
	}
	if err := c.doJSON(ctx, "get_product", http.MethodGet, "/v2/products/"+productID, nil, &resp); err != nil {
		return nil, err
	}
	p := resp.Data.toModel()
	return &p, nil
}

func (c *Client) GetProductImageURL(ctx context.Context, productID string) (string, error) {
	var prod struct {
		Data productData `json:"data"`
	}
	if err := c.doJSON(ctx, "get_product_image", http.MethodGet, "/v2/products/"+productID, nil, &prod); err != nil {
		return "", err
	}
	fileID := prod.Data.Relationships.MainImage.Data.ID
	if fileID == "" {
		return "", &APIError{Op: "get_product_image", Body: "product has no main image"}
	}

	var file struct {
		Data struct {
			Link struct {
				Href string `json:"href"`
			} `json:"link"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "get_product_image", http.MethodGet, "/v2/files/"+fileID, nil, &file); err != nil {
		return "", err
	}
	return file.Data.Link.Href, nil
}

// GetOrCreateCart fetches the session's cart; the backend creates an empty
// cart on first touch of an unknown reference.
func (c *Client) GetOrCreateCart(ctx context.Context, cartRef string) (*model.Cart, error) {
	var resp struct {
		Data struct {
			Meta cartMeta `json:"meta"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "get_cart", http.MethodGet, "/v2/carts/"+cartRef, nil, &resp); err != nil {
		return nil, err
	}
	return &model.Cart{FormattedTotal: resp.Data.Meta.DisplayPrice.WithTax.Formatted}, nil
}

func (c *Client) GetCartContents(ctx context.Context, cartRef string) (*model.Cart, error) {
	var resp struct {
		Data []cartItemData `json:"data"`
		Meta cartMeta       `json:"meta"`
	}
	if err := c.doJSON(ctx, "get_cart_items", http.MethodGet, "/v2/carts/"+cartRef+"/items", nil, &resp); err != nil {
		return nil, err
	}
	cart := &model.Cart{FormattedTotal: resp.Meta.DisplayPrice.WithTax.Formatted}
	for _, it := range resp.Data {
		cart.Items = append(cart.Items, model.CartItem{
			ID:             it.ID,
			ProductID:      it.ProductID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			FormattedPrice: it.Meta.DisplayPrice.WithTax.Value.Formatted,
		})
	}
	return cart, nil
}

func (c *Client) AddCartItem(ctx context.Context, cartRef, productID string, quantity int) error {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"id":       productID,
			"type":     "cart_item",
			"quantity": quantity,
		},
	}
	return c.doJSON(ctx, "add_cart_item", http.MethodPost, "/v2/carts/"+cartRef+"/items", payload, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, cartRef, itemID string) error {
	return c.doJSON(ctx, "remove_cart_item", http.MethodDelete, "/v2/carts/"+cartRef+"/items/"+itemID, nil, nil)
}

func (c *Client) CreateCustomer(ctx context.Context, name, email string) (*model.Customer, error) {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type":  "customer",
			"name":  name,
			"email": email,
		},
	}
	var resp struct {
		Data struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "create_customer", http.MethodPost, "/v2/customers", payload, &resp); err != nil {
		return nil, err
	}
	return &model.Customer{ID: resp.Data.ID, Name: resp.Data.Name, Email: resp.Data.Email}, nil
}
