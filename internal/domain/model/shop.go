package model

// Product is one catalog entry as exposed by the commerce backend.
type Product struct {
	ID             string
	Name           string
	Description    string
	SKU            string
	FormattedPrice string // display price with tax, already formatted
}

// CartItem is one line in a cart.
type CartItem struct {
	ID             string // cart-item id, used for removal
	ProductID      string
	Name           string
	Quantity       int
	FormattedPrice string // formatted line total
}

// Cart holds the contents of one session's cart. The cart reference in the
// commerce backend is the session id itself.
type Cart struct {
	Items          []CartItem
	FormattedTotal string
}

// Customer is the record created at checkout.
type Customer struct {
	ID    string
	Name  string
	Email string
}
