package model

import "time"

// State represents a point in the storefront conversation flow.
// The value is persisted between events; an absent value means StateStart.
type State string

const (
	// StateStart indicates no active menu has been shown yet.
	StateStart State = "start"
	// StateMenu indicates the catalog is displayed.
	StateMenu State = "menu"
	// StateDescription indicates a single product card is displayed.
	StateDescription State = "description"
	// StateCart indicates the cart contents are displayed.
	StateCart State = "cart"
	// StateWaitingEmail indicates checkout is in progress and the next
	// free-text message is interpreted as an email address.
	StateWaitingEmail State = "waiting_email"
)

// Valid reports whether s belongs to the enumerated state set.
// The session store must never hold a value for which this is false.
func (s State) Valid() bool {
	switch s {
	case StateStart, StateMenu, StateDescription, StateCart, StateWaitingEmail:
		return true
	}
	return false
}

// SessionState is the persisted record for one conversation. The session id
// doubles as the cart reference in the commerce backend, so the record only
// needs the dialog state plus the product the card view currently shows.
type SessionState struct {
	State State `json:"state"`
	// ProductID is set while State is StateDescription so the product card
	// can be re-rendered after a protocol mismatch. Empty in other states.
	ProductID string    `json:"product_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Initial is the implicit record for a session that was never stored.
func Initial() *SessionState {
	return &SessionState{State: StateStart}
}
