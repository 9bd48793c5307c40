package model

// EventKind distinguishes the two inbound event variants.
type EventKind string

const (
	// EventCommand is typed free text (commands and checkout email input).
	EventCommand EventKind = "command"
	// EventSelection is an inline-button choice from a rendered view.
	EventSelection EventKind = "selection"
)

// SelectionKind tags an already-validated callback payload. Parsing the raw
// callback string into one of these happens at the transport boundary, never
// inside the dialog engine.
type SelectionKind string

const (
	SelectProduct  SelectionKind = "product"
	SelectAddItem  SelectionKind = "add_item"
	SelectCart     SelectionKind = "cart"
	SelectBack     SelectionKind = "back"
	SelectCheckout SelectionKind = "checkout"
	SelectRemove   SelectionKind = "remove"
	// SelectUnknown marks a callback payload the transport could not parse.
	// The engine treats it as a protocol mismatch in every state.
	SelectUnknown SelectionKind = "unknown"
)

// Selection carries the structured fields of one button press.
type Selection struct {
	Kind      SelectionKind
	ProductID string // SelectProduct, SelectAddItem
	Quantity  int    // SelectAddItem
	ItemID    string // SelectRemove
}

// RestartCommand resets any conversation back to the catalog.
const RestartCommand = "/start"

// Event is one inbound unit of user interaction.
type Event struct {
	SessionID string
	Kind      EventKind

	Text      string    // EventCommand payload
	Selection Selection // EventSelection payload

	// DisplayName is the sender's visible name, used when creating the
	// customer record at checkout.
	DisplayName string
}

// IsRestart reports whether the event is the explicit restart command.
func (e Event) IsRestart() bool {
	return e.Kind == EventCommand && e.Text == RestartCommand
}
