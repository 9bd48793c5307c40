package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"telegram-shop-bot/internal/domain/model"
)

// Callback data formats rendered on inline keyboards. Parsing back into a
// tagged Selection happens here, at the transport boundary; the dialog engine
// only ever sees structured, validated fields.
const (
	cbCart     = "cart"
	cbBack     = "back"
	cbCheckout = "checkout"

	cbProductPrefix = "product:"
	cbAddPrefix     = "add:"
	cbRemovePrefix  = "rm:"
)

// EncodeSelection renders a Selection as callback data.
func EncodeSelection(sel model.Selection) string {
	switch sel.Kind {
	case model.SelectCart:
		return cbCart
	case model.SelectBack:
		return cbBack
	case model.SelectCheckout:
		return cbCheckout
	case model.SelectProduct:
		return cbProductPrefix + sel.ProductID
	case model.SelectAddItem:
		return fmt.Sprintf("%s%s:%d", cbAddPrefix, sel.ProductID, sel.Quantity)
	case model.SelectRemove:
		return cbRemovePrefix + sel.ItemID
	}
	return ""
}

// ParseSelection decodes callback data produced by EncodeSelection. Unknown
// or malformed payloads yield an error; the caller maps those to
// SelectUnknown so the engine applies its mismatch policy.
func ParseSelection(data string) (model.Selection, error) {
	switch data {
	case cbCart:
		return model.Selection{Kind: model.SelectCart}, nil
	case cbBack:
		return model.Selection{Kind: model.SelectBack}, nil
	case cbCheckout:
		return model.Selection{Kind: model.SelectCheckout}, nil
	}
	switch {
	case strings.HasPrefix(data, cbProductPrefix):
		id := strings.TrimPrefix(data, cbProductPrefix)
		if id == "" {
			return model.Selection{Kind: model.SelectUnknown}, fmt.Errorf("empty product id in %q", data)
		}
		return model.Selection{Kind: model.SelectProduct, ProductID: id}, nil
	case strings.HasPrefix(data, cbAddPrefix):
		rest := strings.TrimPrefix(data, cbAddPrefix)
		id, qtyStr, ok := strings.Cut(rest, ":")
		if !ok || id == "" {
			return model.Selection{Kind: model.SelectUnknown}, fmt.Errorf("malformed add payload %q", data)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty <= 0 {
			return model.Selection{Kind: model.SelectUnknown}, fmt.Errorf("bad quantity in %q", data)
		}
		return model.Selection{Kind: model.SelectAddItem, ProductID: id, Quantity: qty}, nil
	case strings.HasPrefix(data, cbRemovePrefix):
		id := strings.TrimPrefix(data, cbRemovePrefix)
		if id == "" {
			return model.Selection{Kind: model.SelectUnknown}, fmt.Errorf("empty item id in %q", data)
		}
		return model.Selection{Kind: model.SelectRemove, ItemID: id}, nil
	}
	return model.Selection{Kind: model.SelectUnknown}, fmt.Errorf("unknown callback payload %q", data)
}
