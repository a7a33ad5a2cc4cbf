// Package cart models the shopper's cart. Cart contents arrive in more than
// one shape, so items are a closed set of variants resolved in one place.
package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// MaxLineQuantity caps the quantity of one product in a cart.
const MaxLineQuantity = 999

var ErrNotArray = errors.New("cart must be a json array")

// Item is one of ProductRef, Line or Unknown.
type Item interface {
	isCartItem()
}

// ProductRef is a bare product id.
type ProductRef int64

// Line is a structured cart row.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Unknown keeps an entry whose shape was not recognised. It never
// contributes a product id.
type Unknown struct {
	Raw json.RawMessage
}

func (ProductRef) isCartItem() {}
func (Line) isCartItem()       {}
func (Unknown) isCartItem()    {}

// IDOf resolves the product an item refers to.
func IDOf(it Item) (int64, bool) {
	switch v := it.(type) {
	case ProductRef:
		return int64(v), v > 0
	case Line:
		return v.ProductID, v.ProductID > 0
	default:
		return 0, false
	}
}

// ProductIDs returns the distinct product ids referenced by items, in
// first-seen order.
func ProductIDs(items []Item) []int64 {
	seen := make(map[int64]struct{}, len(items))
	out := make([]int64, 0, len(items))
	for _, it := range items {
		id, ok := IDOf(it)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DecodeItems parses a JSON array whose elements are either integer product
// ids or objects carrying a product_id (number or numeric string) and an
// optional quantity. Anything else becomes Unknown.
func DecodeItems(data []byte) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrNotArray
	}

	out := make([]Item, 0, len(raw))
	for _, r := range raw {
		out = append(out, decodeItem(r))
	}
	return out, nil
}

func decodeItem(r json.RawMessage) Item {
	trimmed := bytes.TrimSpace(r)
	if len(trimmed) == 0 || isNull(trimmed) {
		return Unknown{Raw: r}
	}

	switch trimmed[0] {
	case '{':
		var obj struct {
			ProductID json.RawMessage `json:"product_id"`
			Quantity  *int            `json:"quantity"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil || obj.ProductID == nil || isNull(obj.ProductID) {
			return Unknown{Raw: r}
		}
		id, ok := parseID(obj.ProductID)
		if !ok {
			return Unknown{Raw: r}
		}
		qty := 1
		if obj.Quantity != nil && *obj.Quantity > 0 {
			qty = min(*obj.Quantity, MaxLineQuantity)
		}
		return Line{ProductID: id, Quantity: qty}
	default:
		var n int64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return Unknown{Raw: r}
		}
		return ProductRef(n)
	}
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

func parseID(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Lines normalises items into one line per product, summing quantities up
// to MaxLineQuantity. Bare refs count as quantity 1.
func Lines(items []Item) []Line {
	idx := make(map[int64]int, len(items))
	out := make([]Line, 0, len(items))
	for _, it := range items {
		id, ok := IDOf(it)
		if !ok {
			continue
		}
		qty := 1
		if l, isLine := it.(Line); isLine && l.Quantity > 0 {
			qty = min(l.Quantity, MaxLineQuantity)
		}
		if i, seen := idx[id]; seen {
			out[i].Quantity = addQuantity(out[i].Quantity, qty)
			continue
		}
		idx[id] = len(out)
		out = append(out, Line{ProductID: id, Quantity: qty})
	}
	return out
}

func addQuantity(a, b int) int {
	if b >= MaxLineQuantity-a {
		return MaxLineQuantity
	}
	return a + b
}
