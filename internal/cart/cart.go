package cart

import (
	"slices"

	"OrderNotify/internal/session"
)

const SessionKey = "order_notify_cart"

func Load(sc session.Scope) []Item {
	items, _ := session.Value[[]Item](sc, SessionKey)
	return slices.Clone(items)
}

func Save(sc session.Scope, items []Item) {
	if len(items) == 0 {
		sc.Unset(SessionKey)
		return
	}
	sc.Set(SessionKey, slices.Clone(items))
}

func Clear(sc session.Scope) {
	sc.Unset(SessionKey)
}

// Add merges qty into the existing entry for productID, or appends a line.
// The merged quantity never exceeds MaxLineQuantity.
func Add(sc session.Scope, productID int64, qty int) []Item {
	items := Load(sc)
	for i, it := range items {
		id, ok := IDOf(it)
		if !ok || id != productID {
			continue
		}
		switch v := it.(type) {
		case Line:
			v.Quantity = addQuantity(max(v.Quantity, 1), qty)
			items[i] = v
		default:
			items[i] = Line{ProductID: productID, Quantity: addQuantity(1, qty)}
		}
		Save(sc, items)
		return items
	}

	items = append(items, Line{ProductID: productID, Quantity: min(qty, MaxLineQuantity)})
	Save(sc, items)
	return items
}

// Remove drops every entry referring to productID.
func Remove(sc session.Scope, productID int64) []Item {
	items := slices.DeleteFunc(Load(sc), func(it Item) bool {
		id, ok := IDOf(it)
		return ok && id == productID
	})
	Save(sc, items)
	return items
}
