package duplicate

import "sort"

// Match is one earlier order that already contains a cart product.
type Match struct {
	OrderID  int64  `json:"order_id"`
	OrderURL string `json:"order_url"`
	Status   string `json:"status"`
}

// Set maps a cart product id to the orders that already contain it, in the
// order they were found.
type Set map[int64][]Match

func (s Set) Empty() bool { return len(s) == 0 }

// ProductIDs returns the keys in ascending order.
func (s Set) ProductIDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OrderIDs returns every referenced order once, ascending.
func (s Set) OrderIDs() []int64 {
	seen := make(map[int64]struct{})
	for _, ms := range s {
		for _, m := range ms {
			seen[m.OrderID] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s Set) add(productID int64, m Match) {
	s[productID] = append(s[productID], m)
}

// merge concatenates per product, a's matches first. Matches present in both
// are kept twice.
func merge(a, b Set) Set {
	out := make(Set, len(a)+len(b))
	for id, ms := range a {
		out[id] = append(out[id], ms...)
	}
	for id, ms := range b {
		out[id] = append(out[id], ms...)
	}
	return out
}
