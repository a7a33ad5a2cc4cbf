package catalog

import "context"

type Product struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Reader resolves a product id. A product that does not exist is reported
// as found == false with a nil error.
type Reader interface {
	GetProduct(ctx context.Context, id int64) (Product, bool, error)
}

type Store interface {
	Reader
	List(ctx context.Context) ([]Product, error)
	Ping(ctx context.Context) error
}

// DemoProducts seeds the in-memory catalog.
func DemoProducts() []Product {
	return []Product{
		{ID: 42, Name: "Espresso Beans 1kg", PriceCents: 2490},
		{ID: 43, Name: "Burr Grinder", PriceCents: 12900},
		{ID: 99, Name: "Milk Frothing Jug", PriceCents: 1590},
	}
}
