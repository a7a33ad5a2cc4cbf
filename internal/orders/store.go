package orders

import (
	"context"
	"errors"
)

var (
	ErrNoItems     = errors.New("order has no items")
	ErrNoCustomer  = errors.New("order has no customer")
	ErrBadQuantity = errors.New("order item quantity must be positive")
)

type Store interface {
	// FindOrders returns matching order ids, oldest first.
	FindOrders(ctx context.Context, q Query) ([]int64, error)
	GetOrder(ctx context.Context, id int64) (Order, bool, error)
	Create(ctx context.Context, o Order) (Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	Ping(ctx context.Context) error
}

func validateNew(o Order) error {
	if o.CustomerID == 0 {
		return ErrNoCustomer
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			return ErrBadQuantity
		}
	}
	return nil
}
