// Package duplicate finds cart products that the shopper already has in an
// open order or in a recently completed one.
package duplicate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"OrderNotify/internal/cart"
	"OrderNotify/internal/orders"
)

const (
	DefaultLookbackMonths = 3

	scanOpen      = "open"
	scanCompleted = "completed"
)

// DefaultOpenStatuses are the statuses of orders that are still in flight.
func DefaultOpenStatuses() []orders.Status {
	return []orders.Status{orders.StatusPending, orders.StatusOnHold, orders.StatusProcessing}
}

// OrderFinder is the part of the order store the checker reads.
type OrderFinder interface {
	FindOrders(ctx context.Context, q orders.Query) ([]int64, error)
	GetOrder(ctx context.Context, id int64) (orders.Order, bool, error)
}

type Config struct {
	// BaseURL prefixes the view-order links in matches.
	BaseURL        string
	OpenStatuses   []orders.Status
	LookbackMonths int

	Log     *zap.Logger
	Metrics *Metrics
	Now     func() time.Time
}

type Checker struct {
	orders       OrderFinder
	baseURL      string
	openStatuses []orders.Status
	lookback     int
	log          *zap.Logger
	metrics      *Metrics
	now          func() time.Time
}

func NewChecker(store OrderFinder, cfg Config) *Checker {
	c := &Checker{
		orders:       store,
		baseURL:      cfg.BaseURL,
		openStatuses: cfg.OpenStatuses,
		lookback:     cfg.LookbackMonths,
		log:          cfg.Log,
		metrics:      cfg.Metrics,
		now:          cfg.Now,
	}
	if len(c.openStatuses) == 0 {
		c.openStatuses = DefaultOpenStatuses()
	}
	if c.lookback <= 0 {
		c.lookback = DefaultLookbackMonths
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Cutoff is the earliest creation time of a completed order that still
// counts. Orders created exactly at the cutoff are included.
func (c *Checker) Cutoff() time.Time {
	return c.now().AddDate(0, -c.lookback, 0)
}

// CheckDuplicates returns, for every cart product the user already ordered,
// the matching open orders followed by the matching recent completed orders.
// Store failures are logged and never returned; a failed scan contributes
// nothing.
func (c *Checker) CheckDuplicates(ctx context.Context, userID int64, items []cart.Item) Set {
	if userID <= 0 || len(items) == 0 {
		c.metrics.check(resultSkipped)
		return Set{}
	}

	ids := cart.ProductIDs(items)
	if len(ids) == 0 {
		c.metrics.check(resultSkipped)
		return Set{}
	}

	candidates := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		candidates[id] = struct{}{}
	}

	open := c.scan(ctx, scanOpen, orders.Query{
		CustomerID: userID,
		Statuses:   c.openStatuses,
	}, candidates)

	recent := c.scan(ctx, scanCompleted, orders.Query{
		CustomerID:  userID,
		Statuses:    []orders.Status{orders.StatusCompleted},
		CreatedFrom: c.Cutoff(),
	}, candidates)

	out := merge(open, recent)
	if out.Empty() {
		c.metrics.check(resultEmpty)
	} else {
		c.metrics.check(resultFound)
	}
	return out
}

func (c *Checker) scan(ctx context.Context, name string, q orders.Query, candidates map[int64]struct{}) Set {
	found, err := c.collect(ctx, q, candidates)
	if err != nil {
		c.metrics.scanFailed(name)
		c.log.Warn("duplicate scan failed",
			zap.String("scan", name),
			zap.Int64("customer_id", q.CustomerID),
			zap.Error(err),
		)
		return Set{}
	}
	return found
}

func (c *Checker) collect(ctx context.Context, q orders.Query, candidates map[int64]struct{}) (Set, error) {
	ids, err := c.orders.FindOrders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}

	out := Set{}
	for _, id := range ids {
		o, ok, err := c.orders.GetOrder(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get order %d: %w", id, err)
		}
		if !ok {
			continue
		}

		for _, it := range o.Items {
			if _, hit := candidates[it.ProductID]; !hit {
				continue
			}
			out.add(it.ProductID, Match{
				OrderID:  o.ID,
				OrderURL: orders.ViewOrderURL(c.baseURL, o.ID),
				Status:   string(o.Status),
			})
		}
	}
	return out, nil
}
