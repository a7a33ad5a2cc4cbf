package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// DBPool is the subset of *pgxpool.Pool the store uses.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const (
	findOrdersSQL = `
		SELECT id
		FROM orders
		WHERE customer_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC, id ASC`

	findOrdersFromSQL = `
		SELECT id
		FROM orders
		WHERE customer_id = $1 AND status = ANY($2) AND created_at >= $3
		ORDER BY created_at ASC, id ASC`

	getOrderSQL = `
		SELECT id, customer_id, status, created_at
		FROM orders
		WHERE id = $1`

	listByCustomerSQL = `
		SELECT id, customer_id, status, created_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC`

	itemsSQL = `
		SELECT order_id, product_id, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id ASC, id ASC`

	insertOrderSQL = `
		INSERT INTO orders (customer_id, status, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	insertItemSQL = `
		INSERT INTO order_items (order_id, product_id, quantity)
		VALUES ($1, $2, $3)`
)

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.pool.Ping(ctx)
	})
}

func (s *PostgresStore) FindOrders(ctx context.Context, q Query) ([]int64, error) {
	var ids []int64

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var (
			rows pgx.Rows
			err  error
		)
		if q.CreatedFrom.IsZero() {
			rows, err = s.pool.Query(ctx, findOrdersSQL, q.CustomerID, statusStrings(q.Statuses))
		} else {
			rows, err = s.pool.Query(ctx, findOrdersFromSQL, q.CustomerID, statusStrings(q.Statuses), q.CreatedFrom.UTC())
		}
		if err != nil {
			return fmt.Errorf("select orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan order id: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (Order, bool, error) {
	var (
		o     Order
		found bool
	)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var status string
		err := s.pool.QueryRow(ctx, getOrderSQL, id).
			Scan(&o.ID, &o.CustomerID, &status, &o.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select order: %w", err)
		}
		o.Status = Status(status)
		found = true

		items, err := s.loadItems(ctx, []int64{o.ID})
		if err != nil {
			return err
		}
		o.Items = items[o.ID]
		return nil
	})
	if err != nil {
		return Order{}, false, err
	}
	if !found {
		return Order{}, false, nil
	}
	return o, true, nil
}

func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	var out []Order

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, listByCustomerSQL, customerID)
		if err != nil {
			return fmt.Errorf("select orders: %w", err)
		}

		out = make([]Order, 0, 8)
		for rows.Next() {
			var (
				o      Order
				status string
			)
			if err := rows.Scan(&o.ID, &o.CustomerID, &status, &o.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan order: %w", err)
			}
			o.Status = Status(status)
			out = append(out, o)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows: %w", err)
		}
		if len(out) == 0 {
			return nil
		}

		ids := make([]int64, len(out))
		for i := range out {
			ids[i] = out[i].ID
		}
		items, err := s.loadItems(ctx, ids)
		if err != nil {
			return err
		}
		for i := range out {
			out[i].Items = items[out[i].ID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := s.pool.Query(ctx, itemsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Item, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Create(ctx context.Context, o Order) (Order, error) {
	if err := validateNew(o); err != nil {
		return Order{}, err
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := tx.QueryRow(ctx, insertOrderSQL, o.CustomerID, string(o.Status), o.CreatedAt).Scan(&o.ID); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range o.Items {
			if _, err := tx.Exec(ctx, insertItemSQL, o.ID, it.ProductID, it.Quantity); err != nil {
				return fmt.Errorf("insert order_item: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
