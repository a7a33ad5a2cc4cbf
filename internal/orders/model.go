package orders

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusOnHold     Status = "on-hold"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
)

var ErrUnknownStatus = errors.New("unknown order status")

var knownStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusOnHold:     {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusRefunded:   {},
	StatusFailed:     {},
}

// ParseStatus accepts the storefront spelling, with or without the "wc-"
// prefix used by some exports.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "wc-"))
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func ParseStatuses(in []string) ([]Status, error) {
	out := make([]Status, 0, len(in))
	for _, s := range in {
		st, err := ParseStatus(s)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Order struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Status     Status    `json:"status"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

// Query selects a customer's orders. A zero CreatedFrom means no lower bound;
// otherwise orders created at or after it match.
type Query struct {
	CustomerID  int64
	Statuses    []Status
	CreatedFrom time.Time
}

func (q Query) matches(o Order) bool {
	if o.CustomerID != q.CustomerID {
		return false
	}
	if !q.CreatedFrom.IsZero() && o.CreatedAt.Before(q.CreatedFrom) {
		return false
	}
	for _, st := range q.Statuses {
		if o.Status == st {
			return true
		}
	}
	return false
}

func statusStrings(sts []Status) []string {
	out := make([]string, len(sts))
	for i, st := range sts {
		out[i] = string(st)
	}
	return out
}

// ViewOrderURL is the shopper-facing page for one order.
func ViewOrderURL(baseURL string, id int64) string {
	return strings.TrimRight(baseURL, "/") + "/my-account/view-order/" + strconv.FormatInt(id, 10) + "/"
}
