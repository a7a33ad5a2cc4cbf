// Package checkout guards order placement against accidental repeat
// purchases. A submission runs through Validate; a blocked submission leaves
// the duplicates in the shopper's session, where the checkout page picks them
// up to render the confirmation dialog.
package checkout

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"OrderNotify/internal/cart"
	"OrderNotify/internal/catalog"
	"OrderNotify/internal/duplicate"
	"OrderNotify/internal/events"
	"OrderNotify/internal/session"
)

const (
	// SessionKey holds the duplicate.Set of the last blocked attempt.
	SessionKey = "order_notify_duplicates"

	// IgnoreField is posted by the dialog's ignore action.
	IgnoreField = "order_notify_ignore"
	IgnoreValue = "yes"

	msgDetected = "Duplicate products detected in your order. Please review the notification."
	msgReview   = "Please review the duplicate order notification below."
)

type Outcome int

const (
	// OutcomeSkipped: guest shopper, nothing checked.
	OutcomeSkipped Outcome = iota
	// OutcomeIgnored: the shopper already saw the dialog and chose to proceed.
	OutcomeIgnored
	OutcomeAllowed
	OutcomeBlocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeAllowed:
		return "allowed"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

type NoticeKind string

const (
	NoticeInfo  NoticeKind = "notice"
	NoticeError NoticeKind = "error"
)

type Notice struct {
	Kind    NoticeKind `json:"type"`
	Message string     `json:"message"`
}

type Submission struct {
	// UserID is zero for guests.
	UserID           int64
	Cart             []cart.Item
	IgnoreDuplicates bool
}

type Result struct {
	Outcome    Outcome
	Duplicates duplicate.Set
	Notices    []Notice
}

// Blocking reports whether the submission must not be turned into an order.
func (r Result) Blocking() bool {
	for _, n := range r.Notices {
		if n.Kind == NoticeError {
			return true
		}
	}
	return false
}

type DuplicateChecker interface {
	CheckDuplicates(ctx context.Context, userID int64, items []cart.Item) duplicate.Set
}

// ProductSummary is one block of the confirmation dialog.
type ProductSummary struct {
	ProductID   int64             `json:"product_id"`
	ProductName string            `json:"product_name"`
	Orders      []duplicate.Match `json:"orders"`
}

type Handler struct {
	Checker DuplicateChecker
	Catalog catalog.Reader
	Events  events.Publisher
	Log     *zap.Logger
}

// Validate decides whether a checkout submission may proceed and keeps the
// session's stored duplicates in step with the decision.
func (h *Handler) Validate(ctx context.Context, sc session.Scope, sub Submission) Result {
	if sub.UserID <= 0 {
		return Result{Outcome: OutcomeSkipped}
	}

	if sub.IgnoreDuplicates {
		prev := StoredDuplicates(sc)
		sc.Unset(SessionKey)
		h.publish(ctx, events.New(events.TypeDuplicatesIgnored, sub.UserID, events.DuplicatesDetected{
			ProductIDs: prev.ProductIDs(),
			OrderIDs:   prev.OrderIDs(),
		}))
		return Result{Outcome: OutcomeIgnored}
	}

	dups := h.Checker.CheckDuplicates(ctx, sub.UserID, sub.Cart)
	if dups.Empty() {
		sc.Unset(SessionKey)
		return Result{Outcome: OutcomeAllowed}
	}

	sc.Set(SessionKey, dups)
	h.publish(ctx, events.New(events.TypeDuplicatesDetected, sub.UserID, events.DuplicatesDetected{
		ProductIDs: dups.ProductIDs(),
		OrderIDs:   dups.OrderIDs(),
	}))

	return Result{
		Outcome:    OutcomeBlocked,
		Duplicates: dups,
		Notices: []Notice{
			{Kind: NoticeInfo, Message: msgDetected},
			{Kind: NoticeError, Message: msgReview},
		},
	}
}

// StoredDuplicates returns the set left by the last blocked attempt, which
// may be stale relative to the current cart.
func StoredDuplicates(sc session.Scope) duplicate.Set {
	dups, _ := session.Value[duplicate.Set](sc, SessionKey)
	return dups
}

// DialogPayload resolves the stored duplicates into dialog blocks, ordered by
// product id. Products that no longer resolve are left out.
func (h *Handler) DialogPayload(ctx context.Context, sc session.Scope) []ProductSummary {
	dups := StoredDuplicates(sc)
	if dups.Empty() {
		return nil
	}

	out := make([]ProductSummary, 0, len(dups))
	for _, id := range dups.ProductIDs() {
		p, found, err := h.Catalog.GetProduct(ctx, id)
		if err != nil {
			h.logger().Warn("dialog product lookup failed", zap.Int64("product_id", id), zap.Error(err))
			continue
		}
		if !found {
			continue
		}

		matches := make([]duplicate.Match, 0, len(dups[id]))
		for _, m := range dups[id] {
			matches = append(matches, duplicate.Match{
				OrderID:  m.OrderID,
				OrderURL: safeURL(m.OrderURL),
				Status:   strings.TrimSpace(m.Status),
			})
		}

		out = append(out, ProductSummary{ProductID: id, ProductName: p.Name, Orders: matches})
	}
	return out
}

func (h *Handler) publish(ctx context.Context, ev events.Event) {
	if h.Events == nil {
		return
	}
	if err := h.Events.Publish(ctx, ev); err != nil {
		h.logger().Warn("publish event failed", zap.String("event_type", string(ev.Type)), zap.Error(err))
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// safeURL keeps absolute http(s) links and relative paths, and blanks
// anything else.
func safeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return ""
		}
		return u.String()
	case "":
		if u.Host != "" || !strings.HasPrefix(u.Path, "/") {
			return ""
		}
		return u.String()
	default:
		return ""
	}
}
