package auth

import (
	"context"
	"net/http"

	"OrderNotify/pkg/kit"
)

type ctxKey string

const customerKey ctxKey = "customer"

// TokenCookie carries the access token for browser checkouts, which post
// forms and cannot attach an Authorization header.
const TokenCookie = "order_notify_token"

// Principal is the authenticated shopper attached to a request.
type Principal struct {
	ID    int64
	Email string
	Role  string
}

func CustomerFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(customerKey).(Principal)
	return p, ok && p.ID > 0
}

func WithCustomer(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, customerKey, p)
}

// OptionalJWT attaches the customer when a valid bearer token or token cookie
// is present. Requests without one, or with an invalid one, continue as guests.
func OptionalJWT(tm *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := requestToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.Parse(tok)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithCustomer(r.Context(), Principal{ID: claims.CustomerID, Email: claims.Email, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CustomerFromContext(r.Context()); !ok {
			kit.WriteError(w, r, http.StatusUnauthorized, "login required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestToken(r *http.Request) (string, bool) {
	if tok, ok := kit.BearerToken(r); ok {
		return tok, true
	}
	c, err := r.Cookie(TokenCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
