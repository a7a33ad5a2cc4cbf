package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const DefaultCookieName = "order_notify_session"

type Manager struct {
	Store      Store
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func (m *Manager) cookieName() string {
	if m.CookieName == "" {
		return DefaultCookieName
	}
	return m.CookieName
}

// Middleware binds a Scope to every request. Only session ids the store
// knows are honoured; anything else gets a fresh session. The cookie is
// re-sent on every request so its lifetime follows the store's sliding TTL.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	name := m.cookieName()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(name); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil && m.Store.Exists(c.Value) {
				sid = c.Value
			}
		}

		if sid == "" {
			sid = uuid.NewString()
			m.Store.Create(sid)
		}
		m.setCookie(w, sid, int(m.TTL.Seconds()))

		ctx := WithScope(r.Context(), NewScope(m.Store, sid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Renew moves the request's session to a new id and sends the new cookie.
// Called when a shopper logs in.
func (m *Manager) Renew(w http.ResponseWriter, r *http.Request) {
	sid := uuid.NewString()
	if sc := FromContext(r.Context()); sc.Valid() {
		m.Store.Move(sc.ID(), sid)
	} else {
		m.Store.Create(sid)
	}
	m.setCookie(w, sid, int(m.TTL.Seconds()))
}

// End destroys the request's session and expires its cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) {
	if sc := FromContext(r.Context()); sc.Valid() {
		m.Store.Destroy(sc.ID())
	}
	m.setCookie(w, "", -1)
}

func (m *Manager) setCookie(w http.ResponseWriter, sid string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName(),
		Value:    sid,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
