package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newAuthRouter() http.Handler {
	tm := NewTokenMaker("0123456789abcdef0123456789abcdef")
	s := &Server{Log: zap.NewNop(), Store: NewFastMemStore(), JWT: tm}

	r := chi.NewRouter()
	r.Use(OptionalJWT(tm))
	r.Mount("/auth", s.Routes())
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_RegisterLoginWhoAmI(t *testing.T) {
	h := newAuthRouter()
	creds := map[string]string{"email": " Shopper@Example.com ", "password": "password123"}

	rr := postJSON(t, h, "/auth/register", creds)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	var reg registerResp
	if err := json.Unmarshal(rr.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reg.CustomerID != 1 || reg.Email != "shopper@example.com" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	rr = postJSON(t, h, "/auth/register", creds)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register status=%d", rr.Code)
	}

	rr = postJSON(t, h, "/auth/login", creds)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	var lr loginResp
	if err := json.Unmarshal(rr.Body.Bytes(), &lr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if lr.AccessToken == "" || lr.ExpiresIn != int(tokenTTL.Seconds()) {
		t.Fatalf("unexpected login response: %+v", lr)
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == TokenCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != lr.AccessToken || !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly token cookie, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("whoami via cookie status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+lr.AccessToken)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("whoami via bearer status=%d", rr.Code)
	}
	var who map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &who); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if who["user_id"] != float64(1) || who["email"] != "shopper@example.com" {
		t.Fatalf("unexpected whoami: %+v", who)
	}
}

func TestServer_RejectsBadInput(t *testing.T) {
	h := newAuthRouter()

	if rr := postJSON(t, h, "/auth/register", map[string]string{"email": "a@b.c", "password": "short"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("short password status=%d", rr.Code)
	}
	if rr := postJSON(t, h, "/auth/register", map[string]string{"email": "", "password": "password123"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing email status=%d", rr.Code)
	}
	if rr := postJSON(t, h, "/auth/login", map[string]string{"email": "nobody@b.c", "password": "password123"}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown login status=%d", rr.Code)
	}
	if rr := postJSON(t, h, "/auth/login", map[string]any{"email": "a@b.c", "extra": true}); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status=%d", rr.Code)
	}
}

func TestServer_WhoAmIRequiresLogin(t *testing.T) {
	h := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestServer_LogoutClearsCookie(t *testing.T) {
	h := newAuthRouter()

	rr := postJSON(t, h, "/auth/logout", map[string]string{})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
	cs := rr.Result().Cookies()
	if len(cs) != 1 || cs[0].Name != TokenCookie || cs[0].MaxAge >= 0 {
		t.Fatalf("expected expired token cookie, got %+v", cs)
	}
}

type renewals struct {
	renewed, ended int
}

func (r *renewals) Renew(http.ResponseWriter, *http.Request) { r.renewed++ }
func (r *renewals) End(http.ResponseWriter, *http.Request)   { r.ended++ }

func TestServer_RotatesSessionOnLoginAndLogout(t *testing.T) {
	sessions := &renewals{}
	s := &Server{Log: zap.NewNop(), Store: NewFastMemStore(), JWT: NewTokenMaker("0123456789abcdef0123456789abcdef"), Sessions: sessions}
	h := s.Routes()
	creds := map[string]string{"email": "a@b.c", "password": "password123"}

	if rr := postJSON(t, h, "/register", creds); rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d", rr.Code)
	}
	if rr := postJSON(t, h, "/login", map[string]string{"email": "a@b.c", "password": "wrong-password"}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status=%d", rr.Code)
	}
	if sessions.renewed != 0 {
		t.Fatalf("failed login must not rotate the session")
	}

	if rr := postJSON(t, h, "/login", creds); rr.Code != http.StatusOK {
		t.Fatalf("login status=%d", rr.Code)
	}
	if rr := postJSON(t, h, "/logout", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d", rr.Code)
	}
	if sessions.renewed != 1 || sessions.ended != 1 {
		t.Fatalf("renewed=%d ended=%d", sessions.renewed, sessions.ended)
	}
}
