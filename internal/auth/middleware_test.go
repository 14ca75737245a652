package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/identity"
)

// fakeVerifier resolves fixed tokens; anything else is rejected with
// the configured error.
type fakeVerifier struct {
	tokens map[string]identity.Claims
	err    error
}

func (f *fakeVerifier) Verify(_ context.Context, authorization string) (identity.Claims, error) {
	raw, err := ParseBearer(authorization)
	if err != nil {
		return identity.Claims{}, err
	}
	if claims, ok := f.tokens[raw]; ok {
		return claims, nil
	}
	if f.err != nil {
		return identity.Claims{}, f.err
	}
	return identity.Claims{}, ErrInvalidToken
}

type failingMaterializer struct{}

func (failingMaterializer) Materialize(context.Context, identity.Claims) (identity.User, error) {
	return identity.User{}, errors.New("store unreachable")
}

func newTestMiddleware(t *testing.T) (*Middleware, *identity.MemoryStore) {
	t.Helper()
	store := identity.NewMemoryStore()
	verifier := &fakeVerifier{
		tokens: map[string]identity.Claims{
			"good-token": {Subject: "u1", Name: "Alice", Email: "a@example.com"},
		},
	}
	return NewMiddleware(nil, verifier, identity.NewService(nil, store)), store
}

func invoke(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, *identity.User) {
	t.Helper()
	e := echo.New()
	var seen *identity.User
	handler := mw(func(c echo.Context) error {
		seen, _ = IdentityFromContext(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, seen
}

func TestRequireRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	mw, store := newTestMiddleware(t)
	rec, _ := invoke(t, mw.Require(), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no store writes, got %d records", store.Len())
	}
}

func TestRequireRejectsBadToken(t *testing.T) {
	t.Parallel()

	mw, store := newTestMiddleware(t)
	rec, _ := invoke(t, mw.Require(), "Bearer expired-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("rejected token must not write to the store, got %d records", store.Len())
	}
}

func TestRequireUniformRejectionBody(t *testing.T) {
	t.Parallel()

	// Malformed header, rejected token, and unreachable provider must be
	// indistinguishable to the caller.
	mw, _ := newTestMiddleware(t)
	malformed, _ := invoke(t, mw.Require(), "NotBearer xyz")

	unavailable := NewMiddleware(nil, &fakeVerifier{err: ErrProviderUnavailable}, identity.NewService(nil, identity.NewMemoryStore()))
	down, _ := invoke(t, unavailable.Require(), "Bearer anything")

	rejected, _ := invoke(t, mw.Require(), "Bearer wrong")

	if malformed.Code != http.StatusUnauthorized || down.Code != http.StatusUnauthorized || rejected.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d/%d, want all 401", malformed.Code, down.Code, rejected.Code)
	}
	if malformed.Body.String() != rejected.Body.String() || down.Body.String() != rejected.Body.String() {
		t.Fatalf("rejection bodies differ: %q / %q / %q",
			malformed.Body.String(), down.Body.String(), rejected.Body.String())
	}
}

func TestRequireAttachesAndMaterializes(t *testing.T) {
	t.Parallel()

	mw, store := newTestMiddleware(t)
	rec, seen := invoke(t, mw.Require(), "Bearer good-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Subject != "u1" {
		t.Fatalf("handler saw identity %+v, want subject u1", seen)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one materialized record, got %d", store.Len())
	}
	if _, err := store.FindBySubject(context.Background(), "u1"); err != nil {
		t.Fatalf("materialized record missing: %v", err)
	}
}

func TestOptionalContinuesAnonymous(t *testing.T) {
	t.Parallel()

	mw, store := newTestMiddleware(t)

	for _, header := range []string{"", "garbage", "Bearer expired-token"} {
		rec, seen := invoke(t, mw.Optional(), header)
		if rec.Code != http.StatusOK {
			t.Fatalf("header %q: status = %d, want 200", header, rec.Code)
		}
		if seen != nil {
			t.Fatalf("header %q: expected anonymous, got %+v", header, seen)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("anonymous requests must not write, got %d records", store.Len())
	}
}

func TestOptionalAttachesOnSuccess(t *testing.T) {
	t.Parallel()

	mw, store := newTestMiddleware(t)
	rec, seen := invoke(t, mw.Optional(), "Bearer good-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Subject != "u1" {
		t.Fatalf("handler saw identity %+v, want subject u1", seen)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one materialized record, got %d", store.Len())
	}
}

func TestStoreFailureIsFatalForBothVariants(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{tokens: map[string]identity.Claims{
		"good-token": {Subject: "u1"},
	}}
	mw := NewMiddleware(nil, verifier, failingMaterializer{})

	rec, seen := invoke(t, mw.Require(), "Bearer good-token")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("strict status = %d, want 500", rec.Code)
	}
	if seen != nil {
		t.Fatal("no identity may be attached when materialization fails")
	}

	rec, seen = invoke(t, mw.Optional(), "Bearer good-token")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("optional status = %d, want 500", rec.Code)
	}
	if seen != nil {
		t.Fatal("no identity may be attached when materialization fails")
	}
}

func TestRequireIdentityHelper(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if _, err := RequireIdentity(c); err == nil {
		t.Fatal("expected 401 error for anonymous context")
	}

	WithIdentity(c, &identity.User{Subject: "u1"})
	user, err := RequireIdentity(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Subject != "u1" {
		t.Fatalf("wrong identity: %+v", user)
	}
}
