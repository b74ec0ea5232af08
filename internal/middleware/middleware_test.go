package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
)

type mapUsers map[string]*model.User

func (m mapUsers) UserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, model.ErrNotFound
}

type brokenUsers struct{}

func (brokenUsers) UserByID(context.Context, string) (*model.User, error) {
	return nil, errors.New("connection reset")
}

var (
	testTokens = auth.NewTokens("mw-secret", time.Minute)
	patient    = &model.User{ID: "p1", Name: "Pat", Role: model.RolePatient}
	doctor     = &model.User{ID: "d1", Name: "Doc", Role: model.RoleDoctor}
	users      = mapUsers{patient.ID: patient, doctor.ID: doctor}
)

func bearer(t *testing.T, u *model.User) string {
	t.Helper()
	tok, err := testTokens.Make(u.ID, u.Role)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	return "Bearer " + tok
}

func runEcho(t *testing.T, authz string, loader UserLoader, mws ...echo.MiddlewareFunc) (int, *model.User) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *model.User
	h := func(c echo.Context) error {
		seen, _ = UserFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}
	chain := append([]echo.MiddlewareFunc{Authenticate(testTokens, loader)}, mws...)
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	if err := h(c); err != nil {
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			t.Fatalf("unexpected error type: %v", err)
		}
		return he.Code, seen
	}
	return rec.Code, seen
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		authz  string
		loader UserLoader
		want   int
	}{
		{"no header", "", users, http.StatusUnauthorized},
		{"not bearer", "Basic abc", users, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", users, http.StatusUnauthorized},
		{"unknown subject", bearer(t, &model.User{ID: "ghost", Role: model.RolePatient}), users, http.StatusUnauthorized},
		{"store down", bearer(t, patient), brokenUsers{}, http.StatusInternalServerError},
		{"ok", bearer(t, patient), users, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, u := runEcho(t, tt.authz, tt.loader)
			if code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, code)
			}
			if tt.want == http.StatusOK && (u == nil || u.ID != patient.ID) {
				t.Fatalf("expected user on context, got %+v", u)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	code, _ := runEcho(t, bearer(t, patient), users, RequireRole(model.RoleDoctor, model.RoleAdmin))
	if code != http.StatusForbidden {
		t.Fatalf("patient on staff route: expected 403, got %d", code)
	}
	code, _ = runEcho(t, bearer(t, doctor), users, RequireRole(model.RoleDoctor, model.RoleAdmin))
	if code != http.StatusOK {
		t.Fatalf("doctor on staff route: expected 200, got %d", code)
	}
	code, _ = runEcho(t, bearer(t, doctor), users, RequireRole(model.RolePatient))
	if code != http.StatusForbidden {
		t.Fatalf("doctor on patient route: expected 403, got %d", code)
	}
}

func TestAuthInterceptor(t *testing.T) {
	roles := map[string][]model.Role{
		"/svc/Staff": {model.RoleDoctor},
		"/svc/Any":   nil,
	}
	ic := Auth(testTokens, users, roles)

	call := func(method, authz string) (*model.User, error) {
		ctx := context.Background()
		if authz != "" {
			ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", authz))
		} else {
			ctx = metadata.NewIncomingContext(ctx, metadata.MD{})
		}
		var seen *model.User
		_, err := ic(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, func(ctx context.Context, _ any) (any, error) {
			seen, _ = UserFromContext(ctx)
			return nil, nil
		})
		return seen, err
	}

	if _, err := call("/svc/Open", ""); err != nil {
		t.Fatalf("open method: %v", err)
	}
	if _, err := call("/svc/Any", ""); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
	if u, err := call("/svc/Any", bearer(t, patient)); err != nil || u.ID != patient.ID {
		t.Fatalf("any signed-in user: %v %+v", err, u)
	}
	if _, err := call("/svc/Staff", bearer(t, patient)); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if _, err := call("/svc/Staff", bearer(t, doctor)); err != nil {
		t.Fatalf("doctor: %v", err)
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(0, 2)
	defer rl.Close()

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("burst should be allowed")
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("third request should be denied")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("other IPs have their own bucket")
	}
}

func TestRateLimit_Echo(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Close()
	e := echo.New()
	h := RateLimit(rl)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func() error {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		return h(e.NewContext(req, httptest.NewRecorder()))
	}
	if err := do(); err != nil {
		t.Fatalf("first: %v", err)
	}
	var he *echo.HTTPError
	if err := do(); !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
}

func TestRateLimit_EchoIgnoresForwardingHeaders(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Close()
	e := echo.New()
	h := RateLimit(rl)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("203.0.113.%d", i))
		if err := h(e.NewContext(req, httptest.NewRecorder())); err == nil {
			allowed++
		}
	}
	if allowed != 1 {
		t.Fatalf("expected only the burst of 1 from 10.0.0.1, %d of 20 allowed", allowed)
	}
}

func TestPeerIP(t *testing.T) {
	withPeer := func(ip string, fwd string) context.Context {
		ctx := peer.NewContext(context.Background(), &peer.Peer{
			Addr: &net.TCPAddr{IP: net.ParseIP(ip), Port: 4000},
		})
		if fwd != "" {
			ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("x-forwarded-for", fwd))
		}
		return ctx
	}
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"no peer", context.Background(), "unknown"},
		{"direct", withPeer("10.0.0.7", ""), "10.0.0.7"},
		{"bridge relays browser", withPeer("127.0.0.1", "203.0.113.9"), "203.0.113.9"},
		{"forwarded header from remote ignored", withPeer("10.0.0.7", "203.0.113.9"), "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := peerIP(tt.ctx); got != tt.want {
				t.Fatalf("peerIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitUnary(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Close()
	ic := RateLimitUnary(rl, "/svc/Login")
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.1.1.1"), Port: 1}})
	ok := func(context.Context, any) (any, error) { return "ok", nil }

	for i := 0; i < 3; i++ {
		if _, err := ic(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Other"}, ok); err != nil {
			t.Fatalf("unlisted method limited: %v", err)
		}
	}
	if _, err := ic(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Login"}, ok); err != nil {
		t.Fatalf("first login: %v", err)
	}
	_, err := ic(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Login"}, ok)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestRecovery(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	h := Recovery(zerolog.Nop())(func(echo.Context) error { panic("boom") })

	var he *echo.HTTPError
	if err := h(c); !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(Logger(zerolog.Nop())(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	}))
	if err := h(c); err != nil {
		t.Fatalf("logger should hand errors to echo, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 written, got %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) != "my-id" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get(RequestIDHeader))
	}
}
