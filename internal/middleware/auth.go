package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
)

type ctxKey string

const userKey ctxKey = "user"

// UserLoader resolves the subject of a verified token.
type UserLoader interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
}

func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the caller attached by Authenticate or Auth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

var (
	errNoToken   = errors.New("no token")
	errNoSubject = errors.New("token subject not found")
	errLookup    = errors.New("user lookup failed")
)

// resolve verifies a bearer token and loads the user it names. The role is
// taken from the stored user, not from the claims.
func resolve(ctx context.Context, tokens *auth.Tokens, users UserLoader, header string) (*model.User, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" || raw == header {
		return nil, errNoToken
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := users.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, errNoSubject
		}
		return nil, fmt.Errorf("%w: %v", errLookup, err)
	}
	return u, nil
}

// Authenticate requires an Authorization: Bearer <jwt> header.
func Authenticate(tokens *auth.Tokens, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			u, err := resolve(req.Context(), tokens, users, req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				switch {
				case errors.Is(err, errNoToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, no token")
				case errors.Is(err, errLookup):
					return echo.NewHTTPError(http.StatusInternalServerError, "Server error").SetInternal(err)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, token failed").SetInternal(err)
			}
			c.SetRequest(req.WithContext(WithUser(req.Context(), u)))
			return next(c)
		}
	}
}

// RequireRole lets the request through only when the caller holds one of
// roles. There is no implicit admin override.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := UserFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized")
			}
			if !hasRole(u.Role, roles) {
				return echo.NewHTTPError(http.StatusForbidden, "Access denied for this role")
			}
			return next(c)
		}
	}
}

func hasRole(r model.Role, allowed []model.Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// Auth is the gRPC counterpart of Authenticate plus RequireRole. Methods
// missing from roles are open; an empty role list admits any signed-in user.
func Auth(tokens *auth.Tokens, users UserLoader, roles map[string][]model.Role) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		allowed, guarded := roles[info.FullMethod]
		if !guarded {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		header := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}

		u, err := resolve(ctx, tokens, users, header)
		if err != nil {
			switch {
			case errors.Is(err, errNoToken):
				return nil, status.Error(codes.Unauthenticated, "no token")
			case errors.Is(err, errLookup):
				return nil, status.Error(codes.Internal, "internal error")
			}
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		if len(allowed) > 0 && !hasRole(u.Role, allowed) {
			return nil, status.Error(codes.PermissionDenied, "access denied for this role")
		}
		return next(WithUser(ctx, u), req)
	}
}
