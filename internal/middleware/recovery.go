package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logPanic(logger, fmt.Sprintf("%v", c.Get("request_id")), r)
					err = echo.NewHTTPError(http.StatusInternalServerError, "Server error")
				}
			}()
			return next(c)
		}
	}
}

func UnaryRecovery(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, info.FullMethod, r)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return next(ctx, req)
	}
}

func logPanic(logger zerolog.Logger, where string, r any) {
	var stack [4096]byte
	n := runtime.Stack(stack[:], false)
	logger.Error().
		Str("at", where).
		Str("panic", fmt.Sprintf("%v", r)).
		Str("stack", string(stack[:n])).
		Msg("panic recovered")
}
