package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/clinic"
	"clinic-booking-api/internal/config"
	"clinic-booking-api/internal/grpcweb"
	"clinic-booking-api/internal/handler"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/rpc"
	"clinic-booking-api/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic appointment booking API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), userCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST, gRPC and gRPC-Web servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cfg.NewLogger(os.Stdout)
			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Migrations applied.")
			return nil
		},
	}
}

// userCmd provisions staff accounts; public registration only creates patients.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var in clinic.NewUser
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a patient, doctor or admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cfg.NewLogger(os.Stderr)
			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := clinic.New(st, auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL), logger, clinic.Options{})
			in.Role = model.Role(role)
			u, err := svc.CreateUser(cmd.Context(), in)
			if err != nil {
				if msg, ok := model.Message(err); ok {
					return errors.New(msg)
				}
				return err
			}
			fmt.Printf("Created %s %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&role, "role", string(model.RoleDoctor), "patient, doctor or admin")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Email, "email", "", "login email")
	create.Flags().StringVar(&in.Phone, "phone", "", "contact phone")
	create.Flags().StringVar(&in.Password, "password", "", "initial password")
	create.Flags().StringVar(&in.Specialization, "specialization", "", "doctor specialization")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")
	cmd.AddCommand(create)
	return cmd
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		st, err := store.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")
		return st, nil
	default:
		pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to postgres")
		return store.NewPG(pool, logger), nil
	}
}

// newEcho builds the HTTP server with the global middleware. Recovery sits
// inside Logger so a panicked request still gets its access-log line.
func newEcho(logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPDirect()
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stdout)

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		return err
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL)
	svc := clinic.New(st, tokens, logger, clinic.Options{
		MaxPerDay:  cfg.MaxApptsPerDay,
		RefreshTTL: cfg.RefreshTokenTTL,
		Services:   cfg.ClinicServices,
	})

	rl := middleware.NewRateLimiter(cfg.AuthRateRPS, cfg.AuthRateBurst)
	defer rl.Close()

	// gRPC
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.UnaryRecovery(logger),
		middleware.UnaryLogger(logger),
		middleware.RateLimitUnary(rl, rpc.RateLimited...),
		middleware.Auth(tokens, svc, rpc.MethodRoles),
	))
	rpc.RegisterClinicServer(srv, rpc.NewServer(svc, logger))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Info().Str("addr", lis.Addr().String()).Msg("grpc server started")
		if err := srv.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("grpc server error")
		}
	}()

	bridge, err := grpcweb.New("localhost:"+cfg.GRPCPort, logger)
	if err != nil {
		return err
	}
	defer bridge.Close()

	// REST + gRPC-Web share the HTTP port
	e := newEcho(logger)
	handler.New(svc, st, logger, cfg.ClinicName).RegisterRoutes(e, rl)
	e.Any("/"+rpc.ServiceName+"/*", echo.WrapHandler(bridge.Handler()))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("http server started")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	srv.GracefulStop()
	logger.Info().Msg("server stopped")
	return nil
}
