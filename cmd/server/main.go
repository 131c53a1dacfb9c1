package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-dispatch/internal/config"
	"campus-dispatch/internal/models"
	"campus-dispatch/internal/modules/audit"
	"campus-dispatch/internal/modules/fleet"
	"campus-dispatch/internal/modules/requests"
	"campus-dispatch/internal/modules/users"
	"campus-dispatch/pkg/notification"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Repositories: the store driver is chosen exactly once, here. Everything
	// below works against the repository interfaces.
	var (
		auditRepo   audit.RepositoryInterface
		fleetRepo   fleet.RepositoryInterface
		requestRepo requests.RepositoryInterface
		userRepo    users.RepositoryInterface
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		auditRepo = audit.NewMemoryRepository()
		fleetRepo = fleet.NewMemoryRepository()
		requestRepo = requests.NewMemoryRepository()
		memUsers := users.NewMemoryRepository()
		seedMemoryAdmin(ctx, memUsers)
		userRepo = memUsers
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		auditRepo = audit.NewRepository(pool)
		fleetRepo = fleet.NewRepository(pool)
		requestRepo = requests.NewRepository(pool)
		userRepo = users.NewRepository(pool)
	}

	// Notifications: SES when enabled, log-only otherwise.
	var notifier notification.ServiceInterface
	if cfg.EmailEnabled {
		notifier, err = notification.NewSESService(ctx, cfg.AWSRegion, cfg.SESSender)
		if err != nil {
			return err
		}
	} else {
		notifier = notification.NewLogService()
	}

	// Services.
	auditSvc := audit.NewService(auditRepo)
	fleetSvc := fleet.NewService(fleetRepo, auditSvc)
	requestSvc := requests.NewService(requestRepo, fleetSvc, auditSvc, notifier)
	authSvc := users.NewService(userRepo, auditSvc, notifier, cfg.JWTSecret)

	// HTTP server.
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	authHandler := users.NewHandler(authSvc)
	public := e.Group("/api")
	authHandler.RegisterPublicRoutes(public)

	protected := e.Group("/api", users.JWTMiddleware(cfg.JWTSecret), users.RequireFullAuth(userRepo))
	authHandler.RegisterRoutes(protected)
	fleet.NewHandler(fleetSvc).RegisterRoutes(protected)
	requests.NewHandler(requestSvc).RegisterRoutes(protected)
	audit.NewHandler(auditSvc).RegisterRoutes(protected)

	// Serve until the context is cancelled, then drain.
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(":" + cfg.ServerPort)
	}()
	log.Printf("campus dispatch console listening on :%s (store=%s)", cfg.ServerPort, cfg.StoreDriver)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// seedMemoryAdmin gives the in-memory store a usable account so the console
// can be tried without a database. Postgres deployments seed real accounts
// with misc/seed-admin instead.
func seedMemoryAdmin(ctx context.Context, repo *users.MemoryRepository) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("seed admin: %v", err)
		return
	}
	if _, err := repo.Create(ctx, &models.User{
		Email:        "admin@campus.local",
		FullName:     "Console Admin",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	}); err != nil {
		log.Printf("seed admin: %v", err)
	}
}
