package routes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/custodia/custodia/internal/config"
	"github.com/custodia/custodia/internal/funding"
	"github.com/custodia/custodia/internal/identity"
	"github.com/custodia/custodia/internal/ledger"
	"github.com/custodia/custodia/internal/middleware"
	"github.com/custodia/custodia/internal/notification"
	"github.com/custodia/custodia/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	NATS   *nats.Conn
	Logger *slog.Logger
	// Store overrides the ledger backend chosen from DB.
	Store ledger.Store
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if !d.Cfg.IsDev() {
		if d.DB == nil && d.Store == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: d.Cfg.IsDev()}))
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  d.Cfg.CORSOrigins,
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, " + middleware.IdempotencyKeyHeader + ", " + middleware.RequestIDHeader,
		ExposeHeaders: middleware.RequestIDHeader,
	}))

	store, err := buildStore(d)
	if err != nil {
		return err
	}

	directory, err := identity.DefaultDirectory()
	if err != nil {
		return fmt.Errorf("build identity directory: %w", err)
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.NATS != nil {
		notifier = notification.NewNATSNotifier(d.NATS, "")
	}

	resolver := identity.NewResolver(directory, identity.NewStoreProvider(store, d.Cfg.DefaultCurrency, notifier, d.Logger))
	walletSvc := wallet.NewService(store, directory, d.Logger)
	authorizer := funding.NewAuthorizer(store, directory, notifier, d.Logger)
	deposits := funding.NewDepositGate(d.Logger)

	RegisterHealthRoutes(app, d, store)

	api := app.Group("/api")
	RegisterIdentityRoutes(api, identity.NewHandler(resolver, d.Logger), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger))
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterFundingRoutes(api, funding.NewHandler(authorizer, deposits), middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	return nil
}

func buildStore(d Deps) (ledger.Store, error) {
	if d.Store != nil {
		return d.Store, nil
	}
	if d.DB == nil {
		d.Logger.Warn("no database configured, using in-memory ledger")
		return ledger.NewMemoryStore(), nil
	}
	pg := ledger.NewPostgresStore(d.DB, d.Cfg.StoreTimeout)
	if err := pg.EnsureSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return pg, nil
}
