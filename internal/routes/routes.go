package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/omerfarukdemiral/wallet-auth/internal/auth"
	"github.com/omerfarukdemiral/wallet-auth/internal/config"
	"github.com/omerfarukdemiral/wallet-auth/internal/middleware"
	"github.com/omerfarukdemiral/wallet-auth/internal/notification"
	"github.com/omerfarukdemiral/wallet-auth/internal/token"
	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var walletRepo wallet.Repository
	var tokenStore token.Store
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		tokenStore = token.NewPostgresStore(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
		tokenStore = token.NewMemoryStore()
	}

	// Services and handlers
	issuer := token.NewIssuer(map[string]string{
		auth.PlatformAdmin:  d.Cfg.AdminTokenSecret,
		auth.PlatformClient: d.Cfg.ClientTokenSecret,
	}, d.Cfg.TokenTTL)
	notifier := notification.NewLoggerNotifier(d.Logger)
	engine := auth.NewEngine(walletRepo, issuer, tokenStore, notifier, auth.PolicyFromConfig(d.Cfg), d.Logger)
	authHandler := auth.NewHandler(engine)
	walletSvc := wallet.NewService(walletRepo)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterWalletRoutes(api, walletSvc, idempotency, d.Logger)

	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRatePerMin)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(issuer, walletRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/change-password", authHandler.ChangePassword)
	RegisterProfileRoute(protected, walletRepo)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
