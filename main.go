package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leads-organizer-backend/config"
	"leads-organizer-backend/controllers"
	"leads-organizer-backend/database"
	"leads-organizer-backend/integrations"
	"leads-organizer-backend/logger"
	"leads-organizer-backend/middlewares"
	"leads-organizer-backend/routes"
	"leads-organizer-backend/services"
	"leads-organizer-backend/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewForEnvironment(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("[CONFIG] - invalid configuration", zap.Error(err))
	}

	// ---- Database
	db, err := database.Connect(cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("[DATABASE] - could not connect", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("[DATABASE] - migration failed", zap.Error(err))
	}
	if created, err := database.SeedOperator(db, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatal("[DATABASE] - could not seed operator", zap.Error(err))
	} else if created {
		log.Info("[DATABASE] - seeded operator", zap.String("email", cfg.Auth.AdminEmail))
	}

	auth, err := middlewares.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.NonceTTL)
	if err != nil {
		log.Fatal("[AUTH] - could not build authenticator", zap.Error(err))
	}

	// ---- Pipeline
	leads := store.NewLeadStore(db)
	deliveries := store.NewDeliveryStore(db)
	timeout := integrations.WithTimeout(cfg.ConnectorTimeout)
	userAgent := integrations.WithHeader("User-Agent", cfg.App.Name)

	var catalog services.PropertyCatalog
	if cfg.CMS.BaseURL != "" {
		catalog = integrations.NewWordPressCatalog(cfg.CMS, timeout, userAgent)
	} else {
		log.Warn("[CONFIG] - CMS_API_URL not set, property metadata lookups disabled")
	}

	ingest := services.NewIngestionService(
		leads,
		catalog,
		integrations.NewPipedriveClient(cfg.Pipedrive, timeout, userAgent),
		integrations.NewRDStationClient(cfg.RDStation, timeout, userAgent),
		deliveries,
		log,
	)

	app := newApp(cfg, log)
	routes.Register(app, routes.Handlers{
		DB:        db,
		Auth:      auth,
		Health:    controllers.NewHealthController(db),
		Leads:     controllers.NewLeadController(ingest),
		Admin:     controllers.NewAdminController(leads, deliveries, auth),
		Operators: controllers.NewAuthController(db, auth),
	})

	// ---- Start
	errChan := make(chan error, 1)
	go func() {
		log.Info("[SERVER] - listening", zap.String("port", cfg.App.Port))
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			errChan <- err
		}
	}()

	if err := waitForShutdown(app, errChan, log); err != nil {
		log.Error("[SHUTDOWN] - error during shutdown", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		log.Error("[SHUTDOWN] - error closing database", zap.Error(err))
	}
}

func newApp(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: middlewares.ErrorHandler(log),
		BodyLimit:    cfg.HTTP.BodyLimitBytes,
	})

	app.Use(logger.FiberMiddleware(log))

	// The website posts from the browser, so the form endpoint needs CORS.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.HTTP.RateLimitMax,
		Expiration: cfg.HTTP.RateLimitWindow,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
	}))

	return app
}

func waitForShutdown(app *fiber.App, errChan <-chan error, log *zap.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("[SHUTDOWN] - received shutdown signal")
	case err := <-errChan:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		return err
	}
	log.Info("[SHUTDOWN] - server stopped")
	return nil
}
