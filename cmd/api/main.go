package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/craftlane/craftlane-backend/api/routes"
	"github.com/craftlane/craftlane-backend/internal/bookings"
	"github.com/craftlane/craftlane-backend/internal/boosts"
	"github.com/craftlane/craftlane-backend/internal/cart"
	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/internal/checkout"
	"github.com/craftlane/craftlane-backend/internal/conversations"
	"github.com/craftlane/craftlane-backend/internal/designs"
	"github.com/craftlane/craftlane-backend/internal/ledger"
	"github.com/craftlane/craftlane-backend/internal/notifications"
	"github.com/craftlane/craftlane-backend/internal/orders"
	"github.com/craftlane/craftlane-backend/internal/purchase"
	"github.com/craftlane/craftlane-backend/internal/quotes"
	"github.com/craftlane/craftlane-backend/internal/returns"
	"github.com/craftlane/craftlane-backend/internal/shipments"
	"github.com/craftlane/craftlane-backend/internal/users"
	"github.com/craftlane/craftlane-backend/internal/webhooks"
	"github.com/craftlane/craftlane-backend/pkg/carrier"
	"github.com/craftlane/craftlane-backend/pkg/config"
	"github.com/craftlane/craftlane-backend/pkg/db"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/craftlane/craftlane-backend/pkg/metrics"
	"github.com/craftlane/craftlane-backend/pkg/migrate"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/payments"
	"github.com/craftlane/craftlane-backend/pkg/redis"
	"github.com/craftlane/craftlane-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}
	gateway, err := payments.NewSquareGateway(squareClient, cfg.Square)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	// A missing carrier credential degrades booking instead of blocking the
	// whole API; consolidation then parks shipments in pending until retried.
	var booker carrier.Booker
	carrierClient, err := carrier.NewClient(cfg.Carrier.BaseURL, cfg.Carrier.APIKey, cfg.Carrier.Timeout)
	if err != nil {
		logg.Warn(context.Background(), "carrier client not configured, shipment bookings will fail until retried")
		booker = carrier.NewNoop(logg)
	} else {
		booker = carrierClient
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	usersSvc, err := users.NewService(users.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "users service", err)
	}
	catalogRepo := catalog.NewRepository(gormDB)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		fatal(logg, "catalog service", err)
	}
	conversationsSvc, err := conversations.NewService(conversations.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "conversations service", err)
	}
	quotesSvc, err := quotes.NewService(quotes.NewRepository(gormDB), catalogRepo, dbClient, outboxSvc)
	if err != nil {
		fatal(logg, "quotes service", err)
	}
	designsSvc, err := designs.NewService(designs.NewRepository(gormDB), catalogRepo, dbClient, outboxSvc)
	if err != nil {
		fatal(logg, "designs service", err)
	}
	purchaseRepo := purchase.NewRepository(gormDB)
	validator, err := purchase.NewValidator(purchaseRepo)
	if err != nil {
		fatal(logg, "purchase validator", err)
	}
	cartRepo := cart.NewRepository(gormDB)
	cartSvc, err := cart.NewService(cartRepo, catalogRepo, purchaseRepo)
	if err != nil {
		fatal(logg, "cart service", err)
	}
	checkoutSvc, err := checkout.NewService(
		checkout.NewRepository(gormDB),
		cartRepo,
		catalogRepo,
		validator,
		gateway,
		dbClient,
		outboxSvc,
		cfg.Commission.RateDecimal(),
	)
	if err != nil {
		fatal(logg, "checkout service", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB), dbClient, outboxSvc)
	if err != nil {
		fatal(logg, "ledger service", err)
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(gormDB), ledgerSvc, dbClient, outboxSvc)
	if err != nil {
		fatal(logg, "orders service", err)
	}
	bookingsSvc, err := bookings.NewService(bookings.NewRepository(gormDB), ledgerSvc, dbClient)
	if err != nil {
		fatal(logg, "bookings service", err)
	}
	shipmentsSvc, err := shipments.NewService(shipments.NewRepository(gormDB), booker, dbClient, outboxSvc, logg)
	if err != nil {
		fatal(logg, "shipments service", err)
	}
	returnsSvc, err := returns.NewService(returns.NewRepository(gormDB), ledgerSvc, dbClient, outboxSvc)
	if err != nil {
		fatal(logg, "returns service", err)
	}
	boostsSvc, err := boosts.NewService(boosts.NewRepository(gormDB), dbClient)
	if err != nil {
		fatal(logg, "boosts service", err)
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "notifications service", err)
	}
	webhooksSvc, err := webhooks.NewService(webhooks.NewRepository(gormDB), ledgerSvc, redisClient, logg)
	if err != nil {
		fatal(logg, "webhooks service", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, promRegistry, httpMetrics, routes.Services{
			Users:         usersSvc,
			Catalog:       catalogSvc,
			Conversations: conversationsSvc,
			Quotes:        quotesSvc,
			Designs:       designsSvc,
			Cart:          cartSvc,
			Checkout:      checkoutSvc,
			Orders:        ordersSvc,
			Bookings:      bookingsSvc,
			Ledger:        ledgerSvc,
			Shipments:     shipmentsSvc,
			Returns:       returnsSvc,
			Boosts:        boostsSvc,
			Notifications: notificationsSvc,
			Webhooks:      webhooksSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, what string, err error) {
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
