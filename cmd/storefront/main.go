package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/storefront-go/internal/auth"
	"github.com/andreasstove999/storefront-go/internal/cache"
	"github.com/andreasstove999/storefront-go/internal/cart"
	"github.com/andreasstove999/storefront-go/internal/checkout"
	"github.com/andreasstove999/storefront-go/internal/config"
	"github.com/andreasstove999/storefront-go/internal/db"
	"github.com/andreasstove999/storefront-go/internal/dedup"
	"github.com/andreasstove999/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/storefront-go/internal/http"
	"github.com/andreasstove999/storefront-go/internal/order"
	"github.com/andreasstove999/storefront-go/internal/product"
	"github.com/andreasstove999/storefront-go/internal/sequence"
	"github.com/andreasstove999/storefront-go/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	rdb := cache.New(cfg.RedisAddr)
	defer rdb.Close()
	catalog := cache.NewCatalog(rdb, logger)

	rabbitConn, err := events.DialRabbit(cfg.RabbitURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to RabbitMQ")
	}
	defer rabbitConn.Close()

	userRepo := user.NewPostgresRepository(pool)
	productRepo := product.NewPostgresRepository(pool)
	cartRepo := cart.NewPostgresRepository(pool)
	orderRepo := order.NewPostgresRepository(pool)
	seqRepo := sequence.NewRepository(pool)
	dedupRepo := dedup.NewRepository(pool)

	publisher, err := events.NewPublisher(rabbitConn, seqRepo, cfg.ServiceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("open event publisher")
	}
	defer publisher.Close()

	// Heals carts that survived a failed post-commit clear.
	reconciler := events.CartReconcilerHandler(cartRepo, dedupRepo, logger)
	if err := events.StartConsumer(ctx, rabbitConn, "cart-reconciler", events.OrderPlacedRoutingKey, reconciler, logger); err != nil {
		logger.Fatal().Err(err).Msg("start cart reconciler")
	}

	engine := checkout.NewEngine(cartRepo, orderRepo, catalog, publisher, logger)
	tokens := auth.NewTokens(cfg.JWTSecret, 24*time.Hour)

	router := httpapi.NewRouter(httpapi.Handlers{
		Users:    httpapi.NewUserHandler(userRepo, tokens),
		Products: httpapi.NewProductHandler(productRepo, catalog),
		Cart:     httpapi.NewCartHandler(cartRepo, productRepo),
		Checkout: httpapi.NewCheckoutHandler(engine),
		Orders:   httpapi.NewOrderHandler(orderRepo, publisher, logger),
	}, tokens, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("storefront listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}
