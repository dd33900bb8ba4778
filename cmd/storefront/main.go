package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	catalogapp "github.com/dmehra2102/watchstore/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/watchstore/internal/catalog/infrastructure/http"
	catalogkafka "github.com/dmehra2102/watchstore/internal/catalog/infrastructure/kafka"
	catalogpg "github.com/dmehra2102/watchstore/internal/catalog/infrastructure/postgres"
	catalogredis "github.com/dmehra2102/watchstore/internal/catalog/infrastructure/redis"
	orderapp "github.com/dmehra2102/watchstore/internal/order/application"
	"github.com/dmehra2102/watchstore/internal/order/domain"
	orderhttp "github.com/dmehra2102/watchstore/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/watchstore/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/watchstore/internal/order/infrastructure/postgres"
	userapp "github.com/dmehra2102/watchstore/internal/user/application"
	userhttp "github.com/dmehra2102/watchstore/internal/user/infrastructure/http"
	userpg "github.com/dmehra2102/watchstore/internal/user/infrastructure/postgres"
	"github.com/dmehra2102/watchstore/migrations"
	"github.com/dmehra2102/watchstore/pkg/auth"
	"github.com/dmehra2102/watchstore/pkg/config"
	"github.com/dmehra2102/watchstore/pkg/health"
	"github.com/dmehra2102/watchstore/pkg/idempotency"
	"github.com/dmehra2102/watchstore/pkg/logging"
	"github.com/dmehra2102/watchstore/pkg/outbox"
	"github.com/dmehra2102/watchstore/pkg/ratelimit"
	"github.com/dmehra2102/watchstore/pkg/shutdown"
	"github.com/dmehra2102/watchstore/pkg/tracing"
)

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "watch store backend",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the REST API, outbox relay, cache consumer and health server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "number of migrations to apply, negative to roll back (0 = all pending)"},
				},
				Action: migrate,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("storefront exited", "err", err)
		os.Exit(1)
	}
}

func migrate(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)
	if err := migrations.Apply(cfg.PGURL, c.Int("steps")); err != nil {
		return err
	}
	log.Info("migrations applied", "steps", c.Int("steps"))
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(c.Context, log)
	defer cancel()

	tp, err := tracing.Init(ctx, "storefront", cfg.OTLPEndpoint, log)
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	writer := orderkafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()

	// Catalog
	products := catalogredis.NewCachedRepository(log, catalogpg.NewRepository(log, pool), rdb, cfg.ProductCacheTTL)
	catalogHandler := cataloghttp.NewHandler(log, catalogapp.NewService(products))

	// Orders
	pricing := domain.Pricing{
		TaxRate:               cfg.TaxRate,
		FlatShippingFee:       cfg.FlatShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	}
	orders := orderapp.NewService(log, orderpg.NewUnitOfWork(pool), orderpg.NewReader(log, pool),
		domain.NewNumberGenerator(cfg.OrderNumberPrefix), pricing)
	orderHandler := orderhttp.NewHandler(log, orders)

	// Users
	users := userapp.NewService(userpg.NewRepository(pool))
	userHandler := userhttp.NewHandler(log, users)

	// Outbox relay and cache eviction
	relay := outbox.NewRelay(log, orderpg.NewOutboxStore(log, pool),
		outbox.NewDispatcher(log, writer, cfg.OrderTopic), "storefront-relay")
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)
	reader := catalogkafka.NewReader(cfg.KafkaBrokers, cfg.OrderTopic, "catalog-cache")
	consumer := catalogkafka.NewConsumer(log, reader, products, idem)

	hs := health.NewServer(log, 10*time.Second, map[string]health.Check{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	authn := auth.Authenticate(log, auth.NewJWTVerifier(cfg.JWTSecret), users.CheckActive)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", hs.Liveness(time.Now))
		r.Mount("/products", catalogHandler.Routes())
		r.Mount("/auth", userHandler.Routes(authn))
		r.Mount("/orders", orderHandler.Routes(authn,
			ratelimit.Middleware(log, rdb, "orders", cfg.RateLimit, cfg.RateWindow),
			idempotency.Middleware(log, idem),
		))
		r.Route("/admin", func(r chi.Router) {
			r.Use(authn, auth.RequireAdmin())
			orderHandler.AdminRoutes(r)
			catalogHandler.AdminRoutes(r)
			userHandler.AdminRoutes(r)
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return hs.Run(gctx, cfg.HealthAddr) })

	err = g.Wait()
	log.Info("storefront shutdown complete")
	return err
}
