package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/retail-checkout/internal/adapter/handler"
	"github.com/rl1809/retail-checkout/internal/adapter/payment"
	"github.com/rl1809/retail-checkout/internal/adapter/storage"
	"github.com/rl1809/retail-checkout/internal/config"
	"github.com/rl1809/retail-checkout/internal/core/domain"
	"github.com/rl1809/retail-checkout/internal/core/service"
	"github.com/rl1809/retail-checkout/internal/port"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "retail-checkout").Logger()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Checkout lock: Redis when configured, in-process otherwise
	var locker port.CartLocker = storage.NewMemoryLocker()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		locker = storage.NewRedisAdapter(rdb, cfg.CheckoutLockTTL)
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	}

	// Payment
	var authorizer port.PaymentAuthorizer = payment.NewApprovingAuthorizer()
	if cfg.PaymentGatewayURL != "" {
		authorizer = payment.NewGatewayAuthorizer(cfg.PaymentGatewayURL, cfg.PaymentTimeout)
		log.Info().Str("url", cfg.PaymentGatewayURL).Msg("using payment gateway")
	} else {
		log.Warn().Msg("no payment gateway configured, approving every payment")
	}

	// Order archive
	var archive port.OrderRepository
	queueSize := 0
	if cfg.MySQLDSN != "" {
		db, err := openMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect mysql")
		}
		defer db.Close()
		archive = storage.NewMySQLAdapter(db)
		queueSize = cfg.ArchiveQueueSize
		log.Info().Msg("connected to mysql")
	}

	catalog := service.NewCatalog(service.SeedProducts())
	sessions := service.NewSessionStore()
	ledger := service.NewOrderLedger(authorizer, locker, queueSize)

	g, gctx := errgroup.WithContext(ctx)

	workers := &errgroup.Group{}
	if archive != nil {
		for i := 0; i < cfg.ArchiveWorkers; i++ {
			id := i
			workers.Go(func() error {
				workerLoop(id, ledger.GetOrderQueue(), archive)
				return nil
			})
		}
		log.Info().Int("workers", cfg.ArchiveWorkers).Msg("started archive workers")
	}

	// gRPC
	grpcServer := grpc.NewServer()
	grpcHandler := handler.NewGRPCHandler(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})

	// HTTP
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	handler.NewHTTPHandler(catalog, sessions, ledger).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second + cfg.PaymentTimeout,
		IdleTimeout:  120 * time.Second,
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		grpcHandler.Drain()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
		log.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info().Msg("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	// Close archive queue and wait for workers
	ledger.Close()
	_ = workers.Wait()
	log.Info().Int("orders", ledger.Len()).Msg("workers stopped")
}

func openMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := storage.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// workerLoop archives committed orders. The in-memory ledger stays the
// source of truth, so a failed write is logged and dropped.
func workerLoop(id int, queue <-chan domain.Order, repo port.OrderRepository) {
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := repo.CreateOrder(ctx, order); err != nil {
			log.Error().Err(err).Int("worker", id).Str("order_id", order.ID()).Msg("failed to archive order")
		} else {
			log.Debug().Int("worker", id).Str("order_id", order.ID()).Msg("archived order")
		}

		cancel()
	}
}
