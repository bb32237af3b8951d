package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/simvest/trade-engine/internal/metrics"
	"github.com/simvest/trade-engine/internal/pricing"
	"github.com/simvest/trade-engine/internal/store"
	"github.com/simvest/trade-engine/internal/symbol"
	"github.com/simvest/trade-engine/internal/trade"
	"github.com/simvest/trade-engine/internal/validate"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var rdb *redis.Client
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb = redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Symbols and price oracle ---
	symbols := symbol.NewDirectory()
	for _, s := range strings.Split(os.Getenv("SYMBOLS"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			if err := symbols.Add(s); err != nil {
				slog.Warn("skipping configured symbol", "symbol", s, "err", err)
			}
		}
	}

	quotes := pricing.NewStaticOracle()
	var oracle pricing.Oracle = quotes
	var cachedOracle *pricing.CachedOracle
	if rdb != nil {
		cachedOracle = pricing.NewCachedOracle(quotes, rdb, 15*time.Second)
		oracle = cachedOracle
	}

	// --- Validation ---
	maxQty := validate.DefaultMaxQuantity
	if raw := os.Getenv("MAX_ORDER_QUANTITY"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			maxQty = v
		}
	}
	validator := validate.NewValidator(maxQty, symbols)

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub()
	go wsHub.Run()

	// --- Trade service ---
	tradeSvc := trade.NewService(st, store.NewAccountLocks(), oracle, validator, wsHub)
	quoteAdmin := trade.NewQuoteAdmin(quotes, symbols, cachedOracle)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"trade-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time order events.
		r.Get("/ws", wsHub.HandleWS)

		// Accounts and wallet.
		r.Post("/accounts", tradeSvc.CreateAccount)
		r.Get("/accounts/{accountID}", tradeSvc.GetAccount)
		r.Post("/accounts/{accountID}/deposit", tradeSvc.Deposit)
		r.Post("/accounts/{accountID}/withdraw", tradeSvc.Withdraw)

		// Order execution and history.
		r.Post("/orders", tradeSvc.SubmitOrder)
		r.Get("/accounts/{accountID}/orders", tradeSvc.GetOrders)
		r.Get("/accounts/{accountID}/transactions", tradeSvc.GetTransactions)

		// Quote administration.
		r.Post("/quotes", quoteAdmin.SetQuote)
		r.Get("/symbols", quoteAdmin.ListSymbols)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("trade-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down trade-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("trade-engine stopped")
}
