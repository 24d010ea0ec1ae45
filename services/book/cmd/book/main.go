package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bookshelf/internal/ratelimit"
	"bookshelf/internal/util"
	"bookshelf/services/book/internal/app"
	"bookshelf/services/book/internal/config"
	"bookshelf/services/book/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.EffectiveLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeCfg := cfg.StoreConfig()
	appCore, err := app.New(ctx, app.Config{StoreConfig: storeCfg})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		util.Fatal("failed to parse trusted proxies", "err", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.WriteRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewFixedWindowLimiter(ratelimit.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Prefix:   "bookshelf:ratelimit:write",
			Limit:    cfg.WriteRateLimitPerMinute,
			Window:   time.Minute,
		})
		if err != nil {
			util.Fatal("failed to init rate limiter", "err", err)
		}
		if err := limiter.Ping(ctx); err != nil {
			logger.Warn("rate limiter redis unreachable; writes will be rejected until it recovers", "err", err)
		}
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Limiter:        limiter,
		TrustedProxies: trusted,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("book server listening",
			"addr", addr,
			"backend", storeCfg.Backend,
			"database", storeCfg.MongoDatabase,
			"profile", cfg.Profile,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("book server shutting down")
		return errors.Join(
			srv.Shutdown(shutdownCtx),
			appCore.Close(shutdownCtx),
			limiter.Close(),
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
