// Command server runs the lookup bot: the Telegram webhook, the lookup and
// balance API, and the admin API, on one HTTP listener.
//
// @title       Lookup Bot API
// @version     1.0
// @description Registry lookups with per-user credits.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-lookup-bot/internal/bot"
	"github.com/tbourn/go-lookup-bot/internal/config"
	httpapi "github.com/tbourn/go-lookup-bot/internal/http"
	"github.com/tbourn/go-lookup-bot/internal/http/handlers"
	"github.com/tbourn/go-lookup-bot/internal/observability"
	"github.com/tbourn/go-lookup-bot/internal/present"
	"github.com/tbourn/go-lookup-bot/internal/registry"
	"github.com/tbourn/go-lookup-bot/internal/report"
	"github.com/tbourn/go-lookup-bot/internal/repo"
	"github.com/tbourn/go-lookup-bot/internal/services"
	"github.com/tbourn/go-lookup-bot/internal/sysutil"
	"github.com/tbourn/go-lookup-bot/internal/telegram"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	if err := run(cfg, appVersion); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, appVersion string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if seeded, err := repo.SeedKindDefaults(ctx, db); err != nil {
		return err
	} else if seeded {
		log.Info().Msg("lookup kinds seeded with default prices")
	}

	// Chat sessions
	var sessions bot.SessionStore = bot.NewMemoryStore(cfg.Redis.SessionTTL)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		sessions = bot.NewRedisStore(rdb, cfg.Redis.SessionTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("chat sessions in redis")
	}

	// Services
	remote := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Token, cfg.Registry.HTTPTimeout, nil)
	lookups := services.NewLookupService(db, repo.Store{}, remote, services.LookupOptions{
		Timeout:        cfg.Lookup.Timeout,
		PollInterval:   cfg.Lookup.PollInterval,
		DefaultCredits: cfg.Lookup.DefaultCredits,
	})
	if n, err := lookups.RecoverPending(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Warn().Int("count", n).Msg("pending lookups from a previous run resolved as error")
	}
	ledger := services.NewLedgerService(db, repo.Store{}, cfg.Lookup.DefaultCredits)
	kinds := &services.KindService{DB: db, Repo: repo.Store{}}

	var dispatcher handlers.UpdateHandler
	if cfg.Telegram.BotToken != "" {
		dispatcher = &bot.Dispatcher{
			Lookups:  lookups,
			Ledger:   ledger,
			Sender:   telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken, nil),
			Sessions: sessions,
			Present:  present.For,
			Document: report.VehicleDocument,
		}
		log.Info().Str("bot", sysutil.MaskToken(cfg.Telegram.BotToken)).Msg("telegram bot enabled")
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set; webhook disabled")
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, cfg, handlers.Deps{
		Lookups: lookups,
		Ledger:  ledger,
		Kinds:   kinds,
		Bot:     dispatcher,
		DB:      db,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", appVersion).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Workers still polling past the grace period resolve as error.
	if err := lookups.Wait(sctx); err != nil {
		log.Warn().Err(err).Msg("lookup workers interrupted")
	}
	return nil
}
