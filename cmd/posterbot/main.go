package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"posterbot/internal/bot"
	"posterbot/internal/catalog"
	"posterbot/internal/config"
	"posterbot/internal/ledger"
	"posterbot/internal/server/http/handlers"
	"posterbot/internal/server/http/router"
	"posterbot/internal/session"
	"posterbot/internal/storage"
	"posterbot/internal/storage/excel"
	redisstore "posterbot/internal/storage/redis"
	"posterbot/internal/telegram"
	"posterbot/internal/worker"
	"posterbot/pkg/api"
	"posterbot/pkg/logger"
	"posterbot/pkg/notify"
	"posterbot/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrate(ctx, cfg, os.Args[2:], zapLogger); err != nil {
			zapLogger.Fatal("Migration command failed", zap.Error(err))
		}
		return
	}

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("PosterBot stopped with error", zap.Error(err))
	}
	zapLogger.Info("PosterBot shutdown gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var apiClient *api.Client
	if cfg.CatalogAPIURL != "" {
		apiClient = api.NewClient(cfg.CatalogAPIURL, cfg.CatalogAPIKey, logger)
	}
	products := catalog.Load(ctx, apiClient, cfg.CatalogPath, logger)

	backend, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	policy := ledger.DefaultRetryPolicy()
	policy.Timeout = cfg.LedgerTimeout
	policy.MaxElapsed = cfg.LedgerRetryMaxElapsed
	orders := ledger.NewRetrying(backend, policy, logger)

	store, limiter, closeSessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	variant := bot.DefaultVariant()
	if cfg.DialogConfig != "" {
		if variant, err = bot.LoadVariant(cfg.DialogConfig); err != nil {
			return fmt.Errorf("failed to load dialog config: %w", err)
		}
	}
	if cfg.WhatsAppLink != "" {
		variant.WhatsAppLink = cfg.WhatsAppLink
	}

	opts := []bot.Option{bot.WithVariant(variant)}

	var tgAPI telegram.BotAPI
	if cfg.TelegramEnabled() {
		botAPI, err := telegram.NewAPI(cfg.TelegramToken, cfg.TelegramDebug, logger)
		if err != nil {
			return err
		}
		tgAPI = botAPI
		if cfg.TelegramChannelID != 0 {
			opts = append(opts, bot.WithNotifier(telegram.NewChannelNotifier(botAPI, cfg.TelegramChannelID, logger)))
		}
	}

	sessions := session.NewManager(store)
	engine := bot.New(sessions, products, orders, logger, opts...)
	defer engine.Wait()

	sweeper := worker.NewSweeper(orders, worker.NewSenderDispatcher(newSender(cfg, logger), variant.CountryPrefix), cfg.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	tgDone := make(chan struct{})
	if tgAPI != nil {
		transport := telegram.NewTransport(tgAPI, engine, orders, sessions, cfg.TelegramAdminIDs, logger)
		go func() {
			defer close(tgDone)
			if err := transport.Start(ctx); err != nil {
				logger.Error("Telegram transport stopped", zap.Error(err))
			}
		}()
	} else {
		close(tgDone)
	}

	var rateLimiter handlers.RateLimiter
	if limiter != nil {
		rateLimiter = limiter
	}
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: router.Setup(router.Options{
			Dialog:       engine,
			Limiter:      rateLimiter,
			RateLimit:    cfg.RateLimitPerMinute,
			UploadDir:    cfg.UploadDir,
			StaticDir:    cfg.StaticDir,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	<-tgDone
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

func openLedger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ledger.Ledger, func(), error) {
	switch cfg.LedgerBackend {
	case config.LedgerExcel:
		l, err := excel.Open(cfg.LedgerXLSXPath, cfg.LedgerSheet, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open spreadsheet ledger: %w", err)
		}
		return l, closer(l, "spreadsheet ledger", logger), nil

	case config.LedgerPostgres, config.LedgerSQLite:
		l, err := storage.NewSQLLedger(ctx, sqlConfig(cfg), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init SQL ledger: %w", err)
		}
		return l, closer(l, "SQL ledger", logger), nil

	default:
		logger.Warn("Using in-memory ledger, orders are lost on restart")
		return ledger.NewMemory(ledger.Headers), func() {}, nil
	}
}

func sqlConfig(cfg *config.Config) storage.Config {
	sc := storage.Config{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		ConnectTimeout:  2 * time.Minute,
	}
	if cfg.LedgerBackend == config.LedgerSQLite {
		sc.Driver = "sqlite3"
		sc.DSN = cfg.SQLitePath
		// sqlite allows one writer
		sc.MaxOpenConns = 1
		return sc
	}
	sc.Driver = "postgres"
	sc.DSN = storage.PostgresDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	return sc
}

func openSessions(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, *redisstore.Storage, func(), error) {
	if cfg.SessionBackend == config.SessionRedis {
		client := redis.New(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store := redisstore.New(client, cfg.SessionTTL, logger)
		return store, store, closer(client, "redis client", logger), nil
	}

	store := session.NewMemoryStore(cfg.SessionTTL, cfg.SessionMaxEntries, logger)
	janitorCtx, stop := context.WithCancel(ctx)
	go store.RunJanitor(janitorCtx, time.Minute)
	return store, nil, stop, nil
}

func newSender(cfg *config.Config, logger *zap.Logger) notify.Sender {
	if !cfg.TwilioEnabled() {
		logger.Warn("Twilio is not configured, customer notifications are only logged")
		return notify.NewLog(logger)
	}
	sender, err := notify.NewTwilio(notify.TwilioOpts{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromWhats:  cfg.TwilioFrom,
	}, logger)
	if err != nil {
		logger.Error("Failed to init Twilio, falling back to log sender", zap.Error(err))
		return notify.NewLog(logger)
	}
	return sender
}

// migrate runs "migrate status" or "migrate down" against the SQL ledger.
func migrate(ctx context.Context, cfg *config.Config, args []string, logger *zap.Logger) error {
	if cfg.LedgerBackend != config.LedgerPostgres && cfg.LedgerBackend != config.LedgerSQLite {
		return fmt.Errorf("LEDGER_BACKEND %q has no migrations", cfg.LedgerBackend)
	}
	sc := sqlConfig(cfg)
	db, err := sqlx.Open(sc.Driver, sc.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cmd := "status"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "status":
		return storage.Status(ctx, db.DB, sc.Driver, logger)
	case "up":
		return storage.RunMigrations(ctx, db.DB, sc.Driver, logger)
	case "down":
		return storage.RollbackMigration(ctx, db.DB, sc.Driver, logger)
	default:
		return fmt.Errorf("unknown migrate command %q (want status, up or down)", cmd)
	}
}

func closer(c io.Closer, name string, logger *zap.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close "+name, zap.Error(err))
		}
	}
}
