package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"meetroom/internal/api"
	"meetroom/internal/config"
	"meetroom/internal/database"
	"meetroom/internal/events"
	"meetroom/internal/google"
	"meetroom/internal/metrics"
	"meetroom/internal/notify"
	"meetroom/internal/reminders"
	"meetroom/internal/service"
	"meetroom/internal/state"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("MEETROOM_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	var limiter *state.RateLimiter
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if limit, window := cfg.SubmitLimit(); limit > 0 {
			limiter = state.NewRateLimiter(rdb, limit, window)
		}
	}

	notifier := buildNotifier(cfg, &logger)

	bus := events.NewBus()
	if cfg.Sheets.Enabled {
		sheets, err := google.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("sheets init error")
		}
		if err := sheets.EnsureHeader(ctx); err != nil {
			logger.Warn().Err(err).Msg("sheets header check failed")
		}
		sheets.Subscribe(bus)
	}

	svc := service.NewBookingService(db, notifier, bus, cfg.Admin.Email, cfg.Booking.MaxAdvanceDays, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, db, cfg, &logger)
	}

	if cfg.Reminders.Enabled {
		remCfg := reminders.DefaultConfig()
		remCfg.Timezone = cfg.ReminderTimezone()
		if cfg.Reminders.Hour > 0 || cfg.Reminders.Minute > 0 {
			remCfg.DailyHour = cfg.Reminders.Hour
			remCfg.DailyMinute = cfg.Reminders.Minute
		}
		scheduler, err := reminders.NewScheduler(remCfg, db, notifier, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("reminder scheduler init error")
		}
		go scheduler.Start(ctx)
	}

	server := api.NewHTTPServer(fmt.Sprintf(":%d", cfg.Server.Port), svc, limiter, cfg.Admin.APIKey, &logger)
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxShutdown)
	}()

	logger.Info().Msg("meeting room service started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// buildNotifier wires the mailer and, when configured, the Telegram mirror
// for administrator alerts.
func buildNotifier(cfg *config.Config, logger *zerolog.Logger) service.Notifier {
	mailer := notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Sender, cfg.SMTP.Password, cfg.SMTPRate(), logger)

	var telegram notify.Notifier
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, mail only")
		} else {
			telegram = tg
		}
	}

	return notify.NewRouter(mailer, telegram, cfg.Admin.Email, logger)
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startBackupLoop(ctx context.Context, db *database.DB, cfg *config.Config, logger *zerolog.Logger) {
	dir := cfg.Backup.Path
	if dir == "" {
		dir = "backups"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("cannot create backup directory")
		return
	}

	ticker := time.NewTicker(cfg.BackupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dest := filepath.Join(dir, fmt.Sprintf("meetroom_%s.db", time.Now().Format("20060102_150405")))
			if err := db.Backup(cfg.Database.Path, dest); err != nil {
				logger.Error().Err(err).Msg("backup failed")
				continue
			}
			removed, err := db.CleanupBackups(dir, cfg.BackupRetention())
			if err != nil {
				logger.Warn().Err(err).Msg("backup cleanup failed")
			} else if removed > 0 {
				logger.Info().Int("removed", removed).Msg("old backups removed")
			}
			logger.Info().Str("dest", dest).Msg("database backed up")
		}
	}
}
