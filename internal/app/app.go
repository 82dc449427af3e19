package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/abrezinsky/chanceraffle/internal/auth"
	"github.com/abrezinsky/chanceraffle/internal/config"
	"github.com/abrezinsky/chanceraffle/internal/handlers"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/notify"
	"github.com/abrezinsky/chanceraffle/internal/ratelimit"
	"github.com/abrezinsky/chanceraffle/internal/repository"
	"github.com/abrezinsky/chanceraffle/internal/services"
	"github.com/abrezinsky/chanceraffle/internal/websocket"
	"github.com/abrezinsky/chanceraffle/pkg/payment"
)

// App holds all application dependencies
type App struct {
	log        logger.Logger
	cfg        *config.Config
	repo       *repository.Repository
	handlers   *handlers.Handlers
	hub        *websocket.Hub
	dispatcher *services.Dispatcher
	entries    *services.EntryService
	cron       *cron.Cron
	redis      *redis.Client
	baseURL    string
	stopHub    context.CancelFunc
	serverMu   sync.Mutex
	server     *http.Server
	closeOnce  sync.Once
}

// New opens the ledger, sets up the raffle on first start and wires every
// service, the admin account and the background jobs
func New(ctx context.Context, log logger.Logger, cfg *config.Config) (*App, error) {
	dialect, err := repository.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	repo, err := repository.Open(dialect, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	a := &App{log: log, cfg: cfg, repo: repo}
	if err := a.init(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	log, cfg, repo := a.log, a.cfg, a.repo

	// Services
	gateway := newGateway(log, cfg.Payment)
	a.dispatcher = services.NewDispatcher(log, newNotifier(log, cfg))

	settingsService := services.NewSettingsService(log, repo)
	statsService := services.NewStatsService(repo)
	overflowService := services.NewOverflowService(log, repo)
	winnerService := services.NewWinnerService(log, repo)
	paymentService := services.NewPaymentService(log, repo, gateway)
	a.entries = services.NewEntryService(log, repo, gateway, overflowService, services.NewAllocator(log))

	if err := a.setupRaffle(ctx, settingsService); err != nil {
		return err
	}

	a.baseURL = cfg.HTTP.BaseURL
	if a.baseURL == "" {
		a.baseURL = defaultBaseURL(realNetworkProvider{}, cfg.HTTP.Port)
	}
	a.entries.SetBaseURL(a.baseURL)
	a.entries.SetDispatcher(a.dispatcher)
	winnerService.SetDispatcher(a.dispatcher)

	// Admin account
	adminAuth := auth.New(log, repo, auth.Config{
		Secret:     cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	generated, err := adminAuth.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if generated != "" {
		log.Info("Admin password generated", "email", cfg.Auth.AdminEmail, "password", generated)
	}

	// Live updates
	hubCtx, stopHub := context.WithCancel(context.Background())
	a.stopHub = stopHub
	a.hub = websocket.New(log, statsService)
	a.hub.Start(hubCtx)
	a.entries.SetBroadcaster(a.hub)
	settingsService.SetBroadcaster(a.hub)
	winnerService.SetBroadcaster(a.hub)

	// Rate limiting (optional)
	var limiter *ratelimit.Limiter
	a.redis = ratelimit.NewClient(ctx, log, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if a.redis != nil {
		limiter = ratelimit.New(log, a.redis, ratelimit.Config{
			Capacity:        cfg.Redis.RateCapacity,
			RefillPerSecond: cfg.Redis.RefillPerSecond,
			Prefix:          "chanceraffle:rl",
		})
	}

	if err := a.startJobs(hubCtx); err != nil {
		stopHub()
		if a.redis != nil {
			a.redis.Close()
		}
		return err
	}

	a.handlers = handlers.New(log, handlers.Deps{
		Entries:  a.entries,
		Payments: paymentService,
		Winner:   winnerService,
		Settings: settingsService,
		Stats:    statsService,
	}, adminAuth, a.hub, limiter)
	return nil
}

// setupRaffle creates the settings row from the setup file on first start
func (a *App) setupRaffle(ctx context.Context, settings services.SettingsServicer) error {
	setup, err := config.LoadSetup(a.cfg.SetupFile)
	if err != nil {
		return err
	}
	created, err := settings.Initialize(ctx, setup.Settings(time.Now()))
	if err != nil {
		return fmt.Errorf("initialize raffle: %w", err)
	}
	if created {
		a.log.Info("Raffle initialized", "campaign", setup.CampaignName, "overflow_enabled", setup.OverflowEnabled)
	}
	return nil
}

// startJobs schedules the overflow countdown and the stale pending audit
func (a *App) startJobs(ctx context.Context) error {
	cl := cronLogger{log: a.log}
	a.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))

	if _, err := a.cron.AddFunc("@every 1s", func() {
		a.hub.Tick(ctx)
	}); err != nil {
		return fmt.Errorf("schedule countdown: %w", err)
	}

	maxAge := a.cfg.Jobs.StalePendingAfter
	if _, err := a.cron.AddFunc(a.cfg.Jobs.AuditSchedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		n, err := a.entries.AuditStalePending(jobCtx, maxAge)
		if err != nil {
			a.log.Error("Stale pending audit failed", "error", err)
			return
		}
		if n > 0 {
			a.log.Warn("Stale pending entries found", "count", n, "older_than", maxAge)
		}
	}); err != nil {
		return fmt.Errorf("schedule pending audit %q: %w", a.cfg.Jobs.AuditSchedule, err)
	}

	a.cron.Start()
	return nil
}

// newGateway picks the payment processor
func newGateway(log logger.Logger, cfg config.PaymentConfig) payment.Gateway {
	if cfg.Gateway == config.GatewayMidtrans {
		return payment.NewMidtransGateway(log, cfg.MidtransServerKey, cfg.MidtransProduction)
	}
	log.Warn("Using the mock payment gateway; no real charges will be made")
	return payment.NewMockGateway()
}

// newNotifier fans out to every configured channel
func newNotifier(log logger.Logger, cfg *config.Config) notify.Notifier {
	var multi notify.Multi
	if cfg.SMTP.Host != "" {
		multi = append(multi, notify.NewMailer(log, notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	}
	if cfg.AMQP.Enabled {
		multi = append(multi, notify.NewPublisher(log, cfg.AMQP.URL))
	}
	if cfg.Telegram.Token != "" {
		alerter, err := notify.NewTelegramAlerter(log, cfg.Telegram.Token, cfg.Telegram.ChatIDs)
		if err != nil {
			log.Warn("Telegram alerts disabled", "error", err)
		} else {
			multi = append(multi, alerter)
		}
	}
	if len(multi) == 0 {
		log.Info("No notification channels configured")
	}
	return multi
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL returns the public URL used in ticket QR codes
func (a *App) BaseURL() string {
	return a.baseURL
}

// Run serves HTTP until the server is shut down
func (a *App) Run(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.serverMu.Lock()
	a.server = server
	a.serverMu.Unlock()

	a.log.Info("Server starting", "addr", addr, "url", a.baseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and background work, waits for queued
// notifications and closes the database
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.serverMu.Lock()
	server := a.server
	a.serverMu.Unlock()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	a.Close()
	return errors.Join(errs...)
}

// Close releases app resources. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.cron != nil {
			<-a.cron.Stop().Done()
		}
		if a.stopHub != nil {
			a.stopHub()
		}
		a.dispatcher.Wait()
		if a.redis != nil {
			a.redis.Close()
		}
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	})
}

// cronLogger routes cron's own logging through the app logger
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
