package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/config"
	httptransport "github.com/example/meeting-rooms/internal/http"
	"github.com/example/meeting-rooms/internal/lock"
	"github.com/example/meeting-rooms/internal/logging"
	"github.com/example/meeting-rooms/internal/metrics"
	"github.com/example/meeting-rooms/internal/notification"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/persistence/memory"
	"github.com/example/meeting-rooms/internal/persistence/sqlite"
	"github.com/example/meeting-rooms/internal/persistence/sqlite/migration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("roombook stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	api := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	servers := []*http.Server{api}
	if cfg.MetricsPort > 0 {
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           app.ops,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errs := make(chan error, len(servers))
	for _, server := range servers {
		go func(server *http.Server) {
			logger.Info("listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("serve %s: %w", server.Addr, err)
				return
			}
			errs <- nil
		}(server)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, server := range servers {
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "addr", server.Addr, "error", err)
		}
	}
	if err := app.queue.Stop(shutdownCtx); err != nil {
		logger.Error("notification queue did not drain", "error", err)
	}
	return serveErr
}

// app is the fully wired process without its listeners.
type app struct {
	handler http.Handler
	ops     http.Handler
	queue   *notification.Queue
	closers []func() error
}

// queueCloseTimeout bounds the drain on close. run has usually stopped the
// queue already, but a drain that timed out there must not hang close.
const queueCloseTimeout = 5 * time.Second

func stopQueue(q *notification.Queue, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return q.Stop(ctx)
}

func (a *app) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Error("failed to release resource", "error", err)
		}
	}
}

// stores bundles one persistence backend.
type stores struct {
	users      persistence.UserRepository
	meetings   persistence.MeetingRepository
	sessions   persistence.SessionRepository
	deliveries persistence.DeliveryLogRepository
	pinger     httptransport.Pinger
	close      func() error
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Storage == "memory" {
		store := memory.New(time.Now)
		logger.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			users:      store,
			meetings:   store,
			sessions:   store,
			deliveries: store,
			pinger:     store,
			close:      store.Close,
		}, nil
	}

	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx, logger); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &stores{
		users:      storage.Users,
		meetings:   storage.Meetings,
		sessions:   storage.Sessions,
		deliveries: storage.Deliveries,
		pinger:     storage,
		close:      storage.Close,
	}, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close(logger)
		}
	}()

	catalog, err := config.LoadCatalog(cfg.RoomsFile, cfg.RoomsFile == config.DefaultRoomsFile)
	if err != nil {
		return nil, err
	}
	logger.Info("room catalog loaded", "rooms", len(catalog.Rooms()), "file", cfg.RoomsFile)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)
	checks := map[string]httptransport.Pinger{"storage": st.pinger}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var redisLock *lock.Redis
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, redisClient.Close)
		redisLock = lock.NewRedis(redisClient, lock.RedisOptions{TTL: cfg.LockTTL, Logger: logger})
		checks["redis"] = redisLock
	}

	var locker application.DateLocker
	switch {
	case !cfg.EnforceRoomExclusivity:
		logger.Warn("room exclusivity is not enforced, concurrent bookings may overlap")
	case redisLock != nil:
		locker = redisLock
	default:
		locker = lock.NewLocal()
	}

	sender, err := newSender(cfg, logger)
	if err != nil {
		return nil, err
	}

	deliveries := newDeliveryLogAdapter(st.deliveries)
	dispatcherCfg := notification.DefaultDispatcherConfig()
	dispatcherCfg.Rate = cfg.Notify.Rate
	dispatcherCfg.MaxAttempts = cfg.Notify.MaxAttempts
	dispatcher := notification.NewDispatcher(notification.DispatcherDeps{
		Sender:     sender,
		Renderer:   notification.NewRenderer(notification.NewCalendarBuilder(cfg.Location, time.Now)),
		Deliveries: deliveries,
		Metrics:    m,
		Logger:     logger,
	}, dispatcherCfg)
	a.queue = notification.NewQueue(dispatcher, notification.QueueConfig{
		Size:    cfg.Notify.QueueSize,
		Workers: cfg.Notify.Workers,
	}, m, logger)
	a.queue.Start()
	a.closers = append(a.closers, func() error { return stopQueue(a.queue, queueCloseTimeout) })

	now := time.Now
	meetings := newMeetingRepositoryAdapter(st.meetings)
	meetingService := application.NewMeetingService(application.MeetingServiceDeps{
		Meetings:      meetings,
		Rooms:         catalog,
		Deliveries:    deliveries,
		Notifier:      a.queue,
		BusinessHours: catalog.BusinessHours,
		Locker:        locker,
		Metrics:       m,
		Now:           now,
		Logger:        logger,
	})
	availabilityService := application.NewAvailabilityServiceWithLogger(meetings, catalog, m, logger)
	userService := application.NewUserServiceWithLogger(newUserRepositoryAdapter(st.users), nil, uuid.NewString, now, logger)
	authService := application.NewAuthServiceWithLogger(
		newCredentialStoreAdapter(st.users),
		newSessionRepositoryAdapter(st.sessions),
		nil,
		func() string { return randomHex(32) },
		now,
		cfg.SessionTTL,
		logger,
	)

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger).WithLoginThrottle(httptransport.NewLoginThrottle(cfg.LoginAttempts, now)),
		Users:        httptransport.NewUserHandler(userService, logger),
		Rooms:        httptransport.NewRoomHandler(catalog, logger),
		Meetings:     httptransport.NewMeetingHandler(meetingService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Protect:      httptransport.RequireSession(authService, logger),
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	a.ops = httptransport.NewOpsHandler(httptransport.OpsConfig{
		Gatherer: registry,
		Checks:   checks,
		Logger:   logger,
	})
	return a, nil
}

func newSender(cfg config.Config, logger *slog.Logger) (notification.Sender, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn("no SMTP host configured, notifications are logged only")
		return notification.NewLogSender(logger), nil
	}
	sender, err := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		TLS:      cfg.SMTP.TLS,
		From:     cfg.MailFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("configure smtp: %w", err)
	}
	return sender, nil
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
