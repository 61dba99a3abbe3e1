package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatali-fataliyev/student_expense_tracker/api"
	"github.com/fatali-fataliyev/student_expense_tracker/config"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/handlers"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/services"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/storage"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Logger.Errorf("application stopped: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Init(cfg.Log.Level, cfg.AppEnv, cfg.Log.Dir); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Logger.Info("application starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageInstance, closeStorage, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage()
	logging.Logger.Infof("using %s storage", storageInstance.GetStorageType())

	notifier, closeNotifier, err := newNotifier(cfg.AMQP)
	if err != nil {
		return err
	}
	defer closeNotifier()

	bt := budget.NewBudgetTracker(storageInstance, notifier)

	h, err := handlers.New(&bt, cfg.Session.SecureCookie)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	router := handlers.NewRouter(h, api.NewApi(&bt).Routes(cfg.CORS.AllowedOrigins))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Logger.Infof("Starting server on port: %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		logging.Logger.Info("Server stopped")
		return nil
	})

	return g.Wait()
}

// newNotifier publishes budget alerts to RabbitMQ when AMQP_URL is set and
// only logs them otherwise.
func newNotifier(cfg config.AMQPConfig) (budget.Notifier, func() error, error) {
	if cfg.URL == "" {
		logging.Logger.Info("AMQP_URL not set, budget alerts are only logged")
		return services.LogNotifier{}, func() error { return nil }, nil
	}

	n, err := services.NewAMQPNotifier(cfg.URL, cfg.Exchange, cfg.Queue)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	return n, n.Close, nil
}
