package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/fintrack/internal/config"
	"github.com/Dan9191/fintrack/internal/handler"
	"github.com/Dan9191/fintrack/internal/integrations/events"
	"github.com/Dan9191/fintrack/internal/repository"
	"github.com/Dan9191/fintrack/internal/scheduler"
	"github.com/Dan9191/fintrack/internal/service"
	"github.com/Dan9191/fintrack/internal/utils/email"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env for local development; absent in containers
	_ = godotenv.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store service.Store
	if cfg.UseMemoryStore() {
		logger.Warn("Using in-memory store, data will not survive a restart")
		store = repository.NewMemoryRepository()
	} else {
		db, err := openDatabase(ctx, cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := repository.RunMigrations(cfg.DBConn); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		store = repository.NewRepository(db)
	}

	// Optional integrations
	opts := []service.Option{}
	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warnf("Failed to connect to broker, events disabled: %v", err)
		} else {
			defer publisher.Close()
			opts = append(opts, service.WithPublisher(publisher))
		}
	}
	var mailer service.DigestMailer
	if cfg.SMTPHost != "" {
		mailer = email.NewSender(cfg, logger)
	} else {
		logger.Info("SMTP_HOST not set, digest emails disabled")
	}

	// Initialize layers
	svc := service.NewService(store, logger, cfg, opts...)
	h := handler.NewHandler(svc, logger)
	jobs, err := scheduler.New(svc, mailer, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to set up scheduler: %v", err)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return jobs.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
