package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	appchat "hostal/internal/app/chat"
	appoutbox "hostal/internal/app/outbox"
	"hostal/internal/app/uow"
	"hostal/internal/domain/listings"
	domainuser "hostal/internal/domain/user"
	"hostal/internal/infra/broker/kafka"
	"hostal/internal/infra/config"
	mongostore "hostal/internal/infra/db/mongo"
	"hostal/internal/infra/directory"
	ginserver "hostal/internal/infra/http/gin"
	"hostal/internal/infra/obs"
	"hostal/internal/infra/outbox"
	"hostal/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration, running on in-memory storage", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.ReconcileInterval = 30 * time.Second
		cfg.FixturesPath = getenv("DIRECTORY_FIXTURES", "")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	fixturesPath := cfg.FixturesPath
	if fixturesPath == "" {
		fixturesPath = defaultFixturesPath()
	}
	if err := app.loadDirectoryFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("directory fixtures load failed", "error", err, "path", fixturesPath)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, ginserver.Handlers{
		Chat: ginserver.ChatHandler{Service: app.service, Logger: logger},
	})

	reconciler := &appchat.Reconciler{
		UoW:      app.uowFactory,
		Interval: cfg.ReconcileInterval,
		Logger:   logger,
	}
	go func() {
		if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reconciler stopped", "error", err)
		}
	}()

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if app.producer != nil {
			if err := app.producer.Close(); err != nil {
				logger.Error("kafka producer close failed", "error", err)
			}
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	service      *appchat.Service
	uowFactory   uow.Factory
	outboxWorker *outbox.Worker
	producer     *kafka.Producer
	ready        func() error

	users    *memory.UserRepository
	listings *memory.ListingRepository
}

// buildApplication wires Mongo plus Kafka when configured and falls back to
// pure in-memory storage otherwise. The participant directory is always
// fixture-backed; account management is owned by another service.
func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		users:    memory.NewUserRepository(),
		listings: memory.NewListingRepository(),
		ready:    func() error { return nil },
	}

	var factory uow.Factory
	if cfg.MongoURI != "" {
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		store := outbox.NewStore(client.DB)
		factory = mongostore.Factory{
			DB:               client.DB,
			ConversationRepo: mongostore.NewConversationRepository(client.DB),
			MessageRepo:      mongostore.NewMessageRepository(client.DB),
			OutboxStore:      store,
		}
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return nil, fmt.Errorf("connect kafka: %w", err)
			}
			app.producer = producer
			app.outboxWorker = &outbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Source:      "app://hostal",
				Backoff:     cfg.RetryBackoff,
			}
		}
		logger.Info("storage configured", "backend", "mongo", "db", cfg.MongoDB)
	} else {
		factory = memory.NewFactory()
		logger.Info("storage configured", "backend", "memory")
	}

	app.uowFactory = factory
	app.service = &appchat.Service{
		UoW:       factory,
		Directory: directory.UserDirectory{Users: app.users},
		Listings:  app.listings,
		Encoder:   appoutbox.JSONEventEncoder{},
		Logger:    logger,
	}
	return app, nil
}

func (a *application) loadDirectoryFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("directory fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("directory fixtures file empty", "path", path)
		return nil
	}

	var fixtures directoryFixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures.Users {
		u, err := domainuser.NewUser(domainuser.CreateParams{
			ID:        domainuser.ID(fx.ID),
			Email:     fx.Email,
			Name:      fx.Name,
			Role:      domainuser.Role(fx.Role),
			CreatedAt: now,
		})
		if err != nil {
			logger.Error("user fixture invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if !fx.Active {
			u.Deactivate()
		}
		if err := a.users.Save(ctx, u); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
			continue
		}
	}
	for _, fx := range fixtures.Listings {
		l, err := listings.NewListing(listings.CreateParams{
			ID:        listings.ListingID(fx.ID),
			Host:      listings.HostID(fx.Host),
			Title:     fx.Title,
			CreatedAt: now,
		})
		if err != nil {
			logger.Error("listing fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, l); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
	}
	logger.Info("directory fixtures imported", "users", len(fixtures.Users), "listings", len(fixtures.Listings))
	return nil
}

type directoryFixtures struct {
	Users []struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Name   string `json:"name"`
		Role   string `json:"role"`
		Active bool   `json:"active"`
	} `json:"users"`
	Listings []struct {
		ID    string `json:"id"`
		Host  string `json:"host"`
		Title string `json:"title"`
	} `json:"listings"`
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "directory.json"),
		filepath.Join("hostal", "data", "directory.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
