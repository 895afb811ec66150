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

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	appavailability "rentflow/internal/app/availability"
	"rentflow/internal/app/checkout"
	"rentflow/internal/app/commands"
	availabilityhandlers "rentflow/internal/app/handlers/availability"
	checkouthandlers "rentflow/internal/app/handlers/checkout"
	"rentflow/internal/app/middleware"
	appoutbox "rentflow/internal/app/outbox"
	"rentflow/internal/app/policies"
	"rentflow/internal/app/queries"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/infra/auth"
	"rentflow/internal/infra/broker/kafka"
	memorycache "rentflow/internal/infra/cache/memory"
	rediscache "rentflow/internal/infra/cache/redis"
	"rentflow/internal/infra/config"
	"rentflow/internal/infra/db/mongo"
	"rentflow/internal/infra/db/postgres"
	ginserver "rentflow/internal/infra/http/gin"
	"rentflow/internal/infra/inbox"
	"rentflow/internal/infra/obs"
	mongooutbox "rentflow/internal/infra/outbox"
	"rentflow/internal/infra/payments/stripe"
	"rentflow/internal/infra/schedule"
	"rentflow/internal/infra/storage/memory"
	"rentflow/internal/infra/supabase"
	"rentflow/internal/infra/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv load failed", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, app.handlers)

	app.cron.Start()
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range app.background {
		g.Go(func() error {
			if err := job(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.cron.Stop(shutdownCtx)
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "backend", cfg.BackendMode, "payments", cfg.PaymentProvider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	checks     map[string]obs.Check
	cron       *schedule.Cron
	background []func(ctx context.Context) error
	closers    []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// backend groups the ports served by the selected booking backend.
type backend struct {
	bookings     policies.BookingStore
	conflicts    policies.ConflictChecker
	reader       policies.BookingReader
	source       policies.AvailabilitySource
	listings     policies.ListingReader
	refresher    auth.Refresher
	supabase     *supabase.Client
	confirmer    ginserver.BookingConfirmer
	localRenters bool
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}, cron: schedule.NewCron(logger)}
	verifier := auth.NewVerifier(cfg.SupabaseJWTSecret)

	be, err := buildBackend(ctx, cfg, verifier, logger, app)
	if err != nil {
		return nil, err
	}

	var pages *memory.PaymentPage
	var payments policies.PaymentSessions
	switch cfg.PaymentProvider {
	case config.PaymentsEdge:
		client := be.supabase
		if client == nil {
			if client, err = supabase.NewClient(supabase.Options{BaseURL: cfg.SupabaseURL, AnonKey: cfg.SupabaseAnonKey, Timeout: cfg.HTTPClientTimeout, Logger: logger}); err != nil {
				return nil, fmt.Errorf("supabase client: %w", err)
			}
		}
		payments = supabase.PaymentSessions{Client: client}
	case config.PaymentsStripe:
		payments = stripe.NewCheckout(stripe.Options{
			SecretKey:  cfg.StripeSecretKey,
			SuccessURL: cfg.StripeSuccessURL,
			CancelURL:  cfg.StripeCancelURL,
			Logger:     logger,
		})
	default:
		pages = &memory.PaymentPage{BaseURL: cfg.PublicBaseURL}
		payments = pages
	}

	cache, err := buildCache(ctx, cfg, logger, app)
	if err != nil {
		return nil, err
	}
	fetcher := &appavailability.Fetcher{
		Source:       be.source,
		Cache:        cache,
		TTL:          cfg.AvailabilityTTL,
		FetchTimeout: cfg.HTTPClientTimeout,
		HorizonDays:  cfg.AvailabilityHorizonDays,
		Logger:       logger.With("component", "availability"),
	}

	var box appoutbox.Outbox = memory.NewOutbox(logger)
	var idem middleware.IdempotencyStore
	var dedupe kafka.Deduper = &inbox.Memory{}
	var queue *mongooutbox.Store
	if cfg.MongoURI != "" {
		mc, err := mongo.New(ctx, mongo.Options{URI: cfg.MongoURI, Database: cfg.MongoDB, ConnectTimeout: cfg.HTTPClientTimeout})
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		app.closers = append(app.closers, func() {
			if err := mc.Close(5 * time.Second); err != nil {
				logger.Warn("mongo disconnect failed", "error", err)
			}
		})
		app.checks["mongo"] = mc.Ping
		if idem, err = mongo.NewIdempotencyStore(ctx, mc.DB, cfg.IdempotencyTTL); err != nil {
			return nil, fmt.Errorf("idempotency store: %w", err)
		}
		if queue, err = mongooutbox.NewStore(ctx, mc.DB); err != nil {
			return nil, fmt.Errorf("outbox store: %w", err)
		}
		box = queue
		if dedupe, err = inbox.NewStore(ctx, mc.DB, cfg.KafkaConsumerGroup); err != nil {
			return nil, fmt.Errorf("inbox store: %w", err)
		}
	} else {
		memIdem := memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		idem = memIdem
		if err := app.cron.Every("idempotency-purge", 10*time.Minute, memIdem.Purge); err != nil {
			return nil, err
		}
	}

	if err := wireKafka(cfg, queue, fetcher, dedupe, logger, app); err != nil {
		return nil, err
	}

	var barrier checkout.WriteBarrier = checkout.FixedDelay{Delay: cfg.PropagationDelay}
	if cfg.WriteBarrier == config.BarrierPoll {
		barrier = checkout.ConfirmPoll{
			Reader:   be.reader,
			Fallback: checkout.FixedDelay{Delay: cfg.PropagationDelay},
			Logger:   logger,
		}
	}

	registry := &checkout.Registry{
		Deps: checkout.Deps{
			Availability: fetcher,
			Conflicts:    be.conflicts,
			Bookings:     be.bookings,
			Payments:     payments,
			Outbox:       box,
			Encoder:      appoutbox.JSONEventEncoder{},
			Logger:       logger.With("component", "checkout"),
		},
		Config: checkout.Config{
			HoldTTL:             cfg.PendingHoldTTL,
			Barrier:             barrier,
			CompensationBackoff: cfg.CompensationBackoff,
			NotConfigured:       checkout.NotConfiguredPolicy(cfg.NotConfiguredPolicy),
			HorizonDays:         cfg.AvailabilityHorizonDays,
		},
		Listings: be.listings,
		NewAuth:  auth.Factory(be.refresher),
		IdleTTL:  cfg.SessionIdleTTL,
		Logger:   logger.With("component", "sessions"),
	}
	if err := app.cron.Every("checkout-session-sweep", time.Minute, registry.SweepJob); err != nil {
		return nil, err
	}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	checkouthandlers.Register(commandBus, queryBus, registry, cfg.AvailabilityHorizonDays)
	queries.RegisterHandler(queryBus, availabilityhandlers.GetAvailabilityQuery{}.Key(), &availabilityhandlers.GetAvailabilityHandler{Fetcher: fetcher})
	logger.Debug("bus handlers registered", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	validator := validation.New()
	authorizer := checkouthandlers.ActorAuthorizer{}
	tracer := otel.Tracer("rentflow/bus")
	busLogger := logger.With("component", "bus")
	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.OnCommands(middleware.Tracing(tracer)),
		middleware.OnCommands(middleware.Logging(busLogger)),
		middleware.Authorization(authorizer),
		middleware.Validation(validator),
		middleware.Idempotency(idem, middleware.JSONResultCodec{}),
		middleware.OutboxFlush(box, logger),
	)
	queriesWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.OnQueries(middleware.Tracing(tracer)),
		middleware.OnQueries(middleware.Logging(busLogger)),
		middleware.QueryAuthorization(authorizer),
		middleware.QueryValidation(validator),
	)

	app.handlers = ginserver.Handlers{
		Checkout:       ginserver.CheckoutHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware},
		Availability:   ginserver.AvailabilityHandler{Queries: queriesWithMiddleware},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	}
	if pages != nil {
		app.handlers.PaymentPage = ginserver.PaymentPageHandler{Sessions: pages, Bookings: be.confirmer}
	}
	if be.localRenters && cfg.IsLocal() {
		logDevTokens(verifier, logger)
	}
	return app, nil
}

func buildBackend(ctx context.Context, cfg config.Config, verifier *auth.Verifier, logger *slog.Logger, app *application) (backend, error) {
	switch cfg.BackendMode {
	case config.BackendSupabase:
		client, err := supabase.NewClient(supabase.Options{
			BaseURL: cfg.SupabaseURL,
			AnonKey: cfg.SupabaseAnonKey,
			Timeout: cfg.HTTPClientTimeout,
			Logger:  logger,
		})
		if err != nil {
			return backend{}, fmt.Errorf("supabase client: %w", err)
		}
		store := supabase.BookingStore{Client: client}
		return backend{
			bookings:  store,
			conflicts: store,
			reader:    store,
			source:    store,
			listings:  supabase.ListingReader{Client: client},
			refresher: supabase.Refresher{Client: client},
			supabase:  client,
		}, nil

	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return backend{}, fmt.Errorf("postgres: %w", err)
		}
		app.closers = append(app.closers, func() { postgres.Close(db, logger) })
		app.checks["postgres"] = db.PingContext
		if err := postgres.Migrate(ctx, db); err != nil {
			return backend{}, fmt.Errorf("postgres migrate: %w", err)
		}
		listingRepo := postgres.NewListingRepository(db)
		store := postgres.NewBookingStore(db)
		if cfg.IsLocal() {
			catalogue := loadSeed(cfg, logger)
			for _, l := range catalogue.listings {
				if err := listingRepo.Save(ctx, l); err != nil {
					return backend{}, fmt.Errorf("seed listing %s: %w", l.ID, err)
				}
			}
			if err := catalogue.applyBlocks(ctx, store.Block); err != nil {
				return backend{}, err
			}
		}
		return backend{
			bookings:     store,
			conflicts:    store,
			reader:       store,
			source:       store,
			listings:     listingRepo,
			refresher:    memory.Refresher{Minter: verifier},
			localRenters: true,
		}, nil

	default:
		store := memory.NewBookingStore()
		catalogue := loadSeed(cfg, logger)
		err := catalogue.applyBlocks(ctx, func(_ context.Context, listingID string, r daterange.Range) error {
			store.Block(listingID, r)
			return nil
		})
		if err != nil {
			return backend{}, err
		}
		return backend{
			bookings:     store,
			conflicts:    store,
			reader:       store,
			source:       store,
			listings:     memory.NewListingRepository(catalogue.listings...),
			refresher:    memory.Refresher{Minter: verifier},
			confirmer:    store,
			localRenters: true,
		}, nil
	}
}

func buildCache(ctx context.Context, cfg config.Config, logger *slog.Logger, app *application) (appavailability.Cache, error) {
	if cfg.RedisURL == "" {
		cache := memorycache.NewAvailabilityCache()
		if err := app.cron.Every("availability-cache-purge", time.Minute, cache.PurgeJob); err != nil {
			return nil, err
		}
		return cache, nil
	}
	client, err := rediscache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	app.closers = append(app.closers, func() { closeRedis(client, logger) })
	cache := rediscache.NewAvailabilityCache(client)
	app.checks["redis"] = cache.Ping
	return cache, nil
}

func closeRedis(client *goredis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close failed", "error", err)
	}
}

// wireKafka starts the outbox relay when events are persisted in Mongo, and the consumer
// that drops cached availability when another instance changes a booking.
func wireKafka(cfg config.Config, queue *mongooutbox.Store, fetcher *appavailability.Fetcher, dedupe kafka.Deduper, logger *slog.Logger, app *application) error {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	saramaCfg := kafka.NewConfig()
	if queue != nil {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, saramaCfg)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close failed", "error", err)
			}
		})
		worker := &mongooutbox.Worker{
			Store:       queue,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			ID:          uuid.NewString(),
			Backoff:     cfg.RetryBackoff,
			Logger:      logger.With("component", "outbox"),
		}
		app.background = append(app.background, worker.Run)
	}
	if !cfg.KafkaInvalidation {
		return nil
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, saramaCfg, kafka.InvalidationHandler{
		Cache:  fetcher,
		Inbox:  dedupe,
		Logger: logger.With("component", "invalidation"),
	}, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	app.closers = append(app.closers, func() {
		if err := consumer.Close(); err != nil {
			logger.Warn("kafka consumer close failed", "error", err)
		}
	})
	topics := []string{mongooutbox.TopicFor(cfg.KafkaTopicPrefix, "booking.pending_created")}
	app.background = append(app.background, func(ctx context.Context) error {
		return consumer.Run(ctx, topics)
	})
	return nil
}
