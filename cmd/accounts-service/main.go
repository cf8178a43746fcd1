package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/eaglebank/accounts/internal/allocator"
	"github.com/eaglebank/accounts/internal/clients"
	accountcmd "github.com/eaglebank/accounts/internal/command"
	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/events"
	"github.com/eaglebank/accounts/internal/handler"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/metrics"
	"github.com/eaglebank/accounts/internal/middleware"
	"github.com/eaglebank/accounts/internal/models"
	"github.com/eaglebank/accounts/internal/notify"
	"github.com/eaglebank/accounts/internal/observability"
	accountqry "github.com/eaglebank/accounts/internal/query"
	redisclient "github.com/eaglebank/accounts/internal/redis"
	"github.com/eaglebank/accounts/internal/repository"
)

const customerViewTTL = 10 * time.Minute

func main() {
	cfg, problems := config.Load("accounts-service", "8080")

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	for _, p := range problems {
		log.Warn("invalid configuration, using default", "field", p.Field, "message", p.Message)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Register()
	shutdownTracer := observability.InitTracer(ctx, log, cfg)

	// Write store
	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	// Redis backs the read cache and, by default, the event transport.
	var rdb *goredis.Client
	if cfg.CacheEnabled || cfg.Messaging.Transport == config.TransportRedis {
		rdb, err = redisclient.NewClient(ctx, redisclient.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Fatal("failed to connect to redis", "error", err)
		}
		defer rdb.Close()
	}

	var cache repository.ViewCache = repository.NopCache{}
	if cfg.CacheEnabled {
		cache = redisclient.NewViewCache[models.CustomerView](rdb, customerViewTTL, log)
	}

	var transport events.Transport
	if cfg.Messaging.Transport == config.TransportKafka {
		transport = events.NewKafkaTransport(cfg.Messaging.KafkaBrokers, cfg.ServiceName)
	} else {
		transport = events.NewRedisStreamTransport(rdb)
	}
	defer transport.Close()

	// --- CQRS wiring ---
	readRepo := repository.NewAccountReadRepository(store, cache)
	dispatcher := notify.NewDispatcher(transport, cfg.Messaging.SendCommunicationChannel, cfg.Messaging.DispatchTimeout, log)

	commandSvc := accountcmd.NewAccountCommandService(store, readRepo, allocator.NewRandomAllocator(), dispatcher, log)
	querySvc := accountqry.NewAccountQueryService(readRepo)
	customerSvc := accountqry.NewCustomerQueryService(
		querySvc,
		clients.NewLoansClient(cfg.Remote.LoansURL, cfg.Remote.Timeout, log),
		clients.NewCardsClient(cfg.Remote.CardsURL, cfg.Remote.Timeout, log),
		accountqry.CustomerQueryConfig{Policy: cfg.Remote.AggregationPolicy, Timeout: cfg.Remote.Timeout},
		log,
	)

	accountHandler := handler.NewAccountHandler(commandSvc, querySvc, handler.ServiceInfo{
		BuildVersion:   cfg.BuildVersion,
		RuntimeVersion: runtime.Version(),
		Contact: models.ContactInfo{
			Message:        cfg.Contact.Message,
			ContactDetails: map[string]string{"name": cfg.Contact.Name, "email": cfg.Contact.Email},
			OnCallSupport:  cfg.Contact.OnCallSupport,
		},
	})
	customerHandler := handler.NewCustomerHandler(customerSvc, log)

	// Setup router
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.CorrelationID(false))
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.POST("/create", accountHandler.CreateAccount)
		api.GET("/fetch", accountHandler.FetchAccount)
		api.PUT("/update", accountHandler.UpdateAccount)
		api.DELETE("/delete", accountHandler.DeleteAccount)
		api.GET("/fetchCustomerDetails", customerHandler.FetchCustomerDetails)
		api.GET("/build-info", accountHandler.BuildInfo)
		api.GET("/contact-info", accountHandler.ContactInfo)
		api.GET("/java-version", accountHandler.RuntimeVersion)
	}

	go func() {
		subscriber := newSubscriber(cfg, rdb, commandSvc.HandleCommunicationEvent, log)
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("subscriber stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("accounts service starting", "port", cfg.Port, "store", cfg.StoreDriver, "transport", cfg.Messaging.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (repository.Store, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping database", "error", err)
	}
	store := repository.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("failed to apply schema", "error", err)
	}
	return store, func() { _ = db.Close() }
}

func newSubscriber(cfg config.Config, rdb *goredis.Client, handle events.Handler, log *logger.Logger) events.Subscriber {
	m := cfg.Messaging
	if m.Transport == config.TransportKafka {
		return events.NewKafkaSubscriber(m.KafkaBrokers, m.CommunicationSentChannel, m.ConsumerGroup, handle, log)
	}
	consumer := m.ConsumerName
	if consumer == "" {
		consumer = "accounts-consumer-" + uuid.NewString()[:8]
	}
	return events.NewRedisSubscriber(rdb, events.SubscriberConfig{
		Group:    m.ConsumerGroup,
		Consumer: consumer,
		Stream:   m.CommunicationSentChannel,
		Handler:  handle,
	}, log)
}
