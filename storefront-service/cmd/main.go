package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/envconfig"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/logger"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/catalog"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/checkout"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/events"
	h "github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/http"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/notify"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/orderclient"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	HTTPPort         string
	LogLevel         string
	LogFormat        string
	StorageBackend   string
	CartTTL          time.Duration
	RedisAddr        string
	RedisPassword    string
	MongoURI         string
	MongoDBName      string
	CatalogDBPath    string
	MigrationsPath   string
	OrdersServiceURL string
	KafkaBrokers     []string
	AdminToken       string
	NotificationTTL  time.Duration
	RequestTimeout   time.Duration
	AllowedOrigins   []string
	CheckoutPerMin   int
	CheckoutBurst    int
	ShutdownTimeout  time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:         envconfig.GetEnv("HTTP_PORT", "8080"),
		LogLevel:         envconfig.GetEnv("LOG_LEVEL", "info"),
		LogFormat:        envconfig.GetEnv("LOG_FORMAT", "json"),
		StorageBackend:   envconfig.GetEnv("STORAGE_BACKEND", "memory"),
		CartTTL:          envconfig.GetDuration("CART_TTL", 30*24*time.Hour),
		RedisAddr:        envconfig.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    envconfig.GetEnv("REDIS_PASSWORD", ""),
		MongoURI:         envconfig.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      envconfig.GetEnv("MONGO_DB_NAME", "storefront"),
		CatalogDBPath:    envconfig.GetEnv("CATALOG_DB_PATH", "catalog.db"),
		MigrationsPath:   envconfig.GetEnv("CATALOG_MIGRATIONS_PATH", "storefront-service/internal/catalog/migrations"),
		OrdersServiceURL: envconfig.GetEnv("ORDERS_SERVICE_URL", "http://localhost:8081"),
		KafkaBrokers:     envconfig.GetList("KAFKA_BROKERS", nil),
		AdminToken:       envconfig.GetEnv("ADMIN_TOKEN", ""),
		NotificationTTL:  envconfig.GetDuration("NOTIFICATION_TTL", notify.DefaultTTL),
		RequestTimeout:   envconfig.GetDuration("REQUEST_TIMEOUT", 30*time.Second),
		AllowedOrigins:   envconfig.GetList("CORS_ALLOWED_ORIGINS", nil),
		CheckoutPerMin:   envconfig.GetInt("CHECKOUT_RATE_PER_MINUTE", 6),
		CheckoutBurst:    envconfig.GetInt("CHECKOUT_RATE_BURST", 3),
		ShutdownTimeout:  10 * time.Second,
	}
}

func main() {
	if err := envconfig.Load(".env"); err != nil {
		slog.Error("failed to load .env", "err", err)
		os.Exit(1)
	}
	cfg := loadConfig()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "storefront-service", Output: os.Stdout})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open cart storage", "backend", cfg.StorageBackend, "err", err)
		os.Exit(1)
	}
	defer closeKV()

	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Error("failed to open catalog", "err", err)
		os.Exit(1)
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Error("failed to migrate catalog", "err", err)
		os.Exit(1)
	}

	bus := events.NewBus(log)
	if len(cfg.KafkaBrokers) > 0 {
		forwarder := events.NewKafkaForwarder(events.NewKafkaWriter(cfg.KafkaBrokers...), 256, log)
		bus.Subscribe(forwarder.Handle)
		go forwarder.Run(ctx)
		log.Info("forwarding order events to kafka", "brokers", cfg.KafkaBrokers)
	}

	relay := notify.NewRelay()
	display := notify.NewDisplay(relay, notify.DisplayConfig{
		TTL: cfg.NotificationTTL,
		OnRemove: func(n notify.Notification, reason notify.RemoveReason) {
			log.Debug("notification removed", "order_id", n.OrderID, "reason", string(reason))
		},
	}, log)
	defer display.Close()

	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN is not set, admin routes are locked")
	}

	orders := orderclient.New(orderclient.Config{BaseURL: cfg.OrdersServiceURL, Timeout: cfg.RequestTimeout}, log)
	submitter := checkout.NewSubmitter(orders, bus, relay, log)
	carts := h.NewCarts(kv, log)

	router := h.NewRouter(
		h.RouterConfig{
			RequestTimeout:  cfg.RequestTimeout,
			AdminToken:      cfg.AdminToken,
			AllowedOrigins:  cfg.AllowedOrigins,
			CheckoutLimiter: h.NewSessionLimiter(cfg.CheckoutPerMin, cfg.CheckoutBurst),
		},
		h.NewProductHandler(products, cfg.RequestTimeout, log),
		h.NewCartHandler(carts, products, cfg.RequestTimeout, log),
		h.NewCheckoutHandler(carts, submitter, cfg.RequestTimeout, log),
		h.NewAdminHandler(display, log),
	)

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, "storefront"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}
	log.Info("server exited")
}

func openStorage(ctx context.Context, cfg *Config, log *slog.Logger) (storage.Storage, func(), error) {
	switch cfg.StorageBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Info("cart storage on redis", "addr", cfg.RedisAddr)
		return storage.NewRedisStorage(client, cfg.CartTTL), func() { client.Close() }, nil

	case "mongo":
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		kv := storage.NewMongoStorage(db)
		if err := kv.CreateIndexes(ctx, cfg.CartTTL); err != nil {
			log.Warn("failed to create mongo indexes", "err", err)
		}
		log.Info("cart storage on mongodb", "database", cfg.MongoDBName)
		return kv, func() { db.Client().Disconnect(context.Background()) }, nil

	default:
		log.Info("cart storage in memory")
		return storage.NewMemoryStorage(), func() {}, nil
	}
}
