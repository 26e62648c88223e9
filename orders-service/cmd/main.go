package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/consumer"
	h "github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/http"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/repository"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/views"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/envconfig"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := envconfig.Load(".env"); err != nil {
		slog.Error("failed to load .env", "err", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   envconfig.GetEnv("LOG_LEVEL", "info"),
		Format:  envconfig.GetEnv("LOG_FORMAT", "json"),
		Service: "orders-service",
		Output:  os.Stdout,
	})
	slog.SetDefault(log)
	log.Info("orders-service starting")
	var wg sync.WaitGroup

	// Configuration
	httpPort := envconfig.GetEnv("HTTP_PORT", "8081")
	kafkaBrokers := envconfig.GetList("KAFKA_BROKERS", []string{"localhost:9092"})
	requestTimeout := envconfig.GetDuration("REQUEST_TIMEOUT", 30*time.Second)

	creds := &repository.Credentials{
		Host:              envconfig.GetEnv("DB_HOST", "localhost"),
		Port:              envconfig.GetInt("DB_PORT", 5432),
		User:              envconfig.GetEnv("DB_USER", "postgres"),
		Password:          envconfig.GetEnv("DB_PASSWORD", "postgres"),
		DBName:            envconfig.GetEnv("DB_NAME", "ecommerce"),
		MigrationsDirPath: envconfig.GetEnv("MIGRATIONS_PATH", "./orders-service/internal/repository/migrations"),
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}
	log.Info("database migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     envconfig.GetEnv("REDIS_ADDR", "localhost:6379"),
		Password: envconfig.GetEnv("REDIS_PASSWORD", ""),
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// views fall through to postgres while redis is away
		log.Warn("redis ping failed", "err", err)
	}

	orderViews := views.New(views.NewCache(redisClient, envconfig.GetDuration("VIEWS_TTL", 5*time.Minute)), log)

	// Start Kafka consumer
	kafkaConsumer := consumer.NewConsumer(consumer.NewKafkaReader(kafkaBrokers...), orderViews, log)
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		kafkaConsumer.Run(consumerCtx)
	}()

	ordersHandler := h.NewOrdersHandler(repo, orderViews, requestTimeout, log)
	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      otelhttp.NewHandler(h.NewRouter(ordersHandler, requestTimeout), "orders"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("orders service listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down orders service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}
	consumerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Info("consumer stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("consumer didn't stop in time")
	}

	kafkaConsumer.Close()
	log.Info("orders service stopped")
}
