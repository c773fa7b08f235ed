package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unclebandit/pipeshark-backend/internal/config"
	"github.com/unclebandit/pipeshark-backend/internal/db"
	"github.com/unclebandit/pipeshark-backend/internal/logger"
	"github.com/unclebandit/pipeshark-backend/internal/mailer"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/distlock"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/httpretry"
	"github.com/unclebandit/pipeshark-backend/internal/queue"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
	"github.com/unclebandit/pipeshark-backend/internal/service"
)

// The worker dispatches due queue rows to RabbitMQ and delivers them. Run it
// whenever the server is configured with AMQP_URL.
func main() {
	configPath := flag.String("config", "config/base.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info").Fatal("Failed to load config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel).With(zap.String("component", "worker"))
	logger.Log = log
	defer log.Sync()

	if cfg.AMQP.URL == "" {
		log.Fatal("AMQP_URL is required for the worker; without a broker the server delivers in-process")
	}

	database, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	leadRepo := &repository.LeadRepository{DB: database}
	senderRepo := &repository.SenderAccountRepository{DB: database}
	queueRepo := &repository.QueueRepository{DB: database}

	bus, err := queue.NewAMQPQueue(cfg.AMQP.URL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer bus.Close()

	mail := mailer.NewRouter(cfg.Google.ClientID, cfg.Google.ClientSecret, senderRepo,
		httpretry.NewRetryClient(&http.Client{Timeout: 30 * time.Second}, 2, log))
	delivery := service.NewDeliveryService(queueRepo, senderRepo, leadRepo, mail, log)
	dispatcher := service.NewDispatcher(queueRepo, bus, distlock.NewFactory(rdb, database), cfg.Scheduling.DispatchBatch, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := service.NewWorker(bus, delivery, dispatcher.Dispatch, cfg.Scheduling.DispatchInterval, log)
	log.Info("Worker running, waiting for messages...", zap.String("topic", queue.TopicEmailSends))
	if err := worker.Start(ctx); err != nil {
		log.Fatal("Worker failed", zap.Error(err))
	}
	log.Info("Worker stopped")
}
