// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/unclebandit/pipeshark-backend/internal/config"
	"github.com/unclebandit/pipeshark-backend/internal/controller"
	"github.com/unclebandit/pipeshark-backend/internal/db"
	"github.com/unclebandit/pipeshark-backend/internal/handler"
	"github.com/unclebandit/pipeshark-backend/internal/logger"
	"github.com/unclebandit/pipeshark-backend/internal/mailer"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/distlock"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/httpretry"
	"github.com/unclebandit/pipeshark-backend/internal/queue"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
	"github.com/unclebandit/pipeshark-backend/internal/scheduling"
	"github.com/unclebandit/pipeshark-backend/internal/server"
	"github.com/unclebandit/pipeshark-backend/internal/service"
	"github.com/unclebandit/pipeshark-backend/internal/workflow"
)

func main() {
	configPath := flag.String("config", "config/base.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info").Fatal("Failed to load config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel)
	logger.Log = log
	defer log.Sync()

	database, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
	}
	locks := distlock.NewFactory(rdb, database)

	campaignRepo := &repository.CampaignRepository{DB: database}
	leadRepo := &repository.LeadRepository{DB: database}
	senderRepo := &repository.SenderAccountRepository{DB: database}
	queueRepo := &repository.QueueRepository{DB: database}
	scheduleRepo := &repository.ScheduleRepository{DB: database}

	httpClient := httpretry.NewRetryClient(&http.Client{Timeout: cfg.Workflow.Timeout}, cfg.Workflow.MaxRetries, log)
	trigger := workflow.NewWebhookTrigger(cfg.Workflow.WebhookURL, cfg.Workflow.Secret, httpClient, log)

	sched := cfg.Scheduling
	enqueueService := service.NewEnqueueService(campaignRepo, leadRepo, senderRepo, queueRepo, func() *scheduling.Generator {
		return &scheduling.Generator{
			MinGap:        sched.MinGap,
			MaxGap:        sched.MaxGap,
			BusinessHours: sched.BusinessHours,
			StartHour:     sched.BusinessStart,
			EndHour:       sched.BusinessEnd,
			Rand:          rand.New(rand.NewSource(time.Now().UnixNano())),
		}
	}, log)

	poller := service.NewLaunchPoller(scheduleRepo, campaignRepo, leadRepo, trigger, enqueueService, locks, log)
	poller.PollInterval = sched.PollInterval
	poller.WaitTimeout = sched.WaitTimeout
	poller.MatchWindow = sched.MatchWindow

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without a broker this process also delivers; otherwise cmd/worker does.
	var bus queue.Queue
	if cfg.AMQP.URL != "" {
		bus, err = queue.NewAMQPQueue(cfg.AMQP.URL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		log.Info("delivery handled by worker processes")
	} else {
		bus = queue.NewInMemoryQueue(log)
		mail := mailer.NewRouter(cfg.Google.ClientID, cfg.Google.ClientSecret, senderRepo, httpretry.NewRetryClient(&http.Client{Timeout: 30 * time.Second}, 2, log))
		delivery := service.NewDeliveryService(queueRepo, senderRepo, leadRepo, mail, log)
		dispatcher := service.NewDispatcher(queueRepo, bus, locks, sched.DispatchBatch, log)
		worker := service.NewWorker(bus, delivery, dispatcher.Dispatch, sched.DispatchInterval, log)
		go func() {
			if err := worker.Start(ctx); err != nil {
				log.Error("In-process worker stopped", zap.Error(err))
			}
		}()
		log.Info("delivery running in-process", zap.Duration("dispatch_interval", sched.DispatchInterval))
	}

	scheduler := cron.New(cron.WithLogger(cronLogger{log.Sugar()}))
	if _, err := scheduler.AddFunc(sched.LaunchCron, func() {
		if _, err := poller.Run(ctx, nil); err != nil {
			log.Error("Launch run failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("Invalid launch cron expression", zap.String("launch_cron", sched.LaunchCron), zap.Error(err))
	}
	scheduler.Start()

	router := server.NewRouter(server.Deps{
		Campaigns: handler.NewCampaignHandler(&service.CampaignService{
			CampaignRepo: campaignRepo,
			LeadRepo:     leadRepo,
			Log:          log,
		}),
		CampaignAction: &controller.CampaignController{Enqueuer: enqueueService},
		Accounts: &controller.AccountController{Accounts: &service.AccountService{
			SenderRepo:   senderRepo,
			ScheduleRepo: scheduleRepo,
			CampaignRepo: campaignRepo,
			QueueRepo:    queueRepo,
			Log:          log,
		}},
		Launch:         &controller.LaunchController{Launcher: poller},
		JWTSecret:      cfg.Auth.JWTSecret,
		CronSecret:     cfg.Auth.CronSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	<-scheduler.Stop().Done()
	if err := bus.Close(); err != nil {
		log.Error("Queue close error", zap.Error(err))
	}
	database.Close()
	log.Info("Shutdown complete")
}

// cronLogger routes robfig/cron logs through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
