package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/formloom/formloom/internal/autosave"
	"github.com/formloom/formloom/internal/entity"
	"github.com/formloom/formloom/internal/repository"
	"github.com/formloom/formloom/internal/service"
	"github.com/formloom/formloom/pkg/closer"
	"github.com/formloom/formloom/pkg/config"
	"github.com/formloom/formloom/pkg/health"
	"github.com/formloom/formloom/pkg/logger"
	"github.com/formloom/formloom/pkg/retrier"
	"github.com/formloom/formloom/pkg/transport/casher"
	"github.com/formloom/formloom/pkg/transport/consumer"
	"github.com/formloom/formloom/pkg/transport/listener"
	"github.com/formloom/formloom/pkg/transport/publisher"
)

func main() {
	// Missing .env is fine, the config overlay reads the process env.
	_ = godotenv.Load()

	logCfg := logger.Config{
		LogFile:   "app.log",
		LogLevel:  "debug",
		AppName:   "formloom",
		AddCaller: true,
	}

	if err := logger.Init(logCfg); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.Get()

	cfg, err := config.Init("config.yaml")
	if err != nil {
		log.Error("error init config",
			zap.String("path", "config.yaml"),
			zap.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := retrier.Connect(3, 2, func() (*gorm.DB, error) {
		return openDatabase(cfg)
	})
	if err != nil {
		log.Error("error connecting to database",
			zap.String("driver", cfg.Storage.Driver),
			zap.Error(err))
		return
	}

	repo, err := repository.Init(db, log)
	if err != nil {
		log.Error("error init repository", zap.Error(err))
		return
	}

	redisOpts, err := redis.ParseURL(cfg.Urls.Redis)
	if err != nil {
		log.Error("error parsing redis url", zap.Error(err))
		return
	}
	redisClient := redis.NewClient(redisOpts)
	draftCache := casher.Init(redisClient, log)

	amqpConn, err := retrier.Connect(5, 3, func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.Urls.Rabbitmq)
	})
	if err != nil {
		log.Error("error connecting to rabbitmq", zap.Error(err))
		return
	}

	pub, err := publisher.Init(cfg, log, amqpConn)
	if err != nil {
		log.Error("error init publisher", zap.Error(err))
		return
	}

	cons, err := consumer.Init(cfg, log, amqpConn)
	if err != nil {
		log.Error("error init consumer", zap.Error(err))
		return
	}

	requestTypes := []string{
		cfg.Reqs.AddBlockRequestType,
		cfg.Reqs.UpdateBlockRequestType,
		cfg.Reqs.DeleteBlockRequestType,
		cfg.Reqs.MoveBlockRequestType,
		cfg.Reqs.SubmitRequestType,
		cfg.Reqs.DeleteFormRequestType,
	}
	for _, routingKey := range requestTypes {
		if err := cons.Subscribe(cfg.Exchange.Request, routingKey, cfg.Queue.Request); err != nil {
			log.Error("error subscribing to request queue",
				zap.String("routing_key", routingKey),
				zap.Error(err))
			return
		}
	}

	svc := service.Init(ctx, repo, pub, draftCache, autosave.Options{
		Debounce: time.Duration(cfg.Autosave.DebounceMs) * time.Millisecond,
		Coalesce: time.Duration(cfg.Autosave.CoalesceMs) * time.Millisecond,
	})

	events := make(chan entity.Event, 64)
	list := listener.Init(events, log, cfg, svc)

	checker := health.NewHealthChecker(log, repo, draftCache, cons)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return cons.Consume(groupCtx, cfg.Queue.Request, events)
	})
	group.Go(func() error {
		list.Listen(groupCtx)
		return nil
	})
	group.Go(func() error {
		return checker.StartHealthCheckServer(cfg.HealthPort)
	})

	log.Info("formloom started",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("health_port", cfg.HealthPort))

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		log.Error("service stopped with error", zap.Error(err))
	}

	closers := closer.NewCloserGroup(pub, draftCache)
	if err := closers.Close(); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Storage.Driver {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.Storage.DSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.Storage.DSN), &gorm.Config{})
	}
}
