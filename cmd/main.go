package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Using standard log for early errors before zap is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/auth"
	"github.com/fathima-sithara/conversation-service/internal/config"
	"github.com/fathima-sithara/conversation-service/internal/database"
	"github.com/fathima-sithara/conversation-service/internal/discovery"
	"github.com/fathima-sithara/conversation-service/internal/handlers"
	"github.com/fathima-sithara/conversation-service/internal/hub"
	"github.com/fathima-sithara/conversation-service/internal/kafka"
	"github.com/fathima-sithara/conversation-service/internal/media"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/presence"
	"github.com/fathima-sithara/conversation-service/internal/ratelimit"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/repository/memory"
	"github.com/fathima-sithara/conversation-service/internal/routes"
	"github.com/fathima-sithara/conversation-service/internal/server"
	"github.com/fathima-sithara/conversation-service/internal/service"
	"github.com/fathima-sithara/conversation-service/internal/storage"
	"github.com/fathima-sithara/conversation-service/internal/twilio"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type repos struct {
	messages      repository.MessageRepository
	chats         repository.ChatRepository
	favorites     repository.FavoriteRepository
	verifications repository.VerificationRepository
	blueTicks     repository.BlueTickRepository
	tx            repository.Transactor
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.IsDevelopment(), cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Infof("Starting %s (%s) in %s environment on port %d", cfg.App.Name, cfg.App.InstanceID, cfg.App.Env, cfg.App.Port)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthCheck{}

	// Store
	var (
		store       repos
		mongoClient *mongo.Client
	)
	switch cfg.Store.Driver {
	case "mongo":
		mongoClient, err = database.ConnectMongo(cfg.Mongo.URI, cfg.App.Name, logger)
		if err != nil {
			logger.Fatal(err)
		}
		ms := repository.NewMongoStore(mongoClient, cfg.Mongo.Database, cfg.Mongo.Transactions)
		idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := ms.EnsureIndexes(idxCtx); err != nil {
			cancel()
			logger.Fatalf("ensure indexes: %v", err)
		}
		cancel()
		store = repos{ms.Messages, ms.Chats, ms.Favorites, ms.Verifications, ms.BlueTicks, ms.Tx}
		checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	default:
		logger.Warn("using the in-memory store; data is lost on restart")
		mem := memory.New()
		store = repos{mem.Messages, mem.Chats, mem.Favorites, mem.Verifications, mem.BlueTicks, mem}
	}

	// Blobs
	var (
		blobs      service.BlobStore
		blobReader handlers.BlobReader
	)
	if cfg.S3.Driver == "memory" {
		mem := storage.NewMemoryStore(fmt.Sprintf("http://localhost:%d/media", cfg.App.Port))
		blobs, blobReader = mem, mem
	} else {
		s3Store, err := storage.NewS3Store(ctx, cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.S3.PublicRead, cfg.PresignTTL)
		if err != nil {
			logger.Fatalf("s3 init: %v", err)
		}
		blobs = s3Store
	}

	// Redis: presence and distributed limiters. Optional for local runs.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal(err)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		logger.Warn("redis disabled: presence is off and rate limits are per instance")
	}
	otpLimiter := newLimiter(rdb, cfg.Redis.Prefix+":ratelimit:otp", cfg.Verification.RateLimitPerHour, time.Hour)
	sendLimiter := newLimiter(rdb, cfg.Redis.Prefix+":ratelimit:send", cfg.RateLimit.SendsPerMinute, time.Minute)

	// Events
	var (
		events   service.EventPublisher
		producer *kafka.Producer
		consumer *kafka.Consumer
	)
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		events = kafka.NewPublisher(producer, cfg.App.InstanceID, logger)
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.App.InstanceID, logger)
	}

	// SMS
	var sms twilio.Client = twilio.LogClient{Logger: logger}
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		sms = twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, twilio.Options{
			BaseURL:    cfg.Twilio.BaseURL,
			MaxRetries: cfg.Twilio.MaxRetries,
		})
		logger.Info("Twilio client configured.")
	} else {
		logger.Warn("Twilio client not configured. Verification codes are logged instead of sent.")
	}

	// Services
	clock := utils.NewClock()
	validate := utils.NewValidator()
	conversations := hub.New(store.messages.ListByConversation, logger)
	chatSvc := service.NewChatService(service.ChatDeps{
		Messages: store.messages,
		Chats:    store.chats,
		Tx:       store.tx,
		Blobs:    blobs,
		Media:    media.NewProcessor(cfg.Media.MaxImageDimension, cfg.Media.JPEGQuality, cfg.S3.MaxUploadBytes),
		Hub:      conversations,
		Events:   events,
		Clock:    clock,
		Logger:   logger,
	})
	verificationSvc := service.NewVerificationService(service.VerificationDeps{
		Repo:        store.verifications,
		Limiter:     otpLimiter,
		SMS:         sms,
		Events:      events,
		Validate:    validate,
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.Verification.MaxAttempts,
		Clock:       clock,
		Logger:      logger,
	})

	if consumer != nil {
		go consumer.Run(ctx, chatSvc.OnRemoteEvent)
	}

	deps := handlers.Deps{
		Chats:        chatSvc,
		Favorites:    service.NewFavoriteService(store.favorites, clock, logger),
		Verification: verificationSvc,
		BlueTicks:    service.NewBlueTickService(store.blueTicks, validate, clock, logger),
		Blobs:        blobReader,
		Validate:     validate,
		WS: handlers.WSConfig{
			PingInterval:    cfg.PingInterval,
			WriteDeadline:   cfg.WriteDeadline,
			MaxMessageBytes: cfg.WS.MaxMessageSizeBytes,
		},
		Checks: checks,
		Logger: logger,
	}
	if rdb != nil {
		deps.Presence = presence.NewStore(rdb, cfg.Redis.Prefix, 2*cfg.PingInterval)
	}
	h := handlers.NewHandler(deps)

	jwtValidator, err := auth.NewJWTValidator(cfg.JWT.PublicKeyPath, cfg.JWT.Secret)
	if err != nil {
		logger.Fatalf("jwt init: %v", err)
	}
	ipLimiter := ratelimit.NewIPRateLimiter(ctx, cfg.RateLimit.IPPerMinute, logger)

	app := server.New(server.Options{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.S3.MaxUploadBytes) + 1<<20,
		IPLimit:   ipLimiter.Handler(),
		Routes: routes.Options{
			Auth: middlewares.JWTAuth(jwtValidator),
			SendLimit: ratelimit.KeyHandler(sendLimiter, func(c *fiber.Ctx) string {
				return middlewares.UserID(c)
			}, logger),
			ServeMedia: blobReader != nil,
		},
	}, h, logger)

	// Consul
	var registry *discovery.Registry
	serviceID := cfg.Consul.ServiceName + "-" + cfg.App.InstanceID
	if cfg.Consul.Addr != "" {
		registry, err = discovery.NewRegistry(cfg.Consul.Addr, logger)
		if err != nil {
			logger.Fatalf("consul init: %v", err)
		}
		if err := registry.Register(discovery.Registration{
			ID:      serviceID,
			Name:    cfg.Consul.ServiceName,
			Host:    cfg.Consul.ServiceHost,
			Port:    cfg.App.Port,
			Tags:    []string{"http", "ws"},
			Checker: "/healthz",
		}); err != nil {
			logger.Warnw("consul registration failed", "error", err)
			registry = nil
		}
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		if err := app.Listen(addr); err != nil {
			logger.Errorw("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdown(cfg.ShutdownTimeout, logger, app, registry, serviceID, consumer, producer, conversations, rdb, mongoClient)
}

func newLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) ratelimit.Limiter {
	if rdb != nil {
		return ratelimit.NewRedisLimiter(rdb, prefix, limit, window)
	}
	return ratelimit.NewMemoryLimiter(limit, window)
}

func shutdown(timeout time.Duration, logger *zap.SugaredLogger, app *fiber.App, registry *discovery.Registry, serviceID string,
	consumer *kafka.Consumer, producer *kafka.Producer, conversations *hub.Hub, rdb *redis.Client, mongoClient *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if registry != nil {
		if err := registry.Deregister(serviceID); err != nil {
			logger.Warnw("consul deregistration failed", "error", err)
		}
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Warnw("http shutdown", "error", err)
	}
	if consumer != nil {
		_ = consumer.Close()
	}
	if producer != nil {
		_ = producer.Close()
	}
	conversations.Close()
	if rdb != nil {
		_ = rdb.Close()
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Warnw("mongo disconnect", "error", err)
		}
	}
	logger.Info("shutdown complete")
}
