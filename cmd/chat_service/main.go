package main

// @title Campus Chat Service API
// @version 1.0
// @description Community room history, fallback compose and realtime push for the campus incident app.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "campus_chat_service/cmd/chat_service/docs" // 引入生成的 Swagger 文档
	"campus_chat_service/internal/chat/app"
	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/internal/chat/router"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/database"
	"campus_chat_service/pkg/logger"
	testtool "campus_chat_service/pkg/test_tool"
	"campus_chat_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configDir := pflag.String("config-dir", config.EnvConfig.ChatServiceYAMLPath, "directory holding chat_service.yaml")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pprofAddr := pflag.String("pprof", ":6060", "pprof listen address, ignored in production")
	pflag.Parse()

	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	logger.Log.SetDebugMode(*debug)

	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, *configDir)
	cfg.Room.ApplyDefaults()
	if cfg.JWTSecret != "" {
		token.SetSecret(cfg.JWTSecret)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Mongo (訊息)
	uri := database.MongoURI(cfg.MongoSQL.Host, cfg.MongoSQL.Port, cfg.MongoSQL.User, cfg.MongoSQL.Password)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal("Unable to connect to mongoDB database after retries",
			zap.String("host", cfg.MongoSQL.Host),
			zap.Error(err),
		)
	}
	defer mongo.Close(context.Background())

	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("ensure message indexes", zap.Error(err))
	}

	// 2. Redis (跨實例廣播 + 會員快取)
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()

	hub := app.NewHub(cfg.Room.Name, repository.NewRedisPubSub(redisClient))
	go func() {
		if err := hub.Listen(ctx); err != nil {
			logger.Log.Error("room relay stopped", zap.Error(err))
		}
	}()

	// 3. PostgreSQL 會員名稱 (optional)
	var members repository.MemberRepository
	if cfg.Postgres.Enabled() {
		pool, err := database.NewDatabaseConnection(ctx, database.Connection{
			ConnectStr:    database.PostgresURI(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database),
			RetryCount:    cfg.Postgres.RetryCount,
			RetryInterval: time.Duration(cfg.Postgres.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("Unable to connect to postgres after retries", zap.Error(err))
		}
		defer pool.Close()

		cache := database.NewRedisRepository[domain.Member](redisClient, "chat:member")
		members = repository.NewMemberRepository(pool, cache, cfg.Room.MemberCacheTTL)
	}

	messageUC := app.NewMessageUseCase(msgRepo, members, hub, cfg.Room)

	// 4. 案件事件 -> 系統訊息
	startReportConsumer(ctx, cfg.Reports, messageUC)

	// 5. Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	router.RegisterRoutes(r, cfg.Room,
		app.NewChatWebsocketHandler(messageUC, hub, cfg.Room),
		app.NewChatHTTPHandler(messageUC),
	)

	testtool.StartPprof(*pprofAddr)

	port := cfg.Port
	if config.EnvConfig.ChatServicePort != "" {
		port = config.EnvConfig.ChatServicePort
	}

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	logger.Log.Info("Chat Service listening", zap.String("port", port), zap.String("room", cfg.Room.Name))
	if err := r.Listen(":" + port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

func connectRedis(c config.RedisConfig) *redis.Client {
	var (
		client *redis.Client
		err    error
	)
	if c.Addr != "" {
		client, err = database.NewRedisStandalone(c.Addr, c.RedisDB)
	} else {
		masterName, sentinel := config.GetRedisSetting()
		client, err = database.NewRedisClient(masterName, sentinel, c.RedisDB)
	}
	if err != nil {
		logger.Log.Fatal("connect redis", zap.Error(err))
	}
	return client
}

func startReportConsumer(ctx context.Context, c config.ReportEvents, notifier app.ReportNotifier) {
	interval := time.Duration(c.RetryInterval) * time.Second

	var consumer app.ReportSource
	switch c.Driver {
	case "rabbitmq":
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    c.URL,
			RetryCount:    c.RetryCount,
			RetryInterval: interval,
		})
		if err != nil {
			logger.Log.Fatal("connect rabbitmq", zap.Error(err))
		}
		ch, err := database.GetRabbitMQChannelWithRetry(conn, c.RetryCount, interval)
		if err != nil {
			logger.Log.Fatal("open rabbitmq channel", zap.Error(err))
		}
		consumer = app.NewRabbitReportConsumer(database.NewRabbitRepository(ch), c.Queue)

	case "kafka":
		reader, err := database.NewKafkaReaderWithRetry(ctx, database.KafkaConnection{
			Brokers:       c.Brokers,
			Topic:         c.Topic,
			GroupID:       c.GroupID,
			RetryCount:    c.RetryCount,
			RetryInterval: interval,
		})
		if err != nil {
			logger.Log.Fatal("connect kafka", zap.Error(err))
		}
		consumer = app.NewKafkaReportConsumer(reader)

	default:
		logger.Log.Info("report events disabled", zap.String("driver", c.Driver))
		return
	}

	go func() {
		if err := consumer.Run(ctx, notifier); err != nil && ctx.Err() == nil {
			logger.Log.Error("report consumer stopped", zap.String("driver", c.Driver), zap.Error(err))
		}
	}()
}
