package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"support_chat_service/internal/directory/repository"
	supportapp "support_chat_service/internal/support/app"
	supportrepo "support_chat_service/internal/support/repository"
	"support_chat_service/internal/support/router"
	"support_chat_service/pkg/config"
	"support_chat_service/pkg/database"
	"support_chat_service/pkg/logger"
	testtool "support_chat_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.SupportService, config.EnvConfig.SupportServiceLogPath)
	cfg := config.LoadConfig[config.Support](config.EnvConfig.SupportService, config.EnvConfig.SupportServiceYAMLPath)
	testtool.StartPprof()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// mongo holds conversations and the message log
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// redis carries the rooms
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// postgres for device token lookups on push fallback
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr: fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			cfg.PG.User, cfg.PG.Password, cfg.PG.Host, cfg.PG.Port, cfg.PG.Database),
		RetryCount:    cfg.PG.RetryCount,
		RetryInterval: time.Duration(cfg.PG.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
	}
	userRepo := repository.NewUserRepository(pool)

	// rabbitmq hands notifications to the push worker
	var pushQueue supportrepo.PushQueue
	rabbitConn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port),
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		logger.Log.Error(fmt.Sprintf("connect rabbitmq err : %v, push fallback disabled", err))
	} else {
		channel, err := database.GetRabbitMQChannelWithRetry(rabbitConn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval)*time.Second)
		if err != nil {
			logger.Log.Error(fmt.Sprintf("rabbitmq channel err : %v, push fallback disabled", err))
		} else if pushQueue, err = supportrepo.NewRabbitPushQueue(channel, cfg.RabbitMQ.PushQueue, cfg.RabbitMQ.ResultQueue); err != nil {
			logger.Log.Error(fmt.Sprintf("declare push queues err : %v, push fallback disabled", err))
			pushQueue = nil
		}
	}

	// kafka keeps the best-effort message journal
	var journal supportrepo.JournalRepository
	kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
	})
	if err != nil {
		logger.Log.Error(fmt.Sprintf("kafka writer err : %v, journal disabled", err))
	} else {
		defer kafkaWriter.Close()
		journal = supportrepo.NewKafkaJournalRepository(kafkaWriter)
	}

	// minio stores attachments
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Error(fmt.Sprintf("minio err : %v, uploads disabled", err))
		minioClient = nil
	}

	convRepo := supportrepo.NewMongoConversationRepository(mongo.Database)
	msgRepo := supportrepo.NewMongoMessageRepository(mongo.Database)
	bus := supportrepo.NewRedisPubSub(redisClient)

	presence := supportapp.NewPresence(bus)
	dispatcher := supportapp.NewDispatcher(bus, presence, pushQueue, journal, supportapp.NewDirectoryTokens(userRepo))
	dispatcher.StartResultConsumer(ctx)

	convUC := supportapp.NewConversationUseCase(convRepo, msgRepo, dispatcher)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.SupportServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		supportapp.NewSupportWebsocketHandler(convUC, presence),
		supportapp.NewSupportHandler(convUC, minioClient),
	)

	port := ":" + cfg.Port
	log.Printf("Support Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
