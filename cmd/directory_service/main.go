package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"support_chat_service/internal/directory/app"
	"support_chat_service/internal/directory/domain"
	"support_chat_service/internal/directory/repository"
	"support_chat_service/internal/directory/router"
	"support_chat_service/pkg/config"
	"support_chat_service/pkg/database"
	"support_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.DirectoryService, config.EnvConfig.DirectoryServiceLogPath)
	cfg := config.LoadConfig[config.Directory](config.EnvConfig.DirectoryService, config.EnvConfig.DirectoryServiceYAMLPath)

	// accounts live in postgres
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    connStr,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
	}
	defer pool.Close()

	// tenants go through gorm on the same database
	gormDB, err := database.NewPGConnection(database.Connection{
		ConnectStr:    connStr,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres via gorm err : %v", err))
	}

	tenantRepo := repository.NewTenantRepo(gormDB)
	if err := tenantRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal(fmt.Sprintf("tenant migrate err : %v", err))
	}

	// sessions live in redis
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	sessionRepo := database.NewRedisRepository[domain.UserSession](redisClient)

	userRepo := repository.NewUserRepository(pool)
	usecase := app.NewDirectoryUseCase(userRepo, tenantRepo, cfg.SessionTTL, sessionRepo)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.DirectoryServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, app.NewDirectoryHandler(usecase))

	port := ":" + cfg.Port
	log.Printf("Directory Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
