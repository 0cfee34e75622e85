package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fileshare/database"
	"fileshare/internal/auth"
	"fileshare/internal/config"
	"fileshare/internal/handlers"
	"fileshare/internal/logger"
	"fileshare/internal/models"
	"fileshare/internal/repositories"
	"fileshare/internal/routes"
	"fileshare/internal/services"
	"fileshare/internal/storage"
	"fileshare/internal/validator"
	"fileshare/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	auth.InitJWT(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	ginRouter, cleanup := buildRouter(cfg, gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleanup.Start(ctx)

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// buildRouter wires storage, repositories, services, handlers and the
// cleanup worker, and returns the configured engine.
func buildRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *workers.CleanupWorker) {
	store, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	chunkStore, err := storage.NewChunkStore(cfg.Upload.StagingDir)
	if err != nil {
		logger.Fatal("Failed to initialize chunk staging", "error", err)
	}

	userRepo := repositories.NewUserRepository(gormDB)
	fileRepo := repositories.NewFileRepository(gormDB)
	taskRepo := repositories.NewUploadTaskRepository(gormDB)
	configRepo := repositories.NewConfigRepository(gormDB)

	svc := services.NewServiceContainer(services.ContainerDeps{
		UserRepo:         userRepo,
		FileRepo:         fileRepo,
		TaskRepo:         taskRepo,
		ConfigRepo:       configRepo,
		Store:            store,
		ChunkStore:       chunkStore,
		DefaultChunkSize: cfg.Upload.DefaultChunkSize,
	})

	if err := svc.Config.Seed(cfg.Defaults); err != nil {
		logger.Fatal("Failed to seed site configuration", "error", err)
	}

	v := validator.New()
	appHandlers := handlers.NewAppHandlers(svc, v)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRouter(appHandlers, userRepo, gormDB)

	cleanup := workers.NewCleanupWorker(
		taskRepo, fileRepo, chunkStore, store,
		time.Duration(cfg.Upload.TaskRetention)*time.Hour,
		time.Duration(cfg.Upload.AbandonAfter)*time.Hour,
		time.Duration(cfg.Upload.SweepInterval)*time.Minute,
	)

	return router, cleanup
}

// seedFirstAdmin creates the bootstrap administrator when configured and no
// admin account exists yet.
func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	username := cfg.FirstAdminUsername
	password := cfg.FirstAdminPassword

	if username == "" || password == "" {
		logger.Warn("FIRST_ADMIN_USERNAME or FIRST_ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	var existing models.User
	err := db.Where("role = ?", models.UserRoleAdmin).First(&existing).Error
	if err == nil {
		return nil // an admin already exists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:      username,
		PasswordHash:  hash,
		Role:          models.UserRoleAdmin,
		MaxFileSize:   cfg.Defaults.MaxFileSize,
		MaxTotalFiles: cfg.Defaults.MaxTotalFiles,
		MaxTotalSize:  cfg.Defaults.MaxTotalSize,
		Theme:         cfg.Defaults.Theme,
		Language:      cfg.Defaults.Language,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("First admin user created", "username", username)
	return nil
}
