package routes

import (
	"fileshare/internal/handlers"
	"fileshare/internal/middleware"
	"fileshare/internal/repositories"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter builds the gin engine with the full route table.
func SetupRouter(h *handlers.AppHandlers, userRepo repositories.UserRepository, db *gorm.DB) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DBMiddleware(db))

	r.GET("/healthz", h.HealthHandler.Health)

	api := r.Group("/api/v1")

	authRequired := middleware.AuthMiddleware(userRepo)
	authOptional := middleware.OptionalAuthMiddleware(userRepo)

	// Authentication
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.AuthHandler.Register)
		auth.POST("/login", h.AuthHandler.Login)
		auth.POST("/password", authRequired, h.AuthHandler.ChangePassword)
	}

	// Current user
	users := api.Group("/users", authRequired)
	{
		users.GET("/me", h.UserHandler.GetProfile)
		users.PATCH("/me", h.UserHandler.UpdateProfile)
		users.GET("/me/usage", h.UserHandler.GetUsage)
	}

	// Files: metadata and downloads honor anonymous viewers so public and
	// link-only visibility can be evaluated per request.
	files := api.Group("/files")
	{
		files.GET("", authRequired, h.FileHandler.ListMine)
		files.GET("/public", authOptional, h.FileHandler.ListPublic)
		files.GET("/:fileId", authOptional, h.FileHandler.GetFile)
		files.GET("/:fileId/download", authOptional, h.FileHandler.Download)
		files.GET("/:fileId/url", authOptional, h.FileHandler.GetDownloadURL)
		files.PUT("/:fileId/share", authRequired, h.FileHandler.UpdateShare)
		files.DELETE("/:fileId", authRequired, h.FileHandler.Delete)

		// Resumable chunked upload protocol
		upload := files.Group("/upload", authRequired)
		{
			upload.POST("/create", h.UploadHandler.CreateTask)
			upload.POST("/chunk/:taskId/:chunkIndex", h.UploadHandler.UploadChunk)
			upload.POST("/complete/:taskId", h.UploadHandler.CompleteTask)
		}
	}

	// Administration
	admin := api.Group("/admin", authRequired, middleware.AdminMiddleware())
	{
		admin.GET("/users", h.AdminHandler.ListUsers)
		admin.PUT("/users/:userId/limits", h.AdminHandler.UpdateUserLimits)
		admin.DELETE("/users/:userId", h.AdminHandler.DeleteUser)
		admin.GET("/config", h.AdminHandler.GetConfig)
		admin.PUT("/config", h.AdminHandler.SetConfig)
	}

	return r
}
