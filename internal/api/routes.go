package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvmaker/internal/api/middleware"
	"cvmaker/internal/auth"
	"cvmaker/internal/config"
	"cvmaker/internal/export"
	"cvmaker/internal/quota"
	"cvmaker/internal/storage"
)

// RegisterRoutes wires up the API surface under /v1.
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	ledger *quota.Ledger,
	exportService *export.Service,
) {
	authHandler := NewAuthHandler(db, authService, redisClient, logger, cfg.Quota, cfg.Auth.CookieDomain)
	cvHandler := NewCVHandler(db, ledger, exportService, asynqClient, logger)
	userHandler := NewUserHandler(db, ledger, logger)
	assetHandler := NewAssetHandler(db, storageClient, logger, cfg.API.ClamdAddr)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		cvGroup := v1.Group("/cv")
		cvGroup.Use(authMiddleware)
		{
			cvGroup.GET("", cvHandler.List)
			cvGroup.POST("", cvHandler.Create)
			cvGroup.GET("/templates/list", cvHandler.Templates)
			cvGroup.GET("/:id", cvHandler.Get)
			cvGroup.PUT("/:id", cvHandler.Update)
			cvGroup.DELETE("/:id", cvHandler.Delete)
			cvGroup.POST("/:id/download", cvHandler.Download)
		}

		userGroup := v1.Group("/user")
		userGroup.Use(authMiddleware)
		{
			userGroup.GET("/profile", userHandler.Profile)
			userGroup.PUT("/profile", userHandler.UpdateProfile)
			userGroup.GET("/stats", userHandler.Stats)
			userGroup.POST("/upgrade", userHandler.Upgrade)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/profile-photo", assetHandler.UploadProfilePhoto)
			assetGroup.GET("/profile-photo", assetHandler.ProfilePhotoURL)
		}
	}
}
