// Package server assembles the HTTP API: services, handlers, middleware and
// routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"homeserve/internal/cache"
	"homeserve/internal/config"
	_ "homeserve/internal/docs" // swagger document
	apperrors "homeserve/internal/errors"
	"homeserve/internal/handlers"
	"homeserve/internal/mail"
	"homeserve/internal/metrics"
	"homeserve/internal/middleware"
	"homeserve/internal/models"
	"homeserve/internal/services"
	"homeserve/internal/validator"
)

// Deps are the external resources the API runs on.
type Deps struct {
	DB     *gorm.DB
	Store  cache.TTLStore
	Mailer mail.Sender
	Config *config.Config
}

// NewRouter wires every service and handler and registers the routes under
// /api.
func NewRouter(d Deps) *gin.Engine {
	userService := services.NewUserService(d.DB)
	roleService := services.NewRoleService(d.DB, services.NewPermissionCache(d.Store))
	categoryService := services.NewCategoryService(d.DB)
	auditService := services.NewAuditService(d.DB)
	verificationService := services.NewVerificationService(d.Store, d.Mailer,
		d.Config.VerificationCodeTTL, d.Config.VerificationSendInterval)
	denylist := cache.NewDenylist(d.Store)

	authHandler := handlers.NewAuthHandler(userService, verificationService, auditService, denylist)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	adminHandler := handlers.NewAdminHandler(userService, roleService, auditService)
	supportHandler := handlers.NewSupportHandler(verificationService, auditService)

	validator.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(metrics.Middleware())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.NoRoute(func(c *gin.Context) {
		middleware.RenderError(c, apperrors.ErrNotFound)
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/email-login", authHandler.EmailLogin)
	auth.POST("/send-email-code", authHandler.SendEmailCode)
	auth.GET("/check-username/:username", authHandler.CheckUsername)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// Support tooling
	support := api.Group("/support")
	support.Use(middleware.APIKeyAuth(d.Config.SupportAPIKey))
	support.DELETE("/verification-codes", supportHandler.ClearVerificationCodes)

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(denylist))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/user/me", authHandler.Me)

	categories := protected.Group("/service-categories")
	categories.Use(middleware.RequirePermission(roleService, models.PermManageServices))
	categories.GET("", categoryHandler.ListCategories)
	categories.POST("", categoryHandler.CreateCategory)
	categories.POST("/batch-delete", categoryHandler.BatchDeleteCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.PUT("/:id/status", categoryHandler.ToggleCategoryStatus)
	categories.POST("/:id/restore", categoryHandler.RestoreCategory)

	admin := protected.Group("/admin")
	admin.GET("/permissions", adminHandler.Permissions)
	admin.POST("/assign-role", middleware.RequireRole(roleService, models.RoleSuperAdmin), adminHandler.AssignRole)
	admin.GET("/users", middleware.RequirePermission(roleService, models.PermManageUsers), adminHandler.ListUsers)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
