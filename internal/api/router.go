package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/filevault/filevault/internal/auth"
	"github.com/filevault/filevault/internal/handlers"
	"github.com/filevault/filevault/internal/middleware"
	"github.com/filevault/filevault/internal/permissions"
	"github.com/filevault/filevault/internal/services"
)

// Deps bundles the long-lived services the router wires together.
type Deps struct {
	DB         *gorm.DB
	Identities *iauth.IdentityService
	Accounts   *iauth.AccountService
	Engine     *permissions.Engine
	Files      *services.FileService
}

// NewRouter builds the Gin engine and registers all routes. File routes
// carry both enforcement adapters: the declarative one keyed by the
// capability the route declares and the interception one keyed by the
// request method. Either denial is final.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Identities == nil || deps.Accounts == nil {
		return nil, fmt.Errorf("auth services must be provided")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("authorization engine must be provided")
	}
	if deps.Files == nil {
		return nil, fmt.Errorf("file service must be provided")
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())

	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Identities)
	fileHandler := handlers.NewFileHandler(deps.Files)
	permHandler := handlers.NewPermissionHandler(deps.Engine)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/validate", authHandler.Validate)
	}

	authed := r.Group("/api")
	authed.Use(middleware.Auth(deps.Identities))
	authed.Use(middleware.FileAccess(deps.Engine))

	files := authed.Group("/files")
	{
		files.POST("", middleware.RequireCapability(deps.Engine, permissions.CapabilityUpload), fileHandler.Upload)
		files.GET("", fileHandler.List)
		files.GET("/accessible", permHandler.ListAccessible)
		files.GET("/:fileId", middleware.RequireCapability(deps.Engine, permissions.CapabilityView), fileHandler.Get)
		files.GET("/:fileId/content", middleware.RequireCapability(deps.Engine, permissions.CapabilityDownload), fileHandler.Download)
		files.PUT("/:fileId", middleware.RequireCapability(deps.Engine, permissions.CapabilityUpdate), fileHandler.Update)
		files.DELETE("/:fileId", middleware.RequireCapability(deps.Engine, permissions.CapabilityDelete), fileHandler.Delete)

		files.GET("/:fileId/permissions", middleware.RequireCapability(deps.Engine, permissions.CapabilityView), permHandler.List)
		files.POST("/:fileId/permissions", middleware.RequireCapability(deps.Engine, permissions.CapabilityShare), permHandler.Grant)
		files.DELETE("/:fileId/permissions", middleware.RequireCapability(deps.Engine, permissions.CapabilityShare), permHandler.Revoke)
	}

	return r, nil
}
