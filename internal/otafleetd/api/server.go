package api

import (
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/auth"
	"github.com/otafleet/otafleet/internal/otafleetd/config"
	"github.com/otafleet/otafleet/internal/otafleetd/storage"
	"github.com/otafleet/otafleet/internal/otafleetd/store"
)

// Version is the server version
const Version = "1.0.0"

// Server is the API server
type Server struct {
	router  *gin.Engine
	cfg     *config.Config
	jwt     *auth.Manager
	backend storage.Backend

	apps     *store.AppStore
	versions *store.VersionStore
	devices  *store.DeviceStore
	groups   *store.GroupStore
	tasks    *store.TaskStore
	logs     *store.LogStore
	users    *store.UserStore
	tokens   *store.TokenStore
	uploads  *store.UploadStore
	stats    *store.StatsStore
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, db *sql.DB, backend storage.Backend) (*Server, error) {
	jwtManager, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  gin.Default(),
		cfg:     cfg,
		jwt:     jwtManager,
		backend: backend,

		apps:     store.NewAppStore(db),
		versions: store.NewVersionStore(db),
		devices:  store.NewDeviceStore(db),
		groups:   store.NewGroupStore(db),
		tasks:    store.NewTaskStore(db),
		logs:     store.NewLogStore(db),
		users:    store.NewUserStore(db),
		tokens:   store.NewTokenStore(db),
		uploads:  store.NewUploadStore(db),
		stats:    store.NewStatsStore(db),
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/uploads/*path", s.authRequired(), s.handleDownload)

	api := s.router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/refresh", s.handleRefresh)
		authGroup.POST("/logout", s.handleLogout)
		authGroup.GET("/me", s.authRequired(), s.handleMe)
	}

	protected := api.Group("", s.authRequired())

	apps := protected.Group("/apps")
	{
		apps.GET("", s.handleListApps)
		apps.POST("", s.writeRequired(), s.handleCreateApp)
		apps.GET("/:appId", s.appScoped("appId"), s.handleGetApp)
		apps.PUT("/:appId", s.writeRequired(), s.appScoped("appId"), s.handleUpdateApp)
		apps.DELETE("/:appId", s.adminRequired(), s.handleDeleteApp)
		apps.PUT("/:appId/current-version", s.writeRequired(), s.appScoped("appId"), s.handleSetCurrentVersion)
	}

	scoped := protected.Group("/apps/:appId", s.appScoped("appId"))
	{
		scoped.GET("/versions", s.handleListVersions)
		scoped.POST("/versions", s.writeRequired(), s.handleCreateVersion)
		scoped.POST("/versions/by-url", s.writeRequired(), s.handleCreateVersionByURL)
		scoped.GET("/versions/:id", s.handleGetVersion)
		scoped.DELETE("/versions/:id", s.writeRequired(), s.handleDeleteVersion)
		scoped.POST("/versions/:id/publish", s.writeRequired(), s.handlePublishVersion)
		scoped.POST("/versions/:id/rollback", s.writeRequired(), s.handleRollbackVersion)

		scoped.GET("/update-tasks", s.handleListTasks)
		scoped.GET("/update-tasks/:id", s.handleGetTask)

		scoped.GET("/users", s.handleListDevices)
		scoped.GET("/users/:id", s.handleGetDevice)
		scoped.PUT("/users/:id/target-version", s.writeRequired(), s.handleSetTargetVersion)
		scoped.POST("/users/:id/update", s.writeRequired(), s.handleUpdateDevice)
		scoped.POST("/users/batch-update", s.writeRequired(), s.handleBatchUpdateDevices)
		scoped.POST("/users/:id/rollback", s.writeRequired(), s.handleRollbackDevice)

		scoped.GET("/user-groups", s.handleListGroups)
		scoped.POST("/user-groups", s.writeRequired(), s.handleCreateGroup)
		scoped.GET("/user-groups/:id", s.handleGetGroup)
		scoped.PUT("/user-groups/:id", s.writeRequired(), s.handleUpdateGroup)
		scoped.DELETE("/user-groups/:id", s.writeRequired(), s.handleDeleteGroup)
		scoped.POST("/user-groups/:id/users", s.writeRequired(), s.handleAddGroupUsers)
		scoped.DELETE("/user-groups/:id/users", s.writeRequired(), s.handleRemoveGroupUsers)

		scoped.GET("/logs", s.handleListLogs)
		scoped.GET("/logs/export", s.handleExportLogs)
		scoped.GET("/logs/:id", s.handleGetLog)

		scoped.GET("/stats", s.handleStats)
		scoped.GET("/stats/version-distribution", s.handleVersionDistribution)
		scoped.GET("/stats/update-success-rate", s.handleUpdateSuccessRate)
	}

	users := protected.Group("/users", s.adminRequired())
	{
		users.GET("", s.handleListUsers)
		users.POST("", s.handleCreateUser)
		users.PUT("/:id", s.handleUpdateUser)
		users.DELETE("/:id", s.handleDeleteUser)
		users.POST("/:id/reset-password", s.handleResetPassword)
		users.POST("/:id/toggle-status", s.handleToggleStatus)
	}

	protected.POST("/upload", s.writeRequired(), s.handleUpload)
	protected.GET("/upload/:uploadId/progress", s.handleUploadProgress)
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%d", s.cfg.Server.Port))
}

// Handler exposes the router for tests
func (s *Server) Handler() *gin.Engine {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok", "version": Version})
}
