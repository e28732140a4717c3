// internal/server/server.go

package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/vizlog/vizlog/internal/applog"
	"github.com/vizlog/vizlog/internal/config"
	"github.com/vizlog/vizlog/internal/destination"
	"github.com/vizlog/vizlog/internal/handler"
	"github.com/vizlog/vizlog/internal/rules"
)

// Dependencies holds the dependencies needed by the server.
type Dependencies struct {
	Config       *config.Config
	Destinations *destination.Manager
	Rules        *rules.Processor
	AppLog       *applog.Logger
}

// Server represents the collector's HTTP server.
type Server struct {
	router *gin.Engine
	config *config.Config
	appLog *applog.Logger
}

// NewServer creates a new server instance with its dependencies.
func NewServer(deps Dependencies) *Server {
	if deps.Config == nil {
		panic("server: Config dependency cannot be nil")
	}
	if deps.Destinations == nil {
		panic("server: Destinations dependency cannot be nil")
	}
	if deps.Rules == nil {
		panic("server: Rules dependency cannot be nil")
	}
	if deps.AppLog == nil {
		panic("server: AppLog dependency cannot be nil")
	}

	if deps.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if deps.Config.Server.Mode == "debug" {
		router.Use(gin.Logger())
	}

	server := &Server{
		router: router,
		config: deps.Config,
		appLog: deps.AppLog,
	}
	server.setupRoutes(deps)
	return server
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes(deps Dependencies) {
	s.router.GET("/health", func(c *gin.Context) {
		s.appLog.Health("Health endpoint called from %s", c.ClientIP())
		c.JSON(200, gin.H{"status": "ok"})
	})
	s.router.HEAD("/health", func(c *gin.Context) {
		s.appLog.Health("Health endpoint called from %s", c.ClientIP())
		c.Status(200)
	})

	s.router.GET("/version", handler.VersionHandler)

	// The event channel namespace doubles as the WebSocket route.
	s.router.GET(s.config.Server.Namespace, handler.NewProgramHandler(handler.ProgramHandlerDeps{
		Config:       deps.Config,
		Destinations: deps.Destinations,
		Rules:        deps.Rules,
		AppLog:       deps.AppLog,
	}))
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.appLog.Info("Starting collector on %s (namespace %s)", addr, s.config.Server.Namespace)
	return s.router.Run(addr)
}

// Router exposes the underlying Gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
