package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/interfaces/http/handler"
	"github.com/supportdesk/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	system     *handler.SystemHandler
	registrars []RouteRegistrar
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, system *handler.SystemHandler) *Router {
	return &Router{
		engine:     engine,
		apiVersion: "v1",
		system:     system,
		registrars: make([]RouteRegistrar, 0),
	}
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup(logger *zap.Logger) {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.RequestLogger(logger))

	r.engine.GET("/health", r.system.Health)
	r.engine.GET("/ready", r.system.Ready)

	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}
