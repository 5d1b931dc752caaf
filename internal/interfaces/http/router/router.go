// Package router wires handlers onto the gin engine. Handlers register
// themselves through RouteRegistrar so the wiring in cmd stays declarative.
package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RegistrarFunc adapts a plain function to the RouteRegistrar interface
type RegistrarFunc func(rg *gin.RouterGroup)

// RegisterRoutes implements RouteRegistrar
func (f RegistrarFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

// Router manages HTTP route registration. Public registrars attach at the
// root group (webhooks, OAuth callbacks, health); protected registrars
// attach under the versioned API group behind the auth middleware.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	auth       []gin.HandlerFunc
	public     []RouteRegistrar
	protected  []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAuthMiddleware sets the middleware applied to the protected group
func WithAuthMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.auth = mw
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterPublic adds a registrar served without authentication
func (r *Router) RegisterPublic(registrar RouteRegistrar) *Router {
	r.public = append(r.public, registrar)
	return r
}

// Register adds a registrar served under the authenticated API group
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.protected = append(r.protected, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	root := r.engine.Group("")
	for _, registrar := range r.public {
		registrar.RegisterRoutes(root)
	}

	api := r.engine.Group("/api/"+r.apiVersion, r.auth...)
	for _, registrar := range r.protected {
		registrar.RegisterRoutes(api)
	}
}
