// Package router assembles the gin engine and mounts the API route groups.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Router mounts DomainGroups under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	groups     []*DomainGroup
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion overrides the "v1" path segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router over engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues groups for Setup. Nil groups are skipped.
func (r *Router) Register(groups ...*DomainGroup) *Router {
	for _, g := range groups {
		if g != nil {
			r.groups = append(r.groups, g)
		}
	}
	return r
}

// Setup mounts every registered group on the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.basePath())
	for _, g := range r.groups {
		g.mount(api)
	}
}

// Routes lists every endpoint Setup mounts, with full paths
func (r *Router) Routes() []Route {
	var out []Route
	for _, g := range r.groups {
		out = g.collect(r.basePath(), out)
	}
	return out
}

func (r *Router) basePath() string {
	return "/api/" + r.apiVersion
}

// Route is one endpoint of a DomainGroup
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

// DomainGroup holds the endpoints and middleware of one API area
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []Route
	children   []*DomainGroup
}

// NewDomainGroup creates an empty group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (g *DomainGroup) Name() string { return g.name }

// Prefix returns the path prefix relative to the parent
func (g *DomainGroup) Prefix() string { return g.prefix }

// Use appends middleware applied to this group and its children
func (g *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// GET adds a GET endpoint
func (g *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodGet, relativePath, handlers)
}

// POST adds a POST endpoint
func (g *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPost, relativePath, handlers)
}

// Group adds a child group under this group's prefix and middleware
func (g *DomainGroup) Group(name, prefix string) *DomainGroup {
	child := NewDomainGroup(name, prefix)
	g.children = append(g.children, child)
	return child
}

func (g *DomainGroup) add(method, relativePath string, handlers []gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, Route{Method: method, Path: relativePath, Handlers: handlers})
	return g
}

func (g *DomainGroup) mount(parent *gin.RouterGroup) {
	rg := parent.Group(g.prefix, g.middleware...)
	for _, route := range g.routes {
		rg.Handle(route.Method, route.Path, route.Handlers...)
	}
	for _, child := range g.children {
		child.mount(rg)
	}
}

func (g *DomainGroup) collect(base string, out []Route) []Route {
	prefix := path.Join(base, g.prefix)
	for _, route := range g.routes {
		full := prefix
		if route.Path != "" {
			full = path.Join(prefix, route.Path)
		}
		out = append(out, Route{Method: route.Method, Path: full, Handlers: route.Handlers})
	}
	for _, child := range g.children {
		out = child.collect(prefix, out)
	}
	return out
}
