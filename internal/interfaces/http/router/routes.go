package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/config"
	"github.com/erp/returns/internal/infrastructure/logger"
	"github.com/erp/returns/internal/interfaces/http/handler"
	"github.com/erp/returns/internal/interfaces/http/middleware"
)

// Dependencies are the handlers and collaborators the engine is built from
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Meter   metric.Meter
	Returns *handler.ReturnHandler
	Outbox  *handler.OutboxHandler
	System  *handler.SystemHandler
	// Idempotency backs the Idempotency-Key header on completion. Nil disables it.
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
}

// NewEngine builds the gin engine with the global middleware chain and all routes
func NewEngine(deps Dependencies) (*gin.Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(deps.Config.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	if len(deps.Config.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = deps.Config.HTTP.CORSAllowOrigins
	}
	if len(deps.Config.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = deps.Config.HTTP.CORSAllowMethods
	}
	if len(deps.Config.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = deps.Config.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.Recovery(deps.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(deps.Logger),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: deps.Config.Telemetry.ServiceName,
			Enabled:     deps.Config.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(deps.Meter),
		middleware.CORSWithConfig(cors),
		middleware.Secure(),
		middleware.BodyLimit(deps.Config.HTTP.MaxBodySize),
	)

	if deps.System != nil {
		engine.GET("/health", deps.System.Health)
	}

	r := NewRouter(engine)
	if deps.Returns != nil {
		r.Register(ReturnRoutes(deps.Returns, completionGuard(deps)))
	}
	if deps.System != nil || deps.Outbox != nil {
		r.Register(SystemRoutes(deps.System, deps.Outbox))
	}
	r.Setup()
	deps.Logger.Info("HTTP routes mounted", zap.Int("routes", len(r.Routes())))
	return engine, nil
}

func completionGuard(deps Dependencies) []gin.HandlerFunc {
	if deps.Idempotency == nil {
		return nil
	}
	ttl := deps.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return []gin.HandlerFunc{middleware.IdempotencyKey(deps.Idempotency, ttl)}
}

// ReturnRoutes registers the /returns endpoints. guard runs before the
// completion handler.
func ReturnRoutes(h *handler.ReturnHandler, guard []gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("returns", "/returns").
		Use(middleware.SellerContext(), middleware.TracingAttributeInjector())

	g.POST("/customer", h.CreateCustomerReturn).
		POST("/delivery", h.CreateDeliveryReturn).
		POST("/supplier", h.CreateSupplierReturn).
		GET("", h.List).
		GET("/pending-items", h.ListPendingItems).
		GET("/statistics", h.Statistics).
		GET("/by-number/:number", h.GetByNumber).
		GET("/by-order/:order_id", h.ListByOrder).
		GET("/locations/:location_type/:location_id", h.ListByLocation).
		GET("/:id", h.Get).
		POST("/:id/items/:index/inspect", h.InspectItem).
		POST("/:id/inspection/complete", h.CompleteInspection).
		POST("/:id/complete", append(guard, h.Complete)...).
		POST("/:id/supplier/approve", h.ApproveSupplier).
		POST("/:id/supplier/reject", h.RejectSupplier).
		POST("/:id/cancel", h.Cancel)
	return g
}

// SystemRoutes registers the /system endpoints. Either handler may be nil.
func SystemRoutes(sys *handler.SystemHandler, outbox *handler.OutboxHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	if sys != nil {
		g.GET("/ping", sys.Ping).GET("/info", sys.GetSystemInfo)
	}
	if outbox != nil {
		g.Group("outbox", "/outbox").
			GET("/dead", outbox.GetDeadLetterEntries).
			GET("/stats", outbox.GetStats).
			GET("/:id", outbox.GetEntry).
			POST("/:id/retry", outbox.RetryDeadEntry)
	}
	return g
}
