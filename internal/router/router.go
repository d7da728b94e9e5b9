// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/api"
	"github.com/MorseWayne/bp_store/internal/config"
	"github.com/MorseWayne/bp_store/internal/limiter"
	mw "github.com/MorseWayne/bp_store/internal/middleware"
	"github.com/MorseWayne/bp_store/internal/resp"
)

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	OrderHandler   *api.OrderHandler
	ProductHandler *api.ProductHandler
	ReturnHandler  *api.ReturnHandler
	AdminVerifier  *mw.SecretVerifier

	// LookupLimiter 限制顾客凭订单号查询/申请的频率，为空时不限流
	LookupLimiter limiter.Limiter

	// HealthCheck 检查存储可用性，为空时只报告进程存活
	HealthCheck func(ctx context.Context) error
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// GinRouter Gin路由器实现
type GinRouter struct {
	engine *gin.Engine
	deps   *Dependencies
	logger *zap.Logger
}

// New 创建新的路由器实例
func New() Router {
	return &GinRouter{}
}

// Setup 设置路由和中间件，返回包裹了通用中间件链的 http.Handler
func (r *GinRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	// 根据环境设置 Gin 模式
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r.engine = gin.New()
	r.deps = deps
	r.logger = lg

	r.engine.Use(r.corsMiddleware())
	r.setupRoutes(cfg)

	// 请求进入时执行顺序为 access log → timeout → recovery → request ID → gin
	var handler http.Handler = r.engine
	handler = mw.RequestID(handler)
	handler = mw.Recovery(lg)(handler)
	if cfg.App.RequestTimeout > 0 {
		handler = mw.Timeout(cfg.App.RequestTimeout)(handler)
	}
	handler = mw.AccessLog(lg)(handler)
	return handler
}

// setupRoutes 设置所有路由
func (r *GinRouter) setupRoutes(cfg *config.Config) {
	r.engine.GET("/healthz", r.healthCheck(cfg))

	admin := mw.RequireAdmin(r.deps.AdminVerifier, r.logger)
	lookup := r.lookupLimit()

	// 订单
	orders := r.engine.Group("/orders")
	{
		orders.POST("", r.deps.OrderHandler.CreateOrder)
		orders.POST("/track", lookup, r.deps.OrderHandler.TrackOrder)
		orders.GET("", admin, r.deps.OrderHandler.ListOrders)
		orders.PATCH("/:id", admin, r.deps.OrderHandler.ChangeStatus)
		orders.DELETE("/:id", admin, r.deps.OrderHandler.DeleteOrder)
		orders.POST("/:id", admin, r.deps.OrderHandler.SendPaymentReminder)
	}

	// 尺码库存
	sizes := r.engine.Group("/products/sizes")
	{
		sizes.GET("", r.deps.ProductHandler.ListSizes)
		sizes.PATCH("", admin, r.deps.ProductHandler.UpdateSize)
	}

	// 退换货
	returns := r.engine.Group("/returns")
	{
		returns.POST("", lookup, r.deps.ReturnHandler.CreateReturn)
		returns.GET("", admin, r.deps.ReturnHandler.ListReturns)
		returns.PATCH("/:id", admin, r.deps.ReturnHandler.UpdateReturn)
		returns.DELETE("/:id", admin, r.deps.ReturnHandler.DeleteReturn)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		resp.Error(c.Writer, http.StatusNotFound, resp.CodeNotFound, "route not found",
			mw.RequestIDFromContext(c.Request.Context()), "")
	})
}

// lookupLimit 顾客自助接口的限流中间件
func (r *GinRouter) lookupLimit() gin.HandlerFunc {
	if r.deps.LookupLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return limiter.RateLimitMiddleware(limiter.MiddlewareConfig{
		Limiter: r.deps.LookupLimiter,
		Logger:  r.logger,
	})
}

// healthCheck 健康检查处理器
func (r *GinRouter) healthCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := mw.RequestIDFromContext(c.Request.Context())
		if r.deps.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := r.deps.HealthCheck(ctx); err != nil {
				r.logger.Warn("health check failed", zap.Error(err))
				resp.Error(c.Writer, http.StatusServiceUnavailable, resp.CodeInternalError, "database unavailable", reqID, "")
				return
			}
		}
		data := map[string]any{
			"status":  "ok",
			"version": cfg.App.Version,
		}
		resp.OK(c.Writer, &data, reqID, "")
	}
}

// corsMiddleware CORS 中间件
func (r *GinRouter) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+mw.HeaderAdminSecret+", "+mw.HeaderRequestID)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
