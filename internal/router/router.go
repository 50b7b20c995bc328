package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bookcart-next/internal/cache"
	"github.com/bookcart-next/internal/config"
	adminhandlers "github.com/bookcart-next/internal/http/handlers/admin"
	publichandlers "github.com/bookcart-next/internal/http/handlers/public"
	"github.com/bookcart-next/internal/http/response"
	"github.com/bookcart-next/internal/i18n"
	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "bc"
	}
	cartWriteRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:cart", redisPrefix),
		WindowSeconds: cfg.Security.CartRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CartRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}
	cartWriteLimit := RateLimitMiddleware(cache.Client(), cartWriteRule, KeyByUserID)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 需登录的接口：鉴权 -> 角色授权
		authorized := apiV1.Group("")
		authorized.Use(UserAuthMiddleware(c.IdentityService), RBACMiddleware(c.AuthzService))
		{
			cart := authorized.Group("/cart")
			{
				cart.GET("", publicHandler.GetCart)
				cart.DELETE("", cartWriteLimit, publicHandler.ClearCart)
				cart.POST("/items", cartWriteLimit, publicHandler.AddCartItem)
				cart.PUT("/items/:id", cartWriteLimit, publicHandler.UpdateCartItem)
				cart.DELETE("/items/:id", cartWriteLimit, publicHandler.RemoveCartItem)
				cart.POST("/checkout", cartWriteLimit, publicHandler.Checkout)
			}

			admin := authorized.Group("/admin")
			{
				admin.GET("/users/:id/cart", adminHandler.GetUserCart)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		redisStatus := "disabled"
		if cache.Enabled() {
			pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cache.Ping(pingCtx); err != nil {
				logger.Warnw("health_redis_unavailable", "error", err)
				redisStatus = "unavailable"
			} else {
				redisStatus = "ok"
			}
		}
		response.Success(ctx, gin.H{"status": "ok", "redis": redisStatus})
	})

	r.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, i18n.T(i18n.ResolveLocale(ctx), "error.route_not_found"))
	})

	return r
}
