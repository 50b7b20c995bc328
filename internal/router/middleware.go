package router

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bookcart-next/internal/authz"
	"github.com/bookcart-next/internal/config"
	handlershared "github.com/bookcart-next/internal/http/handlers/shared"
	"github.com/bookcart-next/internal/http/response"
	"github.com/bookcart-next/internal/i18n"
	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const maxRequestIDLength = 128

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Accept-Language",
			"Cache-Control",
			"X-Requested-With",
			requestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件，沿用调用方传入的 X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 每个请求记录一条结构化日志，5xx 按错误级别输出
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		switch {
		case len(c.Errors) > 0:
			log.Errorw("request", "errors", c.Errors.String())
		case status >= 500:
			log.Errorw("request")
		default:
			log.Infow("request")
		}
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// UserAuthMiddleware 用户鉴权中间件，写入 user_id 与 user_role
func UserAuthMiddleware(identity *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := i18n.ResolveLocale(c)
		if identity == nil {
			logger.Errorw("user_auth_identity_unavailable")
			response.Unauthorized(c, i18n.T(locale, "error.unauthenticated"))
			c.Abort()
			return
		}
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Unauthorized(c, i18n.T(locale, "error.auth_header_missing"))
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, i18n.T(locale, "error.auth_header_invalid"))
			c.Abort()
			return
		}

		ident, err := identity.Authenticate(c.Request.Context(), authHeader)
		if err != nil {
			respondAuthError(c, locale, err)
			c.Abort()
			return
		}

		c.Set(handlershared.ContextKeyUserID, ident.UserID)
		c.Set(handlershared.ContextKeyUserRole, ident.Role)
		c.Next()
	}
}

func respondAuthError(c *gin.Context, locale string, err error) {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		handlershared.RespondErrorWithData(c, response.CodeInternal, response.ReasonStoreUnavailable,
			i18n.T(locale, "error.store_unavailable"), gin.H{"retryable": true}, err)
	case errors.Is(err, service.ErrUserDisabled):
		response.Unauthorized(c, i18n.T(locale, "error.user_disabled"))
	case errors.Is(err, service.ErrTokenRevoked):
		response.Unauthorized(c, i18n.T(locale, "error.token_revoked"))
	case errors.Is(err, service.ErrTokenInvalid):
		response.Unauthorized(c, i18n.T(locale, "error.token_invalid"))
	default:
		response.Unauthorized(c, i18n.T(locale, "error.unauthenticated"))
	}
}

// RBACMiddleware 按角色与路由模板判定访问权限
func RBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := i18n.ResolveLocale(c)
		if authzService == nil {
			logger.Errorw("rbac_service_unavailable")
			response.Error(c, response.CodeInternal, response.ReasonInternal, i18n.T(locale, "error.internal"))
			c.Abort()
			return
		}

		role := handlershared.GetUserRole(c)
		if role == "" {
			response.Unauthorized(c, i18n.T(locale, "error.unauthenticated"))
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceRole(role, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("rbac_enforce_failed",
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Error(c, response.CodeInternal, response.ReasonInternal, i18n.T(locale, "error.internal"))
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("rbac_permission_denied",
				"user_id", c.GetUint(handlershared.ContextKeyUserID),
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, i18n.T(locale, "error.forbidden"))
			c.Abort()
			return
		}

		c.Next()
	}
}
