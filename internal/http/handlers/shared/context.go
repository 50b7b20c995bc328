package shared

import (
	"strconv"
	"strings"

	"github.com/bookcart-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入上下文的键
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserRole = "user_role"
)

// GetContextUint 从上下文读取 uint 值，缺失时按未认证处理。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, response.ReasonUnauthenticated, "error.unauthenticated", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, response.ReasonUnauthenticated, "error.unauthenticated", nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeUnauthorized, response.ReasonUnauthenticated, "error.unauthenticated", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, response.ReasonInternal, "error.internal", nil)
		return 0, false
	}
}

// GetUserID 读取当前用户 ID
func GetUserID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, ContextKeyUserID)
}

// GetUserRole 读取当前用户角色
func GetUserRole(c *gin.Context) string {
	if value, ok := c.Get(ContextKeyUserRole); ok {
		if role, ok := value.(string); ok {
			return role
		}
	}
	return ""
}

// ParseUintParam 解析正整数路径参数，失败时返回 invalid_input。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, response.ReasonInvalidInput, "error.invalid_input", nil)
		return 0, false
	}
	return uint(id), true
}
