package shared

import (
	"github.com/bookcart-next/internal/http/response"
	"github.com/bookcart-next/internal/i18n"
	"github.com/bookcart-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, reason, key string, err error) {
	RespondErrorWithData(c, code, reason, i18n.T(i18n.ResolveLocale(c), key), nil, err)
}

// RespondErrorWithData 返回带数据的错误响应，msg 需已本地化。
func RespondErrorWithData(c *gin.Context, code int, reason, msg string, data interface{}, err error) {
	appErr := response.WrapError(code, reason, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"reason", appErr.Reason,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.ErrorWithData(c, appErr.Code, appErr.Reason, appErr.Message, data)
}
