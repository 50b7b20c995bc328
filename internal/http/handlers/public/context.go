package public

import (
	handlershared "github.com/bookcart-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetUserID(c)
}

func respondError(c *gin.Context, code int, reason, key string, err error) {
	handlershared.RespondError(c, code, reason, key, err)
}
