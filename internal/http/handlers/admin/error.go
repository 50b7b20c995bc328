package admin

import (
	"errors"

	handlershared "github.com/bookcart-next/internal/http/handlers/shared"
	"github.com/bookcart-next/internal/http/response"
	"github.com/bookcart-next/internal/i18n"
	"github.com/bookcart-next/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, reason, key string, err error) {
	handlershared.RespondError(c, code, reason, key, err)
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, response.CodeBadRequest, response.ReasonInvalidInput, "error.invalid_input", nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		msg := i18n.T(i18n.ResolveLocale(c), "error.store_unavailable")
		handlershared.RespondErrorWithData(c, response.CodeInternal, response.ReasonStoreUnavailable, msg, gin.H{"retryable": true}, err)
	default:
		respondError(c, response.CodeInternal, response.ReasonInternal, "error.internal", err)
	}
}
