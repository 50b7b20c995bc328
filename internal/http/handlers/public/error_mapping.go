package public

import (
	"errors"

	handlershared "github.com/bookcart-next/internal/http/handlers/shared"
	"github.com/bookcart-next/internal/http/response"
	"github.com/bookcart-next/internal/i18n"
	"github.com/bookcart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	reason string
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackReason, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.reason, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackReason, fallbackKey, err)
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, reason: response.ReasonInvalidInput, key: "error.invalid_input"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, reason: response.ReasonProductNotFound, key: "error.product_not_found"},
	{target: service.ErrCartItemNotFound, code: response.CodeNotFound, reason: response.ReasonCartItemNotFound, key: "error.cart_item_not_found"},
	{target: service.ErrProductUnavailable, code: response.CodeBadRequest, reason: response.ReasonProductUnavailable, key: "error.product_unavailable"},
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, reason: response.ReasonCartEmpty, key: "error.cart_empty"},
	{target: service.ErrUnauthenticated, code: response.CodeUnauthorized, reason: response.ReasonUnauthenticated, key: "error.unauthenticated"},
}

// respondCartError 携带数据的错误优先处理，其余按映射表返回
func respondCartError(c *gin.Context, err error) {
	locale := i18n.ResolveLocale(c)

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		handlershared.RespondErrorWithData(c, response.CodeBadRequest, response.ReasonInsufficientStock,
			i18n.Sprintf(locale, "error.insufficient_stock", stockErr.Available),
			gin.H{
				"product_id":         stockErr.ProductID,
				"requested_quantity": stockErr.Requested,
				"available_stock":    stockErr.Available,
			}, nil)
		return
	}

	var conflict *service.CheckoutConflictError
	if errors.As(err, &conflict) {
		handlershared.RespondErrorWithData(c, response.CodeConflict, response.ReasonCheckoutConflict,
			i18n.T(locale, "error.checkout_conflict"),
			gin.H{"violations": conflict.Violations}, nil)
		return
	}

	if errors.Is(err, service.ErrStoreUnavailable) {
		handlershared.RespondErrorWithData(c, response.CodeInternal, response.ReasonStoreUnavailable,
			i18n.T(locale, "error.store_unavailable"),
			gin.H{"retryable": true}, err)
		return
	}

	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, response.ReasonInternal, "error.internal")
}
