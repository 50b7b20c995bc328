package response

// 状态码与 HTTP 状态保持一致
const (
	CodeOK              = 200
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429
	CodeInternal        = 500
)

// 响应状态
const (
	StatusSuccess = "success"
	StatusFailed  = "failed" // 调用方错误（4xx）
	StatusError   = "error"  // 服务端错误（5xx）
)

// 机器可读的失败原因
const (
	ReasonInvalidInput       = "invalid_input"
	ReasonUnauthenticated    = "unauthenticated"
	ReasonForbidden          = "forbidden"
	ReasonProductNotFound    = "product_not_found"
	ReasonCartItemNotFound   = "cart_item_not_found"
	ReasonUserNotFound       = "user_not_found"
	ReasonProductUnavailable = "product_unavailable"
	ReasonInsufficientStock  = "insufficient_stock"
	ReasonCartEmpty          = "cart_empty"
	ReasonCheckoutConflict   = "checkout_conflict"
	ReasonRateLimited        = "rate_limited"
	ReasonStoreUnavailable   = "store_unavailable"
	ReasonRouteNotFound      = "route_not_found"
	ReasonInternal           = "internal_error"
)

// StatusForCode 按状态码区分 failed 与 error
func StatusForCode(code int) string {
	switch {
	case code >= 500:
		return StatusError
	case code >= 400:
		return StatusFailed
	default:
		return StatusSuccess
	}
}
