package i18n

var catalog = map[string]map[string]string{
	LocaleZhTW: {
		"success.ok":                "成功",
		"success.cart_cleared":      "購物車已清空",
		"success.cart_item_removed": "已移除購物車項目",
		"success.checkout":          "結帳成功",

		"error.bad_request":         "欄位未填寫正確",
		"error.invalid_input":       "欄位未填寫正確",
		"error.product_not_found":   "找不到該商品",
		"error.cart_item_not_found": "找不到該購物車項目",
		"error.user_not_found":      "找不到該使用者",
		"error.product_unavailable": "該商品目前無法購買",
		"error.insufficient_stock":  "該商品庫存不足，目前僅剩 %d 本",
		"error.cart_empty":          "購物車是空的",
		"error.checkout_conflict":   "部分購物車項目無法結帳，請調整後再試",
		"error.unauthenticated":     "請先登入",
		"error.auth_header_missing": "缺少 Authorization 標頭",
		"error.auth_header_invalid": "Authorization 格式錯誤",
		"error.token_invalid":       "無效的 token",
		"error.token_revoked":       "token 已失效，請重新登入",
		"error.user_disabled":       "帳號已停用",
		"error.forbidden":           "權限不足",
		"error.rate_limited":        "請求過於頻繁，請稍後再試",
		"error.store_unavailable":   "伺服器錯誤，請稍後再試",
		"error.internal":            "伺服器錯誤",
		"error.route_not_found":     "無此路由",
	},
	LocaleEnUS: {
		"success.ok":                "success",
		"success.cart_cleared":      "cart cleared",
		"success.cart_item_removed": "cart item removed",
		"success.checkout":          "checkout completed",

		"error.bad_request":         "invalid request fields",
		"error.invalid_input":       "invalid request fields",
		"error.product_not_found":   "product not found",
		"error.cart_item_not_found": "cart item not found",
		"error.user_not_found":      "user not found",
		"error.product_unavailable": "product is not available",
		"error.insufficient_stock":  "insufficient stock, only %d left",
		"error.cart_empty":          "cart is empty",
		"error.checkout_conflict":   "some cart items cannot be checked out",
		"error.unauthenticated":     "authentication required",
		"error.auth_header_missing": "missing Authorization header",
		"error.auth_header_invalid": "malformed Authorization header",
		"error.token_invalid":       "invalid token",
		"error.token_revoked":       "token revoked, please sign in again",
		"error.user_disabled":       "account disabled",
		"error.forbidden":           "forbidden",
		"error.rate_limited":        "too many requests, please retry later",
		"error.store_unavailable":   "service temporarily unavailable, please retry",
		"error.internal":            "internal server error",
		"error.route_not_found":     "route not found",
	},
}
