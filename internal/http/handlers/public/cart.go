package public

import (
	handlershared "github.com/bookcart-next/internal/http/handlers/shared"
	"github.com/bookcart-next/internal/http/response"
	"github.com/bookcart-next/internal/i18n"
	"github.com/bookcart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求，quantity 省略时为 1
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

// UpdateCartItemRequest 修改购物车项数量请求
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	view, err := h.CartService.ListByUser(c.Request.Context(), uid)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, view)
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, response.ReasonInvalidInput, "error.invalid_input", nil)
		return
	}
	if req.ProductID <= 0 {
		respondError(c, response.CodeBadRequest, response.ReasonInvalidInput, "error.invalid_input", nil)
		return
	}

	item, err := h.CartService.AddItem(c.Request.Context(), service.AddCartItemInput{
		UserID:    uid,
		ProductID: uint(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, item)
}

// UpdateCartItem 修改购物车项数量，数量为 0 时删除
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	cartItemID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		respondError(c, response.CodeBadRequest, response.ReasonInvalidInput, "error.invalid_input", nil)
		return
	}

	item, err := h.CartService.UpdateQuantity(c.Request.Context(), service.UpdateCartItemInput{
		UserID:     uid,
		CartItemID: cartItemID,
		Quantity:   *req.Quantity,
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	if item == nil {
		msg := i18n.T(i18n.ResolveLocale(c), "success.cart_item_removed")
		response.SuccessWithMsg(c, msg, gin.H{"cart_item_id": cartItemID, "removed": true})
		return
	}
	response.Success(c, item)
}

// RemoveCartItem 删除购物车项
func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	cartItemID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.CartService.RemoveItem(c.Request.Context(), uid, cartItemID); err != nil {
		respondCartError(c, err)
		return
	}
	msg := i18n.T(i18n.ResolveLocale(c), "success.cart_item_removed")
	response.SuccessWithMsg(c, msg, gin.H{"cart_item_id": cartItemID, "removed": true})
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	removed, err := h.CartService.Clear(c.Request.Context(), uid)
	if err != nil {
		respondCartError(c, err)
		return
	}
	msg := i18n.T(i18n.ResolveLocale(c), "success.cart_cleared")
	response.SuccessWithMsg(c, msg, gin.H{"removed": removed})
}

// Checkout 结账，成功后返回已购商品快照
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	result, err := h.CheckoutService.Checkout(c.Request.Context(), uid)
	if err != nil {
		respondCartError(c, err)
		return
	}
	msg := i18n.T(i18n.ResolveLocale(c), "success.checkout")
	response.SuccessWithMsg(c, msg, result)
}
