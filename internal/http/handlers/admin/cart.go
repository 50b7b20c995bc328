package admin

import (
	"fmt"

	handlershared "github.com/bookcart-next/internal/http/handlers/shared"
	"github.com/bookcart-next/internal/http/response"
	"github.com/bookcart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetUserCart 查看指定用户的购物车
func (h *Handler) GetUserCart(c *gin.Context) {
	userID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, fmt.Errorf("%w: %w", service.ErrStoreUnavailable, err))
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, response.ReasonUserNotFound, "error.user_not_found", nil)
		return
	}

	view, err := h.CartService.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	handlershared.RequestLog(c).Infow("admin_user_cart_viewed",
		"operator_id", c.GetUint(handlershared.ContextKeyUserID),
		"user_id", user.ID,
		"items", view.ItemCount,
	)
	response.Success(c, gin.H{
		"user_id":      user.ID,
		"display_name": user.DisplayName,
		"cart":         view,
	})
}
