package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/queue"
	"github.com/bookcart-next/internal/repository"
)

// OrderHandoff 结账完成后的下单交接方
type OrderHandoff interface {
	HandoffCheckout(ctx context.Context, payload queue.CheckoutCompletedPayload) error
}

// LoggingOrderHandoff 仅记录结账快照的交接实现，订单创建由下游系统负责
type LoggingOrderHandoff struct {
	productRepo repository.ProductRepository
}

// NewLoggingOrderHandoff 创建日志交接实现
func NewLoggingOrderHandoff(productRepo repository.ProductRepository) *LoggingOrderHandoff {
	return &LoggingOrderHandoff{productRepo: productRepo}
}

// HandoffCheckout 记录结账快照，并提示已售罄的商品
func (h *LoggingOrderHandoff) HandoffCheckout(ctx context.Context, payload queue.CheckoutCompletedPayload) error {
	if strings.TrimSpace(payload.CheckoutID) == "" || payload.UserID == 0 {
		return fmt.Errorf("%w: checkout payload incomplete", ErrInvalidInput)
	}
	if len(payload.Items) == 0 {
		return fmt.Errorf("%w: checkout payload has no items", ErrInvalidInput)
	}

	logger.Infow("order_handoff_received",
		"checkout_id", payload.CheckoutID,
		"user_id", payload.UserID,
		"item_count", len(payload.Items),
		"total_amount", payload.TotalAmount.String(),
		"checked_out_at", payload.CheckedOutAt,
	)

	if h.productRepo == nil {
		return nil
	}
	depleted, err := h.productRepo.ListZeroStock(ctx, payload.ProductIDs())
	if err != nil {
		return wrapStoreError(err)
	}
	for _, product := range depleted {
		logger.Warnw("catalog_stock_depleted",
			"checkout_id", payload.CheckoutID,
			"product_id", product.ID,
			"title", product.Title,
		)
	}
	return nil
}
