package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/provider"
	"github.com/bookcart-next/internal/queue"
	"github.com/bookcart-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCheckoutCompleted, c.handleCheckoutCompleted)
}

// handleCheckoutCompleted 将结账快照交给下单方；载荷无效时不再重试
func (c *Consumer) handleCheckoutCompleted(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_checkout_completed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCheckoutCompletedPayload(task)
	if err != nil {
		logger.Warnw("worker_checkout_completed_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if strings.TrimSpace(payload.CheckoutID) == "" {
		logger.Debugw("worker_checkout_completed_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.OrderHandoff == nil {
		logger.Warnw("worker_checkout_completed_no_handoff", "checkout_id", payload.CheckoutID)
		return nil
	}

	if err := c.OrderHandoff.HandoffCheckout(ctx, payload); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			logger.Warnw("worker_checkout_completed_rejected", "checkout_id", payload.CheckoutID, "error", err)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		logger.Warnw("worker_checkout_completed_handoff_failed", "checkout_id", payload.CheckoutID, "error", err)
		return err
	}
	logger.Infow("worker_checkout_completed_handled",
		"checkout_id", payload.CheckoutID,
		"user_id", payload.UserID,
		"items", len(payload.Items),
	)
	return nil
}
