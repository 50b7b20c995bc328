package queue

import (
	"encoding/json"
	"time"

	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/models"

	"github.com/hibiken/asynq"
)

const (
	// TaskCheckoutCompleted 结账完成后交接给下单方的任务
	TaskCheckoutCompleted = constants.TaskCheckoutCompleted
)

// CheckoutItemPayload 结账商品快照
type CheckoutItemPayload struct {
	ProductID uint         `json:"product_id"`
	Title     string       `json:"title"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
	Subtotal  models.Money `json:"subtotal"`
}

// CheckoutCompletedPayload 结账完成任务载荷
type CheckoutCompletedPayload struct {
	CheckoutID   string                `json:"checkout_id"`
	UserID       uint                  `json:"user_id"`
	Items        []CheckoutItemPayload `json:"items"`
	TotalAmount  models.Money          `json:"total_amount"`
	CheckedOutAt time.Time             `json:"checked_out_at"`
}

// ProductIDs 返回载荷涉及的商品 ID
func (p CheckoutCompletedPayload) ProductIDs() []uint {
	ids := make([]uint, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// NewCheckoutCompletedTask 创建结账完成任务
func NewCheckoutCompletedTask(payload CheckoutCompletedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckoutCompleted, body), nil
}

// ParseCheckoutCompletedPayload 解析结账完成任务载荷
func ParseCheckoutCompletedPayload(task *asynq.Task) (CheckoutCompletedPayload, error) {
	var payload CheckoutCompletedPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
