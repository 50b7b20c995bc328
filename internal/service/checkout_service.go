package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/models"
	"github.com/bookcart-next/internal/queue"
	"github.com/bookcart-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutEnqueuer 结账完成后的交接任务投递
type CheckoutEnqueuer interface {
	EnqueueCheckoutCompleted(ctx context.Context, payload queue.CheckoutCompletedPayload) error
}

// CheckoutItem 结账商品快照
type CheckoutItem struct {
	ProductID uint         `json:"product_id"`
	Title     string       `json:"title"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
	Subtotal  models.Money `json:"subtotal"`
}

// CheckoutResult 结账结果，交给下单方使用
type CheckoutResult struct {
	CheckoutID   string         `json:"checkout_id"`
	UserID       uint           `json:"user_id"`
	Items        []CheckoutItem `json:"items"`
	TotalAmount  models.Money   `json:"total_amount"`
	CheckedOutAt time.Time      `json:"checked_out_at"`
}

// CheckoutService 结账服务
type CheckoutService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	enqueuer    CheckoutEnqueuer
	now         func() time.Time
	newID       func() string
}

// NewCheckoutService 创建结账服务，enqueuer 可为 nil
func NewCheckoutService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, enqueuer CheckoutEnqueuer) *CheckoutService {
	return &CheckoutService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		enqueuer:    enqueuer,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Checkout 在单个事务内复核全部购物车项、条件扣减库存并清空购物车
// 任一商品扣减失败整笔回滚
func (s *CheckoutService) Checkout(ctx context.Context, userID uint) (*CheckoutResult, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	var result *CheckoutResult
	err := s.cartRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		// 锁定购物车项，同一用户的并发结账与改购物车在此串行
		items, err := cartRepo.ListByUser(ctx, userID, true)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrCartEmpty
		}

		if violations := collectCheckoutViolations(items); len(violations) > 0 {
			return &CheckoutConflictError{Violations: violations}
		}

		// 按商品 ID 顺序扣减，保证并发结账加锁顺序一致
		sort.Slice(items, func(i, j int) bool {
			return items[i].ProductID < items[j].ProductID
		})

		snapshot := &CheckoutResult{
			UserID: userID,
			Items:  make([]CheckoutItem, 0, len(items)),
		}
		total := models.Money{}
		for _, item := range items {
			affected, err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				available := 0
				current, err := productRepo.GetByID(ctx, item.ProductID)
				if err != nil {
					return err
				}
				if current != nil {
					available = current.StockQuantity
				}
				return &CheckoutConflictError{Violations: []CheckoutViolation{{
					CartItemID:        item.ID,
					ProductID:         item.ProductID,
					Reason:            constants.ViolationInsufficientStock,
					RequestedQuantity: item.Quantity,
					AvailableStock:    available,
				}}}
			}
			unitPrice := EffectiveUnitPrice(item.Product)
			subtotal := unitPrice.MulQuantity(item.Quantity)
			snapshot.Items = append(snapshot.Items, CheckoutItem{
				ProductID: item.ProductID,
				Title:     item.Product.Title,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
				Subtotal:  subtotal,
			})
			total = total.Add(subtotal)
		}
		snapshot.TotalAmount = total

		itemIDs := make([]uint, 0, len(items))
		for _, item := range items {
			itemIDs = append(itemIDs, item.ID)
		}
		removed, err := cartRepo.DeleteByIDsForUser(ctx, userID, itemIDs)
		if err != nil {
			return err
		}
		if removed != int64(len(itemIDs)) {
			return &CheckoutConflictError{Violations: []CheckoutViolation{{
				Reason: constants.ViolationCartChanged,
			}}}
		}
		result = snapshot
		return nil
	})
	if err != nil {
		var conflict *CheckoutConflictError
		if errors.As(err, &conflict) {
			logger.Warnw("cart_checkout_conflict",
				"user_id", userID,
				"violations", len(conflict.Violations),
			)
		}
		return nil, wrapStoreError(err)
	}

	result.CheckoutID = s.newID()
	result.CheckedOutAt = s.now()
	logger.Infow("cart_checkout_committed",
		"user_id", userID,
		"checkout_id", result.CheckoutID,
		"items", len(result.Items),
		"total_amount", result.TotalAmount.String(),
	)
	s.enqueueCompleted(ctx, result)
	return result, nil
}

// enqueueCompleted 投递失败只记录日志，结账本身已提交
func (s *CheckoutService) enqueueCompleted(ctx context.Context, result *CheckoutResult) {
	if s.enqueuer == nil || result == nil {
		return
	}
	payload := queue.CheckoutCompletedPayload{
		CheckoutID:   result.CheckoutID,
		UserID:       result.UserID,
		Items:        make([]queue.CheckoutItemPayload, 0, len(result.Items)),
		TotalAmount:  result.TotalAmount,
		CheckedOutAt: result.CheckedOutAt,
	}
	for _, item := range result.Items {
		payload.Items = append(payload.Items, queue.CheckoutItemPayload{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	if err := s.enqueuer.EnqueueCheckoutCompleted(context.WithoutCancel(ctx), payload); err != nil {
		logger.Errorw("cart_checkout_enqueue_failed",
			"user_id", result.UserID,
			"checkout_id", result.CheckoutID,
			"error", err,
		)
	}
}

func collectCheckoutViolations(items []models.CartItem) []CheckoutViolation {
	violations := make([]CheckoutViolation, 0)
	for _, item := range items {
		violation := CheckoutViolation{
			CartItemID:        item.ID,
			ProductID:         item.ProductID,
			RequestedQuantity: item.Quantity,
		}
		switch {
		case item.Product == nil || item.Product.ID == 0:
			violation.Reason = constants.ViolationProductMissing
		case !item.Product.IsVisible:
			violation.Reason = constants.ViolationProductUnavailable
			violation.AvailableStock = item.Product.StockQuantity
		case item.Quantity > item.Product.StockQuantity:
			violation.Reason = constants.ViolationInsufficientStock
			violation.AvailableStock = item.Product.StockQuantity
		default:
			continue
		}
		violations = append(violations, violation)
	}
	return violations
}
