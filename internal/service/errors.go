package service

import (
	"errors"
	"fmt"
)

// 购物车领域错误
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrProductNotFound    = errors.New("product not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrCheckoutConflict   = errors.New("checkout conflict")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// 身份认证错误，均可通过 errors.Is 匹配 ErrUnauthenticated
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenInvalid    = fmt.Errorf("%w: token invalid", ErrUnauthenticated)
	ErrTokenRevoked    = fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	ErrUserDisabled    = fmt.Errorf("%w: user disabled", ErrUnauthenticated)
)

// InsufficientStockError 库存不足，携带当前可用库存
type InsufficientStockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is 匹配 ErrInsufficientStock
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// CheckoutViolation 结账校验失败的购物车项
type CheckoutViolation struct {
	CartItemID        uint   `json:"cart_item_id"`
	ProductID         uint   `json:"product_id"`
	Reason            string `json:"reason"`
	RequestedQuantity int    `json:"requested_quantity"`
	AvailableStock    int    `json:"available_stock"`
}

// CheckoutConflictError 结账冲突，列出全部不满足条件的购物车项
type CheckoutConflictError struct {
	Violations []CheckoutViolation
}

func (e *CheckoutConflictError) Error() string {
	return fmt.Sprintf("checkout conflict: %d cart item(s) rejected", len(e.Violations))
}

// Is 匹配 ErrCheckoutConflict
func (e *CheckoutConflictError) Is(target error) bool {
	return target == ErrCheckoutConflict
}

var domainErrors = []error{
	ErrInvalidInput,
	ErrProductNotFound,
	ErrCartItemNotFound,
	ErrProductUnavailable,
	ErrInsufficientStock,
	ErrCartEmpty,
	ErrCheckoutConflict,
	ErrUnauthenticated,
	ErrStoreUnavailable,
}

// wrapStoreError 领域错误原样返回，其余存储错误包装为 ErrStoreUnavailable 并保留原因
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
