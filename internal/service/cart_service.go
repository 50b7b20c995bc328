package service

import (
	"context"
	"time"

	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/models"
	"github.com/bookcart-next/internal/repository"

	"gorm.io/gorm"
)

// 首次插入遇到唯一索引冲突时整笔事务重试的次数上限
const maxCartWriteAttempts = 3

// CartItemView 购物车项投影（价格按当前商品状态实时计算）
type CartItemView struct {
	CartItemID    uint             `json:"cart_item_id"`
	ProductID     uint             `json:"product_id"`
	Title         string           `json:"title"`
	Price         models.Money     `json:"price"`
	DiscountPrice models.NullMoney `json:"discount_price"`
	IsDiscounted  bool             `json:"is_discounted"`
	UnitPrice     models.Money     `json:"unit_price"`
	SnapshotPrice models.Money     `json:"snapshot_price"`
	Quantity      int              `json:"quantity"`
	Subtotal      models.Money     `json:"subtotal"`
	StockQuantity int              `json:"stock_quantity"`
	IsVisible     bool             `json:"is_visible"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CartView 购物车列表
type CartView struct {
	Items         []CartItemView `json:"items"`
	ItemCount     int            `json:"item_count"`
	TotalQuantity int            `json:"total_quantity"`
	TotalAmount   models.Money   `json:"total_amount"`
}

// AddCartItemInput 加入购物车输入，Quantity 为空时默认 1
type AddCartItemInput struct {
	UserID    uint
	ProductID uint
	Quantity  *int
}

// UpdateCartItemInput 修改数量输入，Quantity 为 0 等同删除
type UpdateCartItemInput struct {
	UserID     uint
	CartItemID uint
	Quantity   int
}

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

// ListByUser 获取用户购物车，商品已不存在的项不展示
func (s *CartService) ListByUser(ctx context.Context, userID uint) (*CartView, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	items, err := s.cartRepo.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	view := &CartView{Items: make([]CartItemView, 0, len(items))}
	total := models.Money{}
	for _, item := range items {
		if item.Product == nil || item.Product.ID == 0 {
			continue
		}
		line := buildCartItemView(item, item.Product)
		view.Items = append(view.Items, line)
		view.TotalQuantity += line.Quantity
		total = total.Add(line.Subtotal)
	}
	view.ItemCount = len(view.Items)
	view.TotalAmount = total
	return view, nil
}

// AddItem 加入购物车，同一商品合并数量，合并后的总数量需不超过当前库存
// 仅校验库存，不扣减，真正的扣减发生在结账
func (s *CartService) AddItem(ctx context.Context, input AddCartItemInput) (*CartItemView, error) {
	quantity := constants.DefaultAddQuantity
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	if input.UserID == 0 || input.ProductID == 0 || quantity <= 0 {
		return nil, ErrInvalidInput
	}

	var view *CartItemView
	merged := false
	err := s.withInsertRetry(ctx, input.UserID, input.ProductID, func() error {
		return s.cartRepo.Transaction(ctx, func(tx *gorm.DB) error {
			cartRepo := s.cartRepo.WithTx(tx)
			productRepo := s.productRepo.WithTx(tx)

			product, err := productRepo.GetByID(ctx, input.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return ErrProductNotFound
			}
			if !product.IsVisible {
				return ErrProductUnavailable
			}
			if product.StockQuantity < quantity {
				return &InsufficientStockError{
					ProductID: product.ID,
					Requested: quantity,
					Available: product.StockQuantity,
				}
			}

			unitPrice := EffectiveUnitPrice(product)
			now := s.now()
			existing, err := cartRepo.GetByUserAndProduct(ctx, input.UserID, input.ProductID, true)
			if err != nil {
				return err
			}
			if existing != nil {
				affected, err := cartRepo.IncrementQuantity(ctx, existing.ID, quantity, product.StockQuantity, unitPrice, now)
				if err != nil {
					return err
				}
				if affected == 0 {
					return &InsufficientStockError{
						ProductID: product.ID,
						Requested: existing.Quantity + quantity,
						Available: product.StockQuantity,
					}
				}
				merged = true
			} else {
				item := &models.CartItem{
					UserID:    input.UserID,
					ProductID: input.ProductID,
					Quantity:  quantity,
					UnitPrice: unitPrice,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := cartRepo.Create(ctx, item); err != nil {
					return err
				}
				merged = false
			}

			stored, err := cartRepo.GetByUserAndProduct(ctx, input.UserID, input.ProductID, false)
			if err != nil {
				return err
			}
			if stored == nil {
				return ErrCartItemNotFound
			}
			line := buildCartItemView(*stored, product)
			view = &line
			return nil
		})
	})
	if err != nil {
		return nil, wrapStoreError(err)
	}

	logger.Infow("cart_item_added",
		"user_id", input.UserID,
		"product_id", input.ProductID,
		"quantity", quantity,
		"line_quantity", view.Quantity,
		"merged", merged,
	)
	return view, nil
}

// UpdateQuantity 覆盖购物车项数量，保留单价快照；数量为 0 时删除该项并返回 nil
func (s *CartService) UpdateQuantity(ctx context.Context, input UpdateCartItemInput) (*CartItemView, error) {
	if input.UserID == 0 || input.CartItemID == 0 || input.Quantity < 0 {
		return nil, ErrInvalidInput
	}

	var view *CartItemView
	err := s.cartRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		item, err := cartRepo.GetByIDForUser(ctx, input.CartItemID, input.UserID, true)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrCartItemNotFound
		}
		if input.Quantity == 0 {
			if _, err := cartRepo.DeleteByIDForUser(ctx, item.ID, input.UserID); err != nil {
				return err
			}
			return nil
		}

		product, err := productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if input.Quantity > product.StockQuantity {
			return &InsufficientStockError{
				ProductID: product.ID,
				Requested: input.Quantity,
				Available: product.StockQuantity,
			}
		}

		now := s.now()
		affected, err := cartRepo.UpdateQuantity(ctx, item.ID, input.UserID, input.Quantity, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCartItemNotFound
		}
		item.Quantity = input.Quantity
		item.UpdatedAt = now
		line := buildCartItemView(*item, product)
		view = &line
		return nil
	})
	if err != nil {
		return nil, wrapStoreError(err)
	}

	logger.Infow("cart_item_quantity_updated",
		"user_id", input.UserID,
		"cart_item_id", input.CartItemID,
		"quantity", input.Quantity,
	)
	return view, nil
}

// RemoveItem 删除购物车项，不存在或不属于该用户时返回 ErrCartItemNotFound
func (s *CartService) RemoveItem(ctx context.Context, userID, cartItemID uint) error {
	if userID == 0 || cartItemID == 0 {
		return ErrInvalidInput
	}
	affected, err := s.cartRepo.DeleteByIDForUser(ctx, cartItemID, userID)
	if err != nil {
		return wrapStoreError(err)
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	logger.Infow("cart_item_removed", "user_id", userID, "cart_item_id", cartItemID)
	return nil
}

// Clear 清空购物车，返回删除数量
func (s *CartService) Clear(ctx context.Context, userID uint) (int64, error) {
	if userID == 0 {
		return 0, ErrInvalidInput
	}
	removed, err := s.cartRepo.ClearByUser(ctx, userID)
	if err != nil {
		return 0, wrapStoreError(err)
	}
	logger.Infow("cart_cleared", "user_id", userID, "removed", removed)
	return removed, nil
}

func (s *CartService) withInsertRetry(ctx context.Context, userID, productID uint, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxCartWriteAttempts; attempt++ {
		err = fn()
		if err == nil || !repository.IsUniqueViolation(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Debugw("cart_item_insert_conflict_retry",
			"user_id", userID,
			"product_id", productID,
			"attempt", attempt,
		)
	}
	return err
}

func buildCartItemView(item models.CartItem, product *models.Product) CartItemView {
	unitPrice := EffectiveUnitPrice(product)
	return CartItemView{
		CartItemID:    item.ID,
		ProductID:     item.ProductID,
		Title:         product.Title,
		Price:         product.PriceAmount,
		DiscountPrice: product.DiscountPrice,
		IsDiscounted:  product.IsDiscounted,
		UnitPrice:     unitPrice,
		SnapshotPrice: item.UnitPrice,
		Quantity:      item.Quantity,
		Subtotal:      unitPrice.MulQuantity(item.Quantity),
		StockQuantity: product.StockQuantity,
		IsVisible:     product.IsVisible,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}
