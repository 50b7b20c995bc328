package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bookcart-next/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListByUser(ctx context.Context, userID uint, lock bool) ([]models.CartItem, error)
	GetByUserAndProduct(ctx context.Context, userID, productID uint, lock bool) (*models.CartItem, error)
	GetByIDForUser(ctx context.Context, id, userID uint, lock bool) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	IncrementQuantity(ctx context.Context, id uint, delta, maxQuantity int, unitPrice models.Money, now time.Time) (int64, error)
	UpdateQuantity(ctx context.Context, id, userID uint, quantity int, now time.Time) (int64, error)
	DeleteByIDForUser(ctx context.Context, id, userID uint) (int64, error)
	DeleteByIDsForUser(ctx context.Context, userID uint, ids []uint) (int64, error)
	ClearByUser(ctx context.Context, userID uint) (int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// Transaction 执行事务，ctx 取消时事务回滚
func (r *GormCartRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// ListByUser 获取用户购物车项，最近更新在前；lock 为 true 时锁定读到的行
func (r *GormCartRepository) ListByUser(ctx context.Context, userID uint, lock bool) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := forUpdate(r.db.WithContext(ctx), lock).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Order("id desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByUserAndProduct 按用户与商品获取购物车项，不存在返回 nil
func (r *GormCartRepository) GetByUserAndProduct(ctx context.Context, userID, productID uint, lock bool) (*models.CartItem, error) {
	var item models.CartItem
	query := forUpdate(r.db.WithContext(ctx), lock)
	if err := query.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDForUser 获取属于该用户的购物车项，不存在或不属于该用户返回 nil
func (r *GormCartRepository) GetByIDForUser(ctx context.Context, id, userID uint, lock bool) (*models.CartItem, error) {
	var item models.CartItem
	query := forUpdate(r.db.WithContext(ctx), lock)
	if err := query.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Create 创建购物车项
func (r *GormCartRepository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// IncrementQuantity 合并数量，合并后超过 maxQuantity 时不更新（返回影响行数 0）
func (r *GormCartRepository) IncrementQuantity(ctx context.Context, id uint, delta, maxQuantity int, unitPrice models.Money, now time.Time) (int64, error) {
	if id == 0 || delta <= 0 {
		return 0, errors.New("invalid cart increment params")
	}
	result := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND quantity + ? <= ?", id, delta, maxQuantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"unit_price": unitPrice,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateQuantity 覆盖数量，保留单价快照
func (r *GormCartRepository) UpdateQuantity(ctx context.Context, id, userID uint, quantity int, now time.Time) (int64, error) {
	if id == 0 || quantity <= 0 {
		return 0, errors.New("invalid cart quantity params")
	}
	result := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteByIDForUser 删除属于该用户的购物车项
func (r *GormCartRepository) DeleteByIDForUser(ctx context.Context, id, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteByIDsForUser 仅删除指定且属于该用户的购物车项
func (r *GormCartRepository) DeleteByIDsForUser(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.CartItem{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ClearByUser 清空购物车，返回删除行数
func (r *GormCartRepository) ClearByUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
