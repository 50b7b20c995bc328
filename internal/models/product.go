package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（购物车只读取，库存仅通过条件扣减修改）
type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                                                           // 主键
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`                                                        // 标题
	PriceAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`                                             // 原价
	DiscountPrice NullMoney      `gorm:"type:decimal(20,2)" json:"discount_price"`                                                       // 折扣价（可空）
	IsDiscounted  bool           `gorm:"not null;default:false" json:"is_discounted"`                                                    // 是否折扣中
	StockQuantity int            `gorm:"not null;default:0;check:chk_products_stock_quantity,stock_quantity >= 0" json:"stock_quantity"` // 库存
	IsVisible     bool           `gorm:"not null;default:true;index" json:"is_visible"`                                                  // 是否可见
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                                                        // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                                                     // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                                                                 // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
