package service

import (
	"github.com/bookcart-next/internal/models"
)

// EffectiveUnitPrice 折扣中且折扣价有效时取折扣价，否则取原价
func EffectiveUnitPrice(product *models.Product) models.Money {
	if product == nil {
		return models.Money{}
	}
	if product.IsDiscounted {
		if discount, ok := product.DiscountPrice.Money(); ok && !discount.IsNegative() {
			return discount
		}
	}
	return models.NewMoneyFromDecimal(product.PriceAmount.Decimal)
}
