package models

import (
	"errors"
	"strings"

	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedUser 种子用户定义
type SeedUser struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// EnsureSeedUser 按邮箱创建种子用户，已存在则原样返回
func EnsureSeedUser(db *gorm.DB, seed SeedUser) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" {
		return nil, errors.New("seed user email is required")
	}

	var existing User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  seed.DisplayName,
		Role:         seed.Role,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	logger.Infow("seed_user_created", "email", email, "role", seed.Role)
	return user, nil
}

// EnsureSeedProduct 按标题创建种子商品，已存在则原样返回
func EnsureSeedProduct(db *gorm.DB, product *Product) (*Product, error) {
	var existing Product
	err := db.Where("title = ?", product.Title).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := db.Create(product).Error; err != nil {
		return nil, err
	}
	logger.Infow("seed_product_created", "title", product.Title, "stock_quantity", product.StockQuantity)
	return product, nil
}
