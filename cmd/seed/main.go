package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bookcart-next/internal/config"
	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/models"
	"github.com/bookcart-next/internal/repository"
	"github.com/bookcart-next/internal/service"
)

func main() {
	var printTokens bool
	flag.BoolVar(&printTokens, "tokens", true, "輸出示範使用者的 Bearer token")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	// 连接数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, logger.IsDebug(cfg.Server.Mode)); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 示范书目，其中一本为折扣商品、一本已下架、一本无库存
	products := []*models.Product{
		{Title: "Go 語言程式設計", PriceAmount: models.MustMoney("580.00"), StockQuantity: 12, IsVisible: true},
		{
			Title:         "資料結構與演算法",
			PriceAmount:   models.MustMoney("650.00"),
			DiscountPrice: models.NewNullMoney(models.MustMoney("520.00")),
			IsDiscounted:  true,
			StockQuantity: 5,
			IsVisible:     true,
		},
		{Title: "分散式系統設計", PriceAmount: models.MustMoney("720.00"), StockQuantity: 3, IsVisible: true},
		{Title: "絕版：網路協定導讀", PriceAmount: models.MustMoney("300.00"), StockQuantity: 4, IsVisible: false},
		{Title: "作業系統概論", PriceAmount: models.MustMoney("480.00"), StockQuantity: 0, IsVisible: true},
	}
	for _, product := range products {
		saved, err := models.EnsureSeedProduct(models.DB, product)
		if err != nil {
			stdLog.Printf("Failed to seed product %s: %v", product.Title, err)
			continue
		}
		stdLog.Printf("Product #%d %s (stock=%d, visible=%v)", saved.ID, saved.Title, saved.StockQuantity, saved.IsVisible)
	}

	password := strings.TrimSpace(os.Getenv("BC_SEED_PASSWORD"))
	if password == "" {
		password = "bookcart-demo"
	}
	seeds := []models.SeedUser{
		{Email: "reader@bookcart.local", Password: password, DisplayName: "Reader", Role: constants.RoleUser},
		{Email: "coach@bookcart.local", Password: password, DisplayName: "Coach", Role: constants.RoleCoach},
		{Email: "admin@bookcart.local", Password: password, DisplayName: "Admin", Role: constants.RoleAdmin},
	}

	identity := service.NewIdentityService(cfg.UserJWT, repository.NewUserRepository(models.DB))
	for _, seed := range seeds {
		user, err := models.EnsureSeedUser(models.DB, seed)
		if err != nil {
			stdLog.Printf("Failed to seed user %s: %v", seed.Email, err)
			continue
		}
		if !printTokens {
			stdLog.Printf("User #%d %s (%s)", user.ID, user.Email, user.Role)
			continue
		}
		token, expiresAt, err := identity.IssueToken(user)
		if err != nil {
			stdLog.Printf("Failed to issue token for %s: %v", user.Email, err)
			continue
		}
		fmt.Printf("%s (%s, id=%d)\n  expires: %s\n  Authorization: Bearer %s\n",
			user.Email, user.Role, user.ID, expiresAt.Format("2006-01-02 15:04:05"), token)
	}

	stdLog.Printf("Seed completed")
}
