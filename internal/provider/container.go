package provider

import (
	"github.com/bookcart-next/internal/authz"
	"github.com/bookcart-next/internal/cache"
	"github.com/bookcart-next/internal/config"
	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/models"
	"github.com/bookcart-next/internal/queue"
	"github.com/bookcart-next/internal/repository"
	"github.com/bookcart-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client

	// Repositories
	UserRepo    repository.UserRepository
	ProductRepo repository.ProductRepository
	CartRepo    repository.CartRepository

	// Services
	AuthzService    *authz.Service
	IdentityService *service.IdentityService
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
	OrderHandoff    service.OrderHandoff
}

// NewContainer 初始化容器，使用全局数据库连接
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c, err := NewContainerWithDB(cfg, models.DB, queueClient)
	if err != nil {
		logger.Errorw("provider_init_failed", "error", err)
		panic(err)
	}
	return c
}

// NewContainerWithDB 使用指定数据库与队列客户端构建容器，queueClient 可为 nil
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) (*Container, error) {
	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repository.NewUserRepository(c.DB)
	c.ProductRepo = repository.NewProductRepository(c.DB)
	c.CartRepo = repository.NewCartRepository(c.DB)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return err
	}
	c.AuthzService = authzService

	var enqueuer service.CheckoutEnqueuer
	if c.QueueClient != nil {
		enqueuer = c.QueueClient
	}

	c.IdentityService = service.NewIdentityService(c.Config.UserJWT, c.UserRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo)
	c.CheckoutService = service.NewCheckoutService(c.CartRepo, c.ProductRepo, enqueuer)
	c.OrderHandoff = service.NewLoggingOrderHandoff(c.ProductRepo)
	return nil
}
