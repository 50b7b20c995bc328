package public

import "github.com/bookcart-next/internal/provider"

// Handler 用户侧购物车接口处理器
type Handler struct {
	*provider.Container
}

// New 创建用户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
