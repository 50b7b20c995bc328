package constants

// 用户角色常量
const (
	RoleUser  = "user"
	RoleCoach = "coach"
	RoleAdmin = "admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 结账校验失败原因
const (
	ViolationProductMissing     = "product_missing"
	ViolationProductUnavailable = "product_unavailable"
	ViolationInsufficientStock  = "insufficient_stock"
	ViolationCartChanged        = "cart_changed"
)

// 购物车默认值
const (
	DefaultAddQuantity = 1
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskCheckoutCompleted = "cart:checkout_completed"
)
