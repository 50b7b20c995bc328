package public

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/bookcart-next/internal/config"
	handlershared "github.com/bookcart-next/internal/http/handlers/shared"
	"github.com/bookcart-next/internal/models"
	"github.com/bookcart-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type testEnvelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Reason     string          `json:"reason"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupCartHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.AutoMigrateWith(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{UserJWT: config.JWTConfig{SecretKey: "handler-test-secret", ExpireHours: 1}}
	container, err := provider.NewContainerWithDB(cfg, db, nil)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	h := New(container)

	r := gin.New()
	// 测试用身份：X-Test-User 头部即用户 ID
	r.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				c.Set(handlershared.ContextKeyUserID, uint(id))
			}
		}
		c.Next()
	})
	r.GET("/cart", h.GetCart)
	r.DELETE("/cart", h.ClearCart)
	r.POST("/cart/items", h.AddCartItem)
	r.PUT("/cart/items/:id", h.UpdateCartItem)
	r.DELETE("/cart/items/:id", h.RemoveCartItem)
	r.POST("/cart/checkout", h.Checkout)
	return r, db
}

func createHandlerTestProduct(t *testing.T, db *gorm.DB, title, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:         title,
		PriceAmount:   models.MustMoney(price),
		StockQuantity: stock,
		IsVisible:     true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func doCartRequest(t *testing.T, r *gin.Engine, method, path, body string, userID uint) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	if env.StatusCode != w.Code {
		t.Fatalf("status_code %d should equal http status %d", env.StatusCode, w.Code)
	}
	return w, env
}

func TestAddCartItemMergeBeyondStock(t *testing.T) {
	r, db := setupCartHandlerTest(t)
	product := createHandlerTestProduct(t, db, "Go 程式設計", "20.00", 5)
	body := `{"product_id":` + strconv.Itoa(int(product.ID)) + `,"quantity":3}`

	w, env := doCartRequest(t, r, http.MethodPost, "/cart/items", body, 1)
	if w.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("first add want 200 success got %d %s", w.Code, env.Status)
	}

	w, env = doCartRequest(t, r, http.MethodPost, "/cart/items?lang=en-US", body, 1)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("merge beyond stock want 400 got %d", w.Code)
	}
	if env.Status != "failed" || env.Reason != "insufficient_stock" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Msg != "insufficient stock, only 5 left" {
		t.Fatalf("unexpected localized msg: %q", env.Msg)
	}
	var data struct {
		AvailableStock int `json:"available_stock"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if data.AvailableStock != 5 {
		t.Fatalf("available_stock want 5 got %d", data.AvailableStock)
	}

	_, env = doCartRequest(t, r, http.MethodGet, "/cart", "", 1)
	var cart struct {
		Items []struct {
			Quantity int `json:"quantity"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &cart); err != nil {
		t.Fatalf("unmarshal cart failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("stored quantity should stay 3, got %+v", cart.Items)
	}
}

func TestAddCartItemInvalidInput(t *testing.T) {
	r, db := setupCartHandlerTest(t)
	product := createHandlerTestProduct(t, db, "Rust 入門", "10.00", 5)
	id := strconv.Itoa(int(product.ID))

	cases := []struct {
		name string
		body string
	}{
		{name: "fractional quantity", body: `{"product_id":` + id + `,"quantity":2.5}`},
		{name: "zero quantity", body: `{"product_id":` + id + `,"quantity":0}`},
		{name: "negative quantity", body: `{"product_id":` + id + `,"quantity":-1}`},
		{name: "string product id", body: `{"product_id":"abc","quantity":1}`},
		{name: "missing product id", body: `{"quantity":1}`},
		{name: "negative product id", body: `{"product_id":-3}`},
		{name: "malformed json", body: `{"product_id":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := doCartRequest(t, r, http.MethodPost, "/cart/items", tc.body, 1)
			if w.Code != http.StatusBadRequest || env.Reason != "invalid_input" {
				t.Fatalf("want 400 invalid_input got %d %s", w.Code, env.Reason)
			}
		})
	}
}

func TestAddCartItemUnknownProduct(t *testing.T) {
	r, _ := setupCartHandlerTest(t)
	w, env := doCartRequest(t, r, http.MethodPost, "/cart/items", `{"product_id":999}`, 1)
	if w.Code != http.StatusNotFound || env.Reason != "product_not_found" {
		t.Fatalf("want 404 product_not_found got %d %s", w.Code, env.Reason)
	}
}

func TestCartRequiresIdentity(t *testing.T) {
	r, _ := setupCartHandlerTest(t)
	w, env := doCartRequest(t, r, http.MethodGet, "/cart", "", 0)
	if w.Code != http.StatusUnauthorized || env.Reason != "unauthenticated" {
		t.Fatalf("want 401 unauthenticated got %d %s", w.Code, env.Reason)
	}
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	r, db := setupCartHandlerTest(t)
	product := createHandlerTestProduct(t, db, "資料結構", "15.00", 4)
	body := `{"product_id":` + strconv.Itoa(int(product.ID)) + `}`
	_, env := doCartRequest(t, r, http.MethodPost, "/cart/items", body, 1)
	var line struct {
		CartItemID uint `json:"cart_item_id"`
		Quantity   int  `json:"quantity"`
	}
	if err := json.Unmarshal(env.Data, &line); err != nil {
		t.Fatalf("unmarshal line failed: %v", err)
	}
	if line.Quantity != 1 {
		t.Fatalf("default quantity want 1 got %d", line.Quantity)
	}
	itemPath := "/cart/items/" + strconv.Itoa(int(line.CartItemID))

	w, env := doCartRequest(t, r, http.MethodPut, itemPath, `{"quantity":9}`, 1)
	if w.Code != http.StatusBadRequest || env.Reason != "insufficient_stock" {
		t.Fatalf("update beyond stock want 400 insufficient_stock got %d %s", w.Code, env.Reason)
	}
	w, env = doCartRequest(t, r, http.MethodPut, itemPath, `{}`, 1)
	if w.Code != http.StatusBadRequest || env.Reason != "invalid_input" {
		t.Fatalf("update without quantity want 400 invalid_input got %d %s", w.Code, env.Reason)
	}
	w, _ = doCartRequest(t, r, http.MethodPut, itemPath, `{"quantity":4}`, 1)
	if w.Code != http.StatusOK {
		t.Fatalf("update want 200 got %d", w.Code)
	}

	// 其他用户不可见
	w, env = doCartRequest(t, r, http.MethodDelete, itemPath, "", 2)
	if w.Code != http.StatusNotFound || env.Reason != "cart_item_not_found" {
		t.Fatalf("foreign remove want 404 got %d %s", w.Code, env.Reason)
	}
	w, env = doCartRequest(t, r, http.MethodDelete, "/cart/items/abc", "", 1)
	if w.Code != http.StatusBadRequest || env.Reason != "invalid_input" {
		t.Fatalf("bad id want 400 invalid_input got %d %s", w.Code, env.Reason)
	}

	w, _ = doCartRequest(t, r, http.MethodPut, itemPath, `{"quantity":0}`, 1)
	if w.Code != http.StatusOK {
		t.Fatalf("update to zero want 200 got %d", w.Code)
	}
	w, env = doCartRequest(t, r, http.MethodDelete, itemPath, "", 1)
	if w.Code != http.StatusNotFound || env.Reason != "cart_item_not_found" {
		t.Fatalf("remove after delete want 404 got %d %s", w.Code, env.Reason)
	}
}

func TestClearCartReturnsRemovedCount(t *testing.T) {
	r, db := setupCartHandlerTest(t)
	first := createHandlerTestProduct(t, db, "A", "1.00", 5)
	second := createHandlerTestProduct(t, db, "B", "2.00", 5)
	doCartRequest(t, r, http.MethodPost, "/cart/items", `{"product_id":`+strconv.Itoa(int(first.ID))+`}`, 1)
	doCartRequest(t, r, http.MethodPost, "/cart/items", `{"product_id":`+strconv.Itoa(int(second.ID))+`}`, 1)

	w, env := doCartRequest(t, r, http.MethodDelete, "/cart", "", 1)
	if w.Code != http.StatusOK {
		t.Fatalf("clear want 200 got %d", w.Code)
	}
	var data struct {
		Removed int64 `json:"removed"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if data.Removed != 2 {
		t.Fatalf("removed want 2 got %d", data.Removed)
	}

	w, env = doCartRequest(t, r, http.MethodPost, "/cart/checkout", "", 1)
	if w.Code != http.StatusBadRequest || env.Reason != "cart_empty" {
		t.Fatalf("empty checkout want 400 cart_empty got %d %s", w.Code, env.Reason)
	}
}

func TestCheckoutResponses(t *testing.T) {
	r, db := setupCartHandlerTest(t)
	book := createHandlerTestProduct(t, db, "演算法", "12.50", 3)
	other := createHandlerTestProduct(t, db, "網路概論", "8.00", 2)
	doCartRequest(t, r, http.MethodPost, "/cart/items", `{"product_id":`+strconv.Itoa(int(book.ID))+`,"quantity":2}`, 1)
	doCartRequest(t, r, http.MethodPost, "/cart/items", `{"product_id":`+strconv.Itoa(int(other.ID))+`,"quantity":2}`, 1)

	if err := db.Model(&models.Product{}).Where("id = ?", other.ID).Update("stock_quantity", 1).Error; err != nil {
		t.Fatalf("lower stock failed: %v", err)
	}
	w, env := doCartRequest(t, r, http.MethodPost, "/cart/checkout", "", 1)
	if w.Code != http.StatusConflict || env.Reason != "checkout_conflict" {
		t.Fatalf("want 409 checkout_conflict got %d %s", w.Code, env.Reason)
	}
	var conflict struct {
		Violations []struct {
			ProductID      uint   `json:"product_id"`
			Reason         string `json:"reason"`
			AvailableStock int    `json:"available_stock"`
		} `json:"violations"`
	}
	if err := json.Unmarshal(env.Data, &conflict); err != nil {
		t.Fatalf("unmarshal conflict failed: %v", err)
	}
	if len(conflict.Violations) != 1 || conflict.Violations[0].ProductID != other.ID || conflict.Violations[0].AvailableStock != 1 {
		t.Fatalf("unexpected violations: %+v", conflict.Violations)
	}

	if err := db.Model(&models.Product{}).Where("id = ?", other.ID).Update("stock_quantity", 2).Error; err != nil {
		t.Fatalf("restore stock failed: %v", err)
	}
	w, env = doCartRequest(t, r, http.MethodPost, "/cart/checkout", "", 1)
	if w.Code != http.StatusOK {
		t.Fatalf("checkout want 200 got %d reason=%s", w.Code, env.Reason)
	}
	var result struct {
		CheckoutID  string `json:"checkout_id"`
		TotalAmount string `json:"total_amount"`
		Items       []struct {
			ProductID uint `json:"product_id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("unmarshal result failed: %v", err)
	}
	if result.CheckoutID == "" || result.TotalAmount != "41.00" || len(result.Items) != 2 {
		t.Fatalf("unexpected checkout result: %+v", result)
	}
}

func TestStoreUnavailableIsRetryable(t *testing.T) {
	r, db := setupCartHandlerTest(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	_ = sqlDB.Close()

	w, env := doCartRequest(t, r, http.MethodGet, "/cart", "", 1)
	if w.Code != http.StatusInternalServerError || env.Status != "error" || env.Reason != "store_unavailable" {
		t.Fatalf("want 500 error store_unavailable got %d %s %s", w.Code, env.Status, env.Reason)
	}
	var data struct {
		Retryable bool `json:"retryable"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if !data.Retryable {
		t.Fatalf("store errors should be retryable")
	}
}
