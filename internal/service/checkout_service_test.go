package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/models"
	"github.com/bookcart-next/internal/queue"
	"github.com/bookcart-next/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type checkoutEnqueuerStub struct {
	mu       sync.Mutex
	payloads []queue.CheckoutCompletedPayload
	err      error
}

func (s *checkoutEnqueuerStub) EnqueueCheckoutCompleted(_ context.Context, payload queue.CheckoutCompletedPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return s.err
}

func setupCheckoutServiceTest(t *testing.T, enqueuer CheckoutEnqueuer) (*CartService, *CheckoutService, *gorm.DB) {
	t.Helper()
	db := openServiceTestDB(t)
	cartRepo := repository.NewCartRepository(db)
	productRepo := repository.NewProductRepository(db)
	return NewCartService(cartRepo, productRepo), NewCheckoutService(cartRepo, productRepo, enqueuer), db
}

func productStock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var product models.Product
	if err := db.Unscoped().First(&product, id).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	return product.StockQuantity
}

func countCartItems(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count cart items failed: %v", err)
	}
	return count
}

func TestCheckoutDecrementsStockAndClearsCart(t *testing.T) {
	enqueuer := &checkoutEnqueuerStub{}
	cartSvc, checkoutSvc, db := setupCheckoutServiceTest(t, enqueuer)
	ctx := context.Background()
	checkoutSvc.newID = func() string { return "checkout-1" }

	book := createServiceTestProduct(t, db, "Go", "10.00", 5)
	pen := createServiceTestProduct(t, db, "Pen", "2.50", 3)
	if _, err := cartSvc.AddItem(ctx, AddCartItemInput{UserID: 1, ProductID: book.ID, Quantity: intPtr(2)}); err != nil {
		t.Fatalf("add book failed: %v", err)
	}
	if _, err := cartSvc.AddItem(ctx, AddCartItemInput{UserID: 1, ProductID: pen.ID, Quantity: intPtr(3)}); err != nil {
		t.Fatalf("add pen failed: %v", err)
	}

	result, err := checkoutSvc.Checkout(ctx, 1)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("snapshot size want 2 got %d", len(result.Items))
	}
	if result.TotalAmount.String() != "27.50" {
		t.Fatalf("total want 27.50 got %s", result.TotalAmount.String())
	}
	if got := productStock(t, db, book.ID); got != 3 {
		t.Fatalf("book stock want 3 got %d", got)
	}
	if got := productStock(t, db, pen.ID); got != 0 {
		t.Fatalf("pen stock want 0 got %d", got)
	}
	if got := countCartItems(t, db, 1); got != 0 {
		t.Fatalf("cart should be cleared, got %d", got)
	}

	if len(enqueuer.payloads) != 1 {
		t.Fatalf("handoff task want 1 got %d", len(enqueuer.payloads))
	}
	payload := enqueuer.payloads[0]
	if payload.CheckoutID != "checkout-1" || payload.UserID != 1 || len(payload.Items) != 2 {
		t.Fatalf("unexpected handoff payload: %+v", payload)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	_, checkoutSvc, _ := setupCheckoutServiceTest(t, nil)
	if _, err := checkoutSvc.Checkout(context.Background(), 1); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("empty cart want ErrCartEmpty got %v", err)
	}
}

func TestCheckoutCollectsAllViolationsAtomically(t *testing.T) {
	cartSvc, checkoutSvc, db := setupCheckoutServiceTest(t, nil)
	ctx := context.Background()

	ok := createServiceTestProduct(t, db, "正常", "10", 5)
	hidden := createServiceTestProduct(t, db, "下架", "10", 5)
	short := createServiceTestProduct(t, db, "缺貨", "10", 5)
	gone := createServiceTestProduct(t, db, "刪除", "10", 5)
	for _, p := range []*models.Product{ok, hidden, short, gone} {
		if _, err := cartSvc.AddItem(ctx, AddCartItemInput{UserID: 1, ProductID: p.ID, Quantity: intPtr(3)}); err != nil {
			t.Fatalf("add item failed: %v", err)
		}
	}
	if err := db.Model(&models.Product{}).Where("id = ?", hidden.ID).Update("is_visible", false).Error; err != nil {
		t.Fatalf("hide product failed: %v", err)
	}
	if err := db.Model(&models.Product{}).Where("id = ?", short.ID).Update("stock_quantity", 1).Error; err != nil {
		t.Fatalf("shrink stock failed: %v", err)
	}
	if err := db.Delete(&models.Product{}, gone.ID).Error; err != nil {
		t.Fatalf("delete product failed: %v", err)
	}

	_, err := checkoutSvc.Checkout(ctx, 1)
	if !errors.Is(err, ErrCheckoutConflict) {
		t.Fatalf("want ErrCheckoutConflict got %v", err)
	}
	var conflict *CheckoutConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error should carry violations, got %T", err)
	}
	reasons := map[uint]string{}
	for _, v := range conflict.Violations {
		reasons[v.ProductID] = v.Reason
	}
	if len(reasons) != 3 {
		t.Fatalf("violations want 3 got %+v", conflict.Violations)
	}
	if reasons[hidden.ID] != constants.ViolationProductUnavailable {
		t.Fatalf("hidden reason want product_unavailable got %s", reasons[hidden.ID])
	}
	if reasons[short.ID] != constants.ViolationInsufficientStock {
		t.Fatalf("short reason want insufficient_stock got %s", reasons[short.ID])
	}
	if reasons[gone.ID] != constants.ViolationProductMissing {
		t.Fatalf("gone reason want product_missing got %s", reasons[gone.ID])
	}

	if got := productStock(t, db, ok.ID); got != 5 {
		t.Fatalf("valid product stock must stay 5, got %d", got)
	}
	if got := productStock(t, db, short.ID); got != 1 {
		t.Fatalf("short product stock must stay 1, got %d", got)
	}
	if got := countCartItems(t, db, 1); got != 4 {
		t.Fatalf("cart must be untouched, got %d", got)
	}
}

func TestConcurrentCheckoutSingleUnit(t *testing.T) {
	cartSvc, checkoutSvc, db := setupCheckoutServiceTest(t, nil)
	product := createServiceTestProduct(t, db, "最後一本", "10", 1)
	for _, userID := range []uint{1, 2} {
		if _, err := cartSvc.AddItem(context.Background(), AddCartItemInput{UserID: userID, ProductID: product.ID}); err != nil {
			t.Fatalf("add item for user %d failed: %v", userID, err)
		}
	}

	errs := make([]error, 2)
	var g errgroup.Group
	for i, userID := range []uint{1, 2} {
		i, userID := i, userID
		g.Go(func() error {
			_, errs[i] = checkoutSvc.Checkout(context.Background(), userID)
			return nil
		})
	}
	_ = g.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrCheckoutConflict):
			conflicted++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("want one success and one conflict, got %d/%d", succeeded, conflicted)
	}
	if got := productStock(t, db, product.ID); got != 0 {
		t.Fatalf("stock want 0 got %d", got)
	}
}

func TestCheckoutUsesLivePriceAndIgnoresEnqueueFailure(t *testing.T) {
	enqueuer := &checkoutEnqueuerStub{err: errors.New("redis down")}
	cartSvc, checkoutSvc, db := setupCheckoutServiceTest(t, enqueuer)
	ctx := context.Background()
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	checkoutSvc.now = func() time.Time { return fixed }

	product := createServiceTestProduct(t, db, "調價", "10.00", 5)
	if _, err := cartSvc.AddItem(ctx, AddCartItemInput{UserID: 1, ProductID: product.ID, Quantity: intPtr(2)}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
		"discount_price": models.NewNullMoney(models.MustMoney("6.00")),
		"is_discounted":  true,
	}).Error; err != nil {
		t.Fatalf("start discount failed: %v", err)
	}

	result, err := checkoutSvc.Checkout(ctx, 1)
	if err != nil {
		t.Fatalf("checkout should succeed despite enqueue failure: %v", err)
	}
	if result.Items[0].UnitPrice.String() != "6.00" {
		t.Fatalf("unit price want live 6.00 got %s", result.Items[0].UnitPrice.String())
	}
	if result.TotalAmount.String() != "12.00" {
		t.Fatalf("total want 12.00 got %s", result.TotalAmount.String())
	}
	if !result.CheckedOutAt.Equal(fixed) {
		t.Fatalf("checked out at want %v got %v", fixed, result.CheckedOutAt)
	}
	if result.CheckoutID == "" {
		t.Fatalf("checkout id should be generated")
	}
	if len(enqueuer.payloads) != 1 {
		t.Fatalf("enqueue should be attempted once, got %d", len(enqueuer.payloads))
	}
}

// hookedProductRepo 在每次扣减库存前于同一事务内执行 before，模拟并发写入
type hookedProductRepo struct {
	repository.ProductRepository
	tx     *gorm.DB
	before func(tx *gorm.DB, productID uint) error
}

func (r *hookedProductRepo) WithTx(tx *gorm.DB) repository.ProductRepository {
	return &hookedProductRepo{ProductRepository: r.ProductRepository.WithTx(tx), tx: tx, before: r.before}
}

func (r *hookedProductRepo) DecrementStock(ctx context.Context, productID uint, quantity int) (int64, error) {
	if r.before != nil && r.tx != nil {
		if err := r.before(r.tx, productID); err != nil {
			return 0, err
		}
	}
	return r.ProductRepository.DecrementStock(ctx, productID, quantity)
}

func setupHookedCheckoutTest(t *testing.T, enqueuer CheckoutEnqueuer, before func(tx *gorm.DB, productID uint) error) (*CartService, *CheckoutService, *gorm.DB) {
	t.Helper()
	db := openServiceTestDB(t)
	cartRepo := repository.NewCartRepository(db)
	productRepo := repository.NewProductRepository(db)
	hooked := &hookedProductRepo{ProductRepository: productRepo, before: before}
	return NewCartService(cartRepo, productRepo), NewCheckoutService(cartRepo, hooked, enqueuer), db
}

func TestCheckoutStockRaceRollsBackEarlierDecrements(t *testing.T) {
	enqueuer := &checkoutEnqueuerStub{}
	var drainID uint
	cartSvc, checkoutSvc, db := setupHookedCheckoutTest(t, enqueuer, func(tx *gorm.DB, productID uint) error {
		if productID != drainID {
			return nil
		}
		return tx.Model(&models.Product{}).Where("id = ?", productID).Update("stock_quantity", 0).Error
	})
	ctx := context.Background()

	first := createServiceTestProduct(t, db, "先扣", "10.00", 5)
	second := createServiceTestProduct(t, db, "被搶", "10.00", 5)
	drainID = second.ID
	for _, p := range []*models.Product{first, second} {
		if _, err := cartSvc.AddItem(ctx, AddCartItemInput{UserID: 1, ProductID: p.ID, Quantity: intPtr(2)}); err != nil {
			t.Fatalf("add item failed: %v", err)
		}
	}

	_, err := checkoutSvc.Checkout(ctx, 1)
	if !errors.Is(err, ErrCheckoutConflict) {
		t.Fatalf("want ErrCheckoutConflict got %v", err)
	}
	var conflict *CheckoutConflictError
	if !errors.As(err, &conflict) || len(conflict.Violations) != 1 {
		t.Fatalf("want one violation got %v", err)
	}
	violation := conflict.Violations[0]
	if violation.ProductID != second.ID || violation.Reason != constants.ViolationInsufficientStock || violation.AvailableStock != 0 {
		t.Fatalf("unexpected violation: %+v", violation)
	}
	if got := productStock(t, db, first.ID); got != 5 {
		t.Fatalf("first product decrement should roll back, stock want 5 got %d", got)
	}
	if got := productStock(t, db, second.ID); got != 5 {
		t.Fatalf("second product stock want 5 got %d", got)
	}
	if got := countCartItems(t, db, 1); got != 2 {
		t.Fatalf("cart should be untouched, got %d lines", got)
	}
	if len(enqueuer.payloads) != 0 {
		t.Fatalf("failed checkout must not enqueue, got %d", len(enqueuer.payloads))
	}
}

func TestCheckoutKeepsLinesAddedAfterRead(t *testing.T) {
	var bookID, lateID uint
	inserted := false
	cartSvc, checkoutSvc, db := setupHookedCheckoutTest(t, nil, func(tx *gorm.DB, productID uint) error {
		if productID != bookID || inserted {
			return nil
		}
		inserted = true
		return tx.Create(&models.CartItem{
			UserID:    1,
			ProductID: lateID,
			Quantity:  1,
			UnitPrice: models.MustMoney("3.00"),
		}).Error
	})
	ctx := context.Background()

	book := createServiceTestProduct(t, db, "已讀取", "10.00", 5)
	late := createServiceTestProduct(t, db, "後加入", "3.00", 5)
	bookID, lateID = book.ID, late.ID
	if _, err := cartSvc.AddItem(ctx, AddCartItemInput{UserID: 1, ProductID: book.ID, Quantity: intPtr(1)}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	result, err := checkoutSvc.Checkout(ctx, 1)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ProductID != book.ID {
		t.Fatalf("snapshot should only hold the line read at checkout: %+v", result.Items)
	}
	if got := countCartItems(t, db, 1); got != 1 {
		t.Fatalf("late line should stay in cart, got %d lines", got)
	}
	if got := cartQuantity(t, db, 1, late.ID); got != 1 {
		t.Fatalf("late line quantity want 1 got %d", got)
	}
	if got := productStock(t, db, late.ID); got != 5 {
		t.Fatalf("late product stock want 5 got %d", got)
	}
}

func TestCheckoutConflictWhenLinesVanish(t *testing.T) {
	var firstID uint
	cartSvc, checkoutSvc, db := setupHookedCheckoutTest(t, nil, func(tx *gorm.DB, productID uint) error {
		if productID != firstID {
			return nil
		}
		return tx.Where("user_id = ? AND product_id = ?", 1, productID).Delete(&models.CartItem{}).Error
	})
	ctx := context.Background()

	first := createServiceTestProduct(t, db, "消失", "10.00", 5)
	second := createServiceTestProduct(t, db, "保留", "10.00", 5)
	firstID = first.ID
	for _, p := range []*models.Product{first, second} {
		if _, err := cartSvc.AddItem(ctx, AddCartItemInput{UserID: 1, ProductID: p.ID, Quantity: intPtr(1)}); err != nil {
			t.Fatalf("add item failed: %v", err)
		}
	}

	_, err := checkoutSvc.Checkout(ctx, 1)
	var conflict *CheckoutConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want CheckoutConflictError got %v", err)
	}
	if len(conflict.Violations) != 1 || conflict.Violations[0].Reason != constants.ViolationCartChanged {
		t.Fatalf("unexpected violations: %+v", conflict.Violations)
	}
	if got := productStock(t, db, first.ID); got != 5 {
		t.Fatalf("first stock want 5 got %d", got)
	}
	if got := productStock(t, db, second.ID); got != 5 {
		t.Fatalf("second stock want 5 got %d", got)
	}
	if got := countCartItems(t, db, 1); got != 2 {
		t.Fatalf("cart should be rolled back, got %d lines", got)
	}
}

func TestCheckoutLocksCartLinesOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open sqlmock failed: %v", err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open gorm postgres failed: %v", err)
	}
	checkoutSvc := NewCheckoutService(repository.NewCartRepository(db), repository.NewProductRepository(db), nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE user_id = \$1 ORDER BY .* FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity"}))
	mock.ExpectRollback()

	if _, err := checkoutSvc.Checkout(context.Background(), 7); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations not met: %v", err)
	}
}
