package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-service/internal/migrate"
	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/pkg/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateShopDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newProduct(t *testing.T, repo *repository.Repository, title string) *models.Product {
	t.Helper()
	p := &models.Product{Title: title, Slug: title + "-" + uuid.NewString()[:8]}
	if err := repo.Products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func newOrder(t *testing.T, repo *repository.Repository, customer uuid.UUID) *models.Order {
	t.Helper()
	o := &models.Order{CustomerID: customer, OrderCode: uuid.New(), Status: models.OrderStatusPending}
	if err := repo.Orders.Create(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestDiscountRepo_MaxActivePercent(t *testing.T) {
	db := setupDB(t)
	repo := repository.New(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	p := newProduct(t, repo, "tea")

	baskets := []struct {
		b      models.DiscountBasket
		active bool
	}{
		{models.DiscountBasket{Title: "10", Discount: 10, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}, true},
		{models.DiscountBasket{Title: "25", Discount: 25, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}, true},
		// выключенная корзина не учитывается
		{models.DiscountBasket{Title: "50", Discount: 50, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}, false},
		// окно уже закрыто
		{models.DiscountBasket{Title: "40", Discount: 40, StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour)}, true},
	}
	for i := range baskets {
		b := &baskets[i].b
		if err := repo.Discounts.CreateBasket(ctx, b, []uuid.UUID{p.ID}); err != nil {
			t.Fatalf("CreateBasket: %v", err)
		}
		if !baskets[i].active {
			if err := db.Model(b).Update("is_active", false).Error; err != nil {
				t.Fatalf("deactivate: %v", err)
			}
		}
	}

	pct, err := repo.Discounts.MaxActivePercent(ctx, p.ID, now)
	if err != nil || pct != 25 {
		t.Fatalf("MaxActivePercent: got %d err=%v, want 25", pct, err)
	}

	other := newProduct(t, repo, "coffee")
	pct, err = repo.Discounts.MaxActivePercent(ctx, other.ID, now)
	if err != nil || pct != 0 {
		t.Fatalf("MaxActivePercent without baskets: got %d err=%v", pct, err)
	}

	// границы окна включительно
	pct, _ = repo.Discounts.MaxActivePercent(ctx, p.ID, now.Add(time.Hour))
	if pct != 25 {
		t.Fatalf("end boundary: got %d", pct)
	}
}

func TestDiscountRepo_ActiveCoupon(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Discounts.CreateCoupon(ctx, &models.Coupon{
		Code: "YALDA", Discount: 15, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}

	c, err := repo.Discounts.ActiveCoupon(ctx, "YALDA", now)
	if err != nil || c == nil || c.Discount != 15 {
		t.Fatalf("ActiveCoupon: %+v %v", c, err)
	}
	c, err = repo.Discounts.ActiveCoupon(ctx, "YALDA", now.Add(2*time.Hour))
	if err != nil || c != nil {
		t.Fatalf("expired coupon must not resolve: %+v %v", c, err)
	}
	c, err = repo.Discounts.ActiveCoupon(ctx, "NOPE", now)
	if err != nil || c != nil {
		t.Fatalf("unknown coupon: %+v %v", c, err)
	}
}

func TestOrderRepo_ConditionalUpdates(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	customer := uuid.New()
	o := newOrder(t, repo, customer)

	ok, err := repo.Orders.SetDiscount(ctx, o.ID, 10)
	if err != nil || !ok {
		t.Fatalf("SetDiscount: ok=%v err=%v", ok, err)
	}

	if got, _ := repo.Orders.GetByIDForUser(ctx, o.ID, uuid.New()); got != nil {
		t.Fatalf("foreign customer must not see order")
	}

	if err := repo.Orders.MarkPaid(ctx, o.ID); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}

	ok, err = repo.Orders.SetDiscount(ctx, o.ID, 50)
	if err != nil || ok {
		t.Fatalf("SetDiscount on finalized order: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Orders.UpdateCheckout(ctx, o.ID, repository.CheckoutFields{FirstName: "x"})
	if err != nil || ok {
		t.Fatalf("UpdateCheckout on finalized order: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Orders.RevertToPending(ctx, o.ID)
	if err != nil || ok {
		t.Fatalf("RevertToPending on finalized order: ok=%v err=%v", ok, err)
	}

	got, _ := repo.Orders.GetByID(ctx, o.ID)
	if got.Discount != 10 || got.Status != models.OrderStatusPaid || !got.IsFinally {
		t.Fatalf("unexpected order state: %+v", got)
	}
}

func TestOrderRepo_DiscountCheck(t *testing.T) {
	repo := repository.New(setupDB(t))
	o := newOrder(t, repo, uuid.New())
	if _, err := repo.Orders.SetDiscount(context.Background(), o.ID, 150); err == nil {
		t.Fatalf("discount above 100 must violate check constraint")
	}
}

func TestPaymentRepo_MarkSucceededOnce(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	customer := uuid.New()
	o := newOrder(t, repo, customer)

	p := &models.Payment{OrderID: o.ID, CustomerID: customer, Amount: 981000, Status: models.PaymentStatusCreated}
	if err := repo.Payments.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Payments.SetAuthority(ctx, p.ID, "A000001"); err != nil {
		t.Fatalf("SetAuthority: %v", err)
	}
	byAuth, err := repo.Payments.GetByAuthority(ctx, "A000001")
	if err != nil || byAuth == nil || byAuth.ID != p.ID || byAuth.Status != models.PaymentStatusAwaitingGateway {
		t.Fatalf("GetByAuthority: %+v %v", byAuth, err)
	}
	pending, err := repo.Payments.LatestPendingForUser(ctx, customer)
	if err != nil || pending == nil || pending.ID != p.ID {
		t.Fatalf("LatestPendingForUser: %+v %v", pending, err)
	}

	ok, err := repo.Payments.MarkSucceeded(ctx, p.ID, models.PaymentStatusVerified, "100", "REF1")
	if err != nil || !ok {
		t.Fatalf("first MarkSucceeded: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Payments.MarkSucceeded(ctx, p.ID, models.PaymentStatusAlreadyVerified, "101", "REF2")
	if err != nil || ok {
		t.Fatalf("second MarkSucceeded must be a no-op: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Payments.MarkFailed(ctx, p.ID, models.PaymentStatusGatewayError, "-2", "late failure")
	if err != nil || ok {
		t.Fatalf("MarkFailed after success must be a no-op: ok=%v err=%v", ok, err)
	}

	got, _ := repo.Payments.GetByID(ctx, p.ID)
	if got.RefID != "REF1" || got.Status != models.PaymentStatusVerified || !got.IsFinaly {
		t.Fatalf("unexpected payment state: %+v", got)
	}
	if pending, _ := repo.Payments.LatestPendingForUser(ctx, customer); pending != nil {
		t.Fatalf("finalized payment is not pending")
	}
}

func TestPaymentRepo_MarkFailedOnlyFromPending(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	customer := uuid.New()
	o := newOrder(t, repo, customer)

	p := &models.Payment{OrderID: o.ID, CustomerID: customer, Amount: 981000, Status: models.PaymentStatusCreated}
	if err := repo.Payments.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if has, err := repo.Payments.HasPendingForOrder(ctx, o.ID); err != nil || !has {
		t.Fatalf("HasPendingForOrder before failure: has=%v err=%v", has, err)
	}

	ok, err := repo.Payments.MarkFailed(ctx, p.ID, models.PaymentStatusCancelled, "-99", "cancelled")
	if err != nil || !ok {
		t.Fatalf("first MarkFailed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Payments.MarkFailed(ctx, p.ID, models.PaymentStatusGatewayError, "-2", "timeout")
	if err != nil || ok {
		t.Fatalf("MarkFailed on cancelled payment must be a no-op: ok=%v err=%v", ok, err)
	}

	got, _ := repo.Payments.GetByID(ctx, p.ID)
	if got.Status != models.PaymentStatusCancelled || got.StatusCode != "-99" || got.Message != "cancelled" {
		t.Fatalf("first failure overwritten: %+v", got)
	}
	if has, err := repo.Payments.HasPendingForOrder(ctx, o.ID); err != nil || has {
		t.Fatalf("HasPendingForOrder after failure: has=%v err=%v", has, err)
	}
}

func TestPaymentRepo_AuthorityUnique(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	customer := uuid.New()
	o := newOrder(t, repo, customer)

	a := "A-dup"
	for i := 0; i < 2; i++ {
		err := repo.Payments.Create(ctx, &models.Payment{OrderID: o.ID, CustomerID: customer, Amount: 1, Authority: &a})
		if i == 1 && err == nil {
			t.Fatalf("duplicate authority must be rejected")
		}
	}
	// без authority платежей может быть сколько угодно
	for i := 0; i < 2; i++ {
		if err := repo.Payments.Create(ctx, &models.Payment{OrderID: o.ID, CustomerID: customer, Amount: 1}); err != nil {
			t.Fatalf("payment without authority: %v", err)
		}
	}
}

func TestPaymentRepo_StatsAndExpire(t *testing.T) {
	db := setupDB(t)
	repo := repository.New(db)
	ctx := context.Background()
	customer := uuid.New()
	o := newOrder(t, repo, customer)

	mk := func(amount int64, status models.PaymentStatus) *models.Payment {
		p := &models.Payment{OrderID: o.ID, CustomerID: customer, Amount: amount, Status: status}
		if err := repo.Payments.Create(ctx, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
		return p
	}
	ok := mk(1000, models.PaymentStatusCreated)
	if _, err := repo.Payments.MarkSucceeded(ctx, ok.ID, models.PaymentStatusVerified, "100", "R"); err != nil {
		t.Fatalf("MarkSucceeded: %v", err)
	}
	mk(2000, models.PaymentStatusCancelled)
	stale := mk(3000, models.PaymentStatusAwaitingGateway)
	if err := db.Model(stale).Update("created_at", time.Now().Add(-2*time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	mk(4000, models.PaymentStatusCreated)

	from, to := time.Now().Add(-24*time.Hour), time.Now().Add(time.Hour)
	st, err := repo.Payments.Stats(ctx, from, to)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalCount != 4 || st.SuccessCount != 1 || st.FailedCount != 1 || st.PendingCount != 2 || st.SuccessAmount != 1000 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	n, err := repo.Payments.ExpireStale(ctx, time.Now().Add(-time.Hour), "-2", "timeout")
	if err != nil || n != 1 {
		t.Fatalf("ExpireStale: n=%d err=%v", n, err)
	}
	got, _ := repo.Payments.GetByID(ctx, stale.ID)
	if got.Status != models.PaymentStatusGatewayError || got.Message != "timeout" {
		t.Fatalf("stale payment not expired: %+v", got)
	}

	finaly := true
	list, total, err := repo.Payments.List(ctx, repository.PaymentListFilter{IsFinaly: &finaly})
	if err != nil || total != 1 || len(list) != 1 || list[0].ID != ok.ID {
		t.Fatalf("List finalized: total=%d err=%v", total, err)
	}
}

func TestRepository_WithTxRollsBack(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	customer := uuid.New()
	boom := errors.New("boom")

	var created uuid.UUID
	err := repo.WithTx(ctx, func(tx *repository.Repository) error {
		o := &models.Order{CustomerID: customer, OrderCode: uuid.New()}
		if err := tx.Orders.Create(ctx, o); err != nil {
			return err
		}
		created = o.ID
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error: %v", err)
	}
	if got, _ := repo.Orders.GetByID(ctx, created); got != nil {
		t.Fatalf("order must be rolled back")
	}
}

func TestNotificationRepo_ReadLifecycle(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	user := uuid.New()

	n := &models.Notification{UserID: user, Title: "t", Message: "m", Type: models.NotificationTypeOrder}
	if err := repo.Notifications.Create(ctx, n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, _ := repo.Notifications.MarkRead(ctx, n.ID, uuid.New()); ok {
		t.Fatalf("foreign user must not mark notification")
	}
	if ok, err := repo.Notifications.MarkRead(ctx, n.ID, user); err != nil || !ok {
		t.Fatalf("MarkRead: ok=%v err=%v", ok, err)
	}
	unread, _ := repo.Notifications.ListByUser(ctx, user, true, 10)
	if len(unread) != 0 {
		t.Fatalf("expected no unread, got %d", len(unread))
	}
	deleted, err := repo.Notifications.DeleteReadBefore(ctx, time.Now().Add(time.Minute))
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteReadBefore: %d %v", deleted, err)
	}
}
