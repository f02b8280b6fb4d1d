package migrate

import (
	"context"
	"shop-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint для целостности
	CreateIndexes          bool // индексы
	CreateFKsViaSQL        bool // FK через SQL (поверх GORM-constraint)
	CreateUpdatedAtTrigger bool // триггер обновления updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

var checkSteps = []step{
	{"orders.status", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('pending','processing','paid','shipped','delivered','canceled'));`},
	{"orders.discount", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_discount_range;
ALTER TABLE orders ADD CONSTRAINT chk_orders_discount_range
  CHECK (discount BETWEEN 0 AND 100);`},
	{"order_details.qty", `
ALTER TABLE order_details DROP CONSTRAINT IF EXISTS chk_order_details_qty_gt_zero;
ALTER TABLE order_details ADD CONSTRAINT chk_order_details_qty_gt_zero
  CHECK (qty > 0);`},
	{"order_details.price", `
ALTER TABLE order_details DROP CONSTRAINT IF EXISTS chk_order_details_price_non_negative;
ALTER TABLE order_details ADD CONSTRAINT chk_order_details_price_non_negative
  CHECK (price >= 0);`},
	{"product_sale_types", `
ALTER TABLE product_sale_types DROP CONSTRAINT IF EXISTS chk_sale_types_valid;
ALTER TABLE product_sale_types ADD CONSTRAINT chk_sale_types_valid
  CHECK (type_sale IN (1,2,3) AND price >= 0 AND member_carton >= 1 AND limited_sale >= 0);`},
	{"discount_baskets", `
ALTER TABLE discount_baskets DROP CONSTRAINT IF EXISTS chk_discount_baskets_valid;
ALTER TABLE discount_baskets ADD CONSTRAINT chk_discount_baskets_valid
  CHECK (discount BETWEEN 0 AND 100 AND start_date <= end_date);`},
	{"coupons", `
ALTER TABLE coupons DROP CONSTRAINT IF EXISTS chk_coupons_valid;
ALTER TABLE coupons ADD CONSTRAINT chk_coupons_valid
  CHECK (discount BETWEEN 0 AND 100 AND start_date <= end_date);`},
	{"payments.status", `
ALTER TABLE payments DROP CONSTRAINT IF EXISTS chk_payments_status_allowed;
ALTER TABLE payments ADD CONSTRAINT chk_payments_status_allowed
  CHECK (status IN ('created','awaiting_gateway','verified','already_verified','cancelled','gateway_error'));`},
	{"payments.amount", `
ALTER TABLE payments DROP CONSTRAINT IF EXISTS chk_payments_amount_non_negative;
ALTER TABLE payments ADD CONSTRAINT chk_payments_amount_non_negative
  CHECK (amount >= 0);`},
}

var indexSteps = []step{
	{"ix_orders_customer_created", `
CREATE INDEX IF NOT EXISTS ix_orders_customer_created ON orders (customer_id, created_at DESC);`},
	{"ix_payments_customer_pending", `
CREATE INDEX IF NOT EXISTS ix_payments_customer_pending ON payments (customer_id, created_at DESC)
  WHERE is_finaly = false;`},
	{"ix_discount_baskets_window", `
CREATE INDEX IF NOT EXISTS ix_discount_baskets_window ON discount_baskets (start_date, end_date)
  WHERE is_active = true;`},
	{"ix_notifications_user_unread", `
CREATE INDEX IF NOT EXISTS ix_notifications_user_unread ON notifications (user_id, created_at DESC)
  WHERE is_read = false;`},
}

var fkSteps = []step{
	{"order_details.order_id -> orders.id", `
ALTER TABLE order_details
  DROP CONSTRAINT IF EXISTS fk_order_details_order,
  ADD CONSTRAINT fk_order_details_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;`},
	{"payments.order_id -> orders.id", `
ALTER TABLE payments
  DROP CONSTRAINT IF EXISTS fk_payments_order,
  ADD CONSTRAINT fk_payments_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;`},
	{"orders.address_id -> addresses.id", `
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS fk_orders_address,
  ADD CONSTRAINT fk_orders_address
    FOREIGN KEY (address_id) REFERENCES addresses(id) ON DELETE SET NULL;`},
	{"discount_details.basket_id -> discount_baskets.id", `
ALTER TABLE discount_details
  DROP CONSTRAINT IF EXISTS fk_discount_details_basket,
  ADD CONSTRAINT fk_discount_details_basket
    FOREIGN KEY (basket_id) REFERENCES discount_baskets(id) ON DELETE CASCADE;`},
	{"discount_details.product_id -> products.id", `
ALTER TABLE discount_details
  DROP CONSTRAINT IF EXISTS fk_discount_details_product,
  ADD CONSTRAINT fk_discount_details_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
}

func MigrateShopDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных магазина")
	db = db.WithContext(ctx)

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц")
	if err := db.AutoMigrate(
		&models.Brand{},
		&models.Product{},
		&models.ProductSaleType{},
		&models.DiscountBasket{},
		&models.DiscountDetail{},
		&models.Coupon{},
		&models.Address{},
		&models.Order{},
		&models.OrderDetail{},
		&models.Payment{},
		&models.Notification{},
	); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}
	log.Info("Таблицы успешно созданы")

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_payments_updated ON payments;
CREATE TRIGGER trg_payments_updated
BEFORE UPDATE ON payments
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated
BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("Не удалось создать триггер updated_at", zap.Error(err))
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := runSteps(db, log, checkSteps); err != nil {
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов")
		if err := runSteps(db, log, indexSteps); err != nil {
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := runSteps(db, log, fkSteps); err != nil {
			return err
		}
	}

	log.Info("Миграция базы данных магазина успешно завершена")
	return nil
}

func runSteps(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error("Ошибка миграции", zap.String("step", s.name), zap.Error(err))
			return err
		}
	}
	return nil
}
