package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SalesOrderRepository interface {
	Create(ctx context.Context, order *model.SalesOrder) error
	Save(ctx context.Context, order *model.SalesOrder) error
	SaveItem(ctx context.Context, item *model.SalesOrderItem) error
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []model.SalesOrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.SalesOrderItem, error)
	List(ctx context.Context, page, limit int, status string, customerID *uuid.UUID) ([]model.SalesOrder, int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
}

type salesOrderRepository struct {
	db *gorm.DB
}

func NewSalesOrderRepository(db *gorm.DB) SalesOrderRepository {
	return &salesOrderRepository{db: db}
}

func (r *salesOrderRepository) Create(ctx context.Context, order *model.SalesOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *salesOrderRepository) Save(ctx context.Context, order *model.SalesOrder) error {
	return GetDB(ctx, r.db).Session(&gorm.Session{FullSaveAssociations: false}).
		Omit("Items").Save(order).Error
}

func (r *salesOrderRepository) SaveItem(ctx context.Context, item *model.SalesOrderItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

// ReplaceItems swaps the order's full item set in place. Callers run this
// inside the same transaction that re-derives reservations.
func (r *salesOrderRepository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []model.SalesOrderItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("sales_order_id = ?", orderID).Delete(&model.SalesOrderItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].SalesOrderID = orderID
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *salesOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error) {
	var order model.SalesOrder
	err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *salesOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error) {
	var order model.SalesOrder
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	var items []model.SalesOrderItem
	if err := GetDB(ctx, r.db).Where("sales_order_id = ?", id).Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *salesOrderRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*model.SalesOrderItem, error) {
	var item model.SalesOrderItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *salesOrderRepository) List(ctx context.Context, page, limit int, status string, customerID *uuid.UUID) ([]model.SalesOrder, int64, error) {
	var orders []model.SalesOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.SalesOrder{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if customerID != nil {
		db = db.Where("customer_id = ?", *customerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Customer").Preload("Items").
		Order("created_at desc").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *salesOrderRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SalesOrder{}).
		Where("order_no LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}
