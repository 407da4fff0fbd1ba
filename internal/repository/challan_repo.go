package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallanRepository interface {
	Create(ctx context.Context, challan *model.DeliveryChallan) error
	Save(ctx context.Context, challan *model.DeliveryChallan) error
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceItems(ctx context.Context, challanID uuid.UUID, items []model.DeliveryChallanItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DeliveryChallan, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DeliveryChallan, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.DeliveryChallanItem, error)
	List(ctx context.Context, page, limit int, status string, orderID *uuid.UUID) ([]model.DeliveryChallan, int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	ExistsByBatch(ctx context.Context, batchID uuid.UUID) (bool, error)
}

type challanRepository struct {
	db *gorm.DB
}

func NewChallanRepository(db *gorm.DB) ChallanRepository {
	return &challanRepository{db: db}
}

func (r *challanRepository) Create(ctx context.Context, challan *model.DeliveryChallan) error {
	return GetDB(ctx, r.db).Create(challan).Error
}

func (r *challanRepository) Save(ctx context.Context, challan *model.DeliveryChallan) error {
	return GetDB(ctx, r.db).Omit("Items").Save(challan).Error
}

func (r *challanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("challan_id = ?", id).Delete(&model.DeliveryChallanItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.DeliveryChallan{}).Error
}

func (r *challanRepository) ReplaceItems(ctx context.Context, challanID uuid.UUID, items []model.DeliveryChallanItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("challan_id = ?", challanID).Delete(&model.DeliveryChallanItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ChallanID = challanID
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *challanRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DeliveryChallan, error) {
	var challan model.DeliveryChallan
	err := GetDB(ctx, r.db).
		Preload("SalesOrder").
		Preload("Items").
		Preload("Items.Batch").
		First(&challan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &challan, nil
}

func (r *challanRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DeliveryChallan, error) {
	var challan model.DeliveryChallan
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&challan).Error
	if err != nil {
		return nil, err
	}
	var items []model.DeliveryChallanItem
	if err := GetDB(ctx, r.db).Where("challan_id = ?", id).Find(&items).Error; err != nil {
		return nil, err
	}
	challan.Items = items
	return &challan, nil
}

func (r *challanRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*model.DeliveryChallanItem, error) {
	var item model.DeliveryChallanItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *challanRepository) List(ctx context.Context, page, limit int, status string, orderID *uuid.UUID) ([]model.DeliveryChallan, int64, error) {
	var challans []model.DeliveryChallan
	var total int64

	db := GetDB(ctx, r.db).Model(&model.DeliveryChallan{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if orderID != nil {
		db = db.Where("sales_order_id = ?", *orderID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("SalesOrder").Preload("Items").
		Order("created_at desc").
		Offset(offset).Limit(limit).Find(&challans).Error; err != nil {
		return nil, 0, err
	}

	return challans, total, nil
}

func (r *challanRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.DeliveryChallan{}).
		Where("challan_no LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

// ExistsByBatch reports whether any challan line references the batch. Used
// to block hard-deleting a batch that is part of a dispatch history.
func (r *challanRepository) ExistsByBatch(ctx context.Context, batchID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.DeliveryChallanItem{}).
		Where("batch_id = ?", batchID).
		Count(&count).Error
	return count > 0, err
}
