package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	Save(ctx context.Context, batch *model.Batch) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	FindByNumber(ctx context.Context, number string) (*model.Batch, error)
	// ListActiveByProductForUpdate locks and returns the allocatable batches
	// of a product in FIFO order. Locking the full candidate set up front is
	// what serializes concurrent reservations against the same stock.
	ListActiveByProductForUpdate(ctx context.Context, productID uuid.UUID) ([]model.Batch, error)
	List(ctx context.Context, page, limit int, productID *uuid.UUID) ([]model.Batch, int64, error)
	UpdateQuantities(ctx context.Context, id uuid.UUID, currentStock, reservedStock int) error
	StockSummaryByProduct(ctx context.Context, productID uuid.UUID) (current, reserved int, err error)
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *model.Batch) error {
	return GetDB(ctx, r.db).Create(batch).Error
}

func (r *batchRepository) Save(ctx context.Context, batch *model.Batch) error {
	return GetDB(ctx, r.db).Save(batch).Error
}

func (r *batchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Batch{}).Error
}

func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).Preload("Container").First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) FindByNumber(ctx context.Context, number string) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).Where("batch_number = ?", number).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) ListActiveByProductForUpdate(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("import_date asc, id asc").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *batchRepository) List(ctx context.Context, page, limit int, productID *uuid.UUID) ([]model.Batch, int64, error) {
	var batches []model.Batch
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Batch{})
	if productID != nil {
		db = db.Where("product_id = ?", *productID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Product").Preload("Container").
		Order("import_date asc, id asc").
		Offset(offset).Limit(limit).Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (r *batchRepository) StockSummaryByProduct(ctx context.Context, productID uuid.UUID) (int, int, error) {
	var row struct {
		Current  int64
		Reserved int64
	}
	err := GetDB(ctx, r.db).Model(&model.Batch{}).
		Select("COALESCE(SUM(current_stock), 0) AS current, COALESCE(SUM(reserved_stock), 0) AS reserved").
		Where("product_id = ? AND is_active = ?", productID, true).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return int(row.Current), int(row.Reserved), nil
}

func (r *batchRepository) UpdateQuantities(ctx context.Context, id uuid.UUID, currentStock, reservedStock int) error {
	return GetDB(ctx, r.db).Model(&model.Batch{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_stock":  currentStock,
			"reserved_stock": reservedStock,
		}).Error
}
