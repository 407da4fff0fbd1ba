package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryTxRepository interface {
	Create(ctx context.Context, tx *model.InventoryTransaction) error
	Save(ctx context.Context, tx *model.InventoryTransaction) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.InventoryTransaction, error)
	FindPurchaseByBatch(ctx context.Context, batchID uuid.UUID) (*model.InventoryTransaction, error)
	DeleteByBatch(ctx context.Context, batchID uuid.UUID) error
}

type inventoryTxRepository struct {
	db *gorm.DB
}

func NewInventoryTxRepository(db *gorm.DB) InventoryTxRepository {
	return &inventoryTxRepository{db: db}
}

func (r *inventoryTxRepository) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *inventoryTxRepository) Save(ctx context.Context, tx *model.InventoryTransaction) error {
	return GetDB(ctx, r.db).Save(tx).Error
}

// ListByBatch returns the batch's ledger in commit order.
func (r *inventoryTxRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.InventoryTransaction, error) {
	var txs []model.InventoryTransaction
	err := GetDB(ctx, r.db).
		Where("batch_id = ?", batchID).
		Order("created_at asc, id asc").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// FindPurchaseByBatch returns the originating purchase transaction of a batch.
func (r *inventoryTxRepository) FindPurchaseByBatch(ctx context.Context, batchID uuid.UUID) (*model.InventoryTransaction, error) {
	var tx model.InventoryTransaction
	err := GetDB(ctx, r.db).
		Where("batch_id = ? AND type = ?", batchID, model.TxTypePurchase).
		Order("created_at asc").
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *inventoryTxRepository) DeleteByBatch(ctx context.Context, batchID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("batch_id = ?", batchID).Delete(&model.InventoryTransaction{}).Error
}
