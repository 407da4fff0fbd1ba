package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReturnRepository interface {
	CreateReturn(ctx context.Context, ret *model.MaterialReturn) error
	SaveReturn(ctx context.Context, ret *model.MaterialReturn) error
	FindReturnByID(ctx context.Context, id uuid.UUID) (*model.MaterialReturn, error)
	FindReturnByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MaterialReturn, error)
	ListReturns(ctx context.Context, page, limit int, status string) ([]model.MaterialReturn, int64, error)
	SumReturnedByChallanItem(ctx context.Context, challanItemID uuid.UUID) (int, error)
	CountReturnsByPrefix(ctx context.Context, prefix string) (int64, error)

	CreateRejection(ctx context.Context, rej *model.StockRejection) error
	SaveRejection(ctx context.Context, rej *model.StockRejection) error
	FindRejectionByID(ctx context.Context, id uuid.UUID) (*model.StockRejection, error)
	FindRejectionByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockRejection, error)
	ListRejections(ctx context.Context, page, limit int, status string) ([]model.StockRejection, int64, error)
	CountRejectionsByPrefix(ctx context.Context, prefix string) (int64, error)
}

type returnRepository struct {
	db *gorm.DB
}

func NewReturnRepository(db *gorm.DB) ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) CreateReturn(ctx context.Context, ret *model.MaterialReturn) error {
	return GetDB(ctx, r.db).Create(ret).Error
}

func (r *returnRepository) SaveReturn(ctx context.Context, ret *model.MaterialReturn) error {
	return GetDB(ctx, r.db).Save(ret).Error
}

func (r *returnRepository) FindReturnByID(ctx context.Context, id uuid.UUID) (*model.MaterialReturn, error) {
	var ret model.MaterialReturn
	if err := GetDB(ctx, r.db).Preload("ChallanItem").First(&ret, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) FindReturnByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MaterialReturn, error) {
	var ret model.MaterialReturn
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) ListReturns(ctx context.Context, page, limit int, status string) ([]model.MaterialReturn, int64, error) {
	var returns []model.MaterialReturn
	var total int64

	db := GetDB(ctx, r.db).Model(&model.MaterialReturn{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&returns).Error; err != nil {
		return nil, 0, err
	}
	return returns, total, nil
}

// SumReturnedByChallanItem totals approved return quantity for a challan line,
// used to cap cumulative returns at the delivered quantity.
func (r *returnRepository) SumReturnedByChallanItem(ctx context.Context, challanItemID uuid.UUID) (int, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.MaterialReturn{}).
		Where("challan_item_id = ? AND status = ?", challanItemID, model.ReturnStatusApproved).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return int(total), err
}

func (r *returnRepository) CountReturnsByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.MaterialReturn{}).
		Where("return_no LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

func (r *returnRepository) CreateRejection(ctx context.Context, rej *model.StockRejection) error {
	return GetDB(ctx, r.db).Create(rej).Error
}

func (r *returnRepository) SaveRejection(ctx context.Context, rej *model.StockRejection) error {
	return GetDB(ctx, r.db).Save(rej).Error
}

func (r *returnRepository) FindRejectionByID(ctx context.Context, id uuid.UUID) (*model.StockRejection, error) {
	var rej model.StockRejection
	if err := GetDB(ctx, r.db).Preload("Batch").First(&rej, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rej, nil
}

func (r *returnRepository) FindRejectionByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockRejection, error) {
	var rej model.StockRejection
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&rej).Error
	if err != nil {
		return nil, err
	}
	return &rej, nil
}

func (r *returnRepository) ListRejections(ctx context.Context, page, limit int, status string) ([]model.StockRejection, int64, error) {
	var rejections []model.StockRejection
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockRejection{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Batch").Order("created_at desc").
		Offset(offset).Limit(limit).Find(&rejections).Error; err != nil {
		return nil, 0, err
	}
	return rejections, total, nil
}

func (r *returnRepository) CountRejectionsByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.StockRejection{}).
		Where("rejection_no LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}
