package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequirementRepository interface {
	Create(ctx context.Context, req *model.ImportRequirement) error
	Save(ctx context.Context, req *model.ImportRequirement) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ImportRequirement, error)
	List(ctx context.Context, page, limit int, status string, productID *uuid.UUID) ([]model.ImportRequirement, int64, error)
	CancelOpenByOrder(ctx context.Context, orderID uuid.UUID) error
}

type requirementRepository struct {
	db *gorm.DB
}

func NewRequirementRepository(db *gorm.DB) RequirementRepository {
	return &requirementRepository{db: db}
}

func (r *requirementRepository) Create(ctx context.Context, req *model.ImportRequirement) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requirementRepository) Save(ctx context.Context, req *model.ImportRequirement) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requirementRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ImportRequirement, error) {
	var req model.ImportRequirement
	if err := GetDB(ctx, r.db).Preload("Product").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requirementRepository) List(ctx context.Context, page, limit int, status string, productID *uuid.UUID) ([]model.ImportRequirement, int64, error) {
	var reqs []model.ImportRequirement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ImportRequirement{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if productID != nil {
		db = db.Where("product_id = ?", *productID)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Product").
		Order("priority desc, created_at asc").
		Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// CancelOpenByOrder cancels any still-open shortage records linked to the
// order, e.g. after the order itself is cancelled or re-reserved in full.
func (r *requirementRepository) CancelOpenByOrder(ctx context.Context, orderID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.ImportRequirement{}).
		Where("sales_order_id = ? AND status = ?", orderID, model.RequirementOpen).
		Update("status", model.RequirementCancelled).Error
}
