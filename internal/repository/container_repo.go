package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContainerRepository interface {
	Create(ctx context.Context, container *model.ImportContainer) error
	Save(ctx context.Context, container *model.ImportContainer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ImportContainer, error)
	FindByNumber(ctx context.Context, number string) (*model.ImportContainer, error)
	List(ctx context.Context, page, limit int) ([]model.ImportContainer, int64, error)
	ListBatches(ctx context.Context, containerID uuid.UUID) ([]model.Batch, error)
}

type containerRepository struct {
	db *gorm.DB
}

func NewContainerRepository(db *gorm.DB) ContainerRepository {
	return &containerRepository{db: db}
}

func (r *containerRepository) Create(ctx context.Context, container *model.ImportContainer) error {
	return GetDB(ctx, r.db).Create(container).Error
}

func (r *containerRepository) Save(ctx context.Context, container *model.ImportContainer) error {
	return GetDB(ctx, r.db).Save(container).Error
}

func (r *containerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ImportContainer, error) {
	var container model.ImportContainer
	if err := GetDB(ctx, r.db).First(&container, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &container, nil
}

func (r *containerRepository) FindByNumber(ctx context.Context, number string) (*model.ImportContainer, error) {
	var container model.ImportContainer
	if err := GetDB(ctx, r.db).Where("container_no = ?", number).First(&container).Error; err != nil {
		return nil, err
	}
	return &container, nil
}

func (r *containerRepository) List(ctx context.Context, page, limit int) ([]model.ImportContainer, int64, error) {
	var containers []model.ImportContainer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ImportContainer{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&containers).Error; err != nil {
		return nil, 0, err
	}
	return containers, total, nil
}

func (r *containerRepository) ListBatches(ctx context.Context, containerID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	err := GetDB(ctx, r.db).Where("container_id = ?", containerID).
		Order("import_date asc, id asc").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}
