package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.SalesInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error)
	FindByChallan(ctx context.Context, challanID uuid.UUID) (*model.SalesInvoice, error)
	List(ctx context.Context, page, limit int, customerID *uuid.UUID) ([]model.SalesInvoice, int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.SalesInvoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error) {
	var invoice model.SalesInvoice
	err := GetDB(ctx, r.db).
		Preload("SalesOrder").
		Preload("Items").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByChallan(ctx context.Context, challanID uuid.UUID) (*model.SalesInvoice, error) {
	var invoice model.SalesInvoice
	err := GetDB(ctx, r.db).Where("challan_id = ?", challanID).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, page, limit int, customerID *uuid.UUID) ([]model.SalesInvoice, int64, error) {
	var invoices []model.SalesInvoice
	var total int64

	db := GetDB(ctx, r.db).Model(&model.SalesInvoice{})
	if customerID != nil {
		db = db.Where("customer_id = ?", *customerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Items").
		Order("created_at desc").
		Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SalesInvoice{}).
		Where("invoice_no LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}
