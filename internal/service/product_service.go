package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	SKU                string  `json:"sku" binding:"required"`
	Name               string  `json:"name" binding:"required"`
	UnitOfMeasure      string  `json:"unit_of_measure"`
	DefaultDutyPercent float64 `json:"default_duty_percent" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Name               string   `json:"name"`
	UnitOfMeasure      string   `json:"unit_of_measure"`
	DefaultDutyPercent *float64 `json:"default_duty_percent"`
	IsActive           *bool    `json:"is_active"`
}

type ProductResponse struct {
	Product       model.Product `json:"product"`
	CurrentStock  int           `json:"current_stock"`
	ReservedStock int           `json:"reserved_stock"`
	FreeStock     int           `json:"free_stock"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*ProductResponse, error)
	UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (*ProductResponse, error)
	DeactivateProduct(ctx context.Context, userID string, id string) error
	GetProduct(ctx context.Context, id string) (*ProductResponse, error)
	ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
}

type productService struct {
	productRepo repository.ProductRepository
	batchRepo   repository.BatchRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	batchRepo repository.BatchRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

func (s *productService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*ProductResponse, error) {
	uom := req.UnitOfMeasure
	if uom == "" {
		uom = "PCS"
	}

	product := model.Product{
		SKU:                req.SKU,
		Name:               req.Name,
		UnitOfMeasure:      uom,
		DefaultDutyPercent: decimal.NewFromFloat(req.DefaultDutyPercent),
		IsActive:           true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.productRepo.FindBySKU(txCtx, req.SKU); err == nil {
			return fmt.Errorf("sku %q already exists", req.SKU)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return &ProductResponse{Product: product}, nil
}

func (s *productService) UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (*ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.UnitOfMeasure != "" {
		product.UnitOfMeasure = req.UnitOfMeasure
	}
	if req.DefaultDutyPercent != nil {
		product.DefaultDutyPercent = decimal.NewFromFloat(*req.DefaultDutyPercent)
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionUpdateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return s.withStock(ctx, product)
}

// DeactivateProduct soft-deactivates: existing batches and documents keep
// their references, but the product stops accepting new batches and orders.
func (s *productService) DeactivateProduct(ctx context.Context, userID string, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("product not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	product.IsActive = false
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to deactivate product: %w", err)
		}
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionDeactivateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    `{"is_active": false}`,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}

func (s *productService) GetProduct(ctx context.Context, id string) (*ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return s.withStock(ctx, product)
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		pr, err := s.withStock(ctx, &products[i])
		if err != nil {
			return nil, 0, err
		}
		res = append(res, *pr)
	}
	return res, total, nil
}

func (s *productService) withStock(ctx context.Context, product *model.Product) (*ProductResponse, error) {
	current, reserved, err := s.batchRepo.StockSummaryByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize stock: %w", err)
	}
	return &ProductResponse{
		Product:       *product,
		CurrentStock:  current,
		ReservedStock: reserved,
		FreeStock:     current - reserved,
	}, nil
}
