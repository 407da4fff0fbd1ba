package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/stock"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateBatchRequest struct {
	ProductID        string  `json:"product_id" binding:"required"`
	BatchNumber      string  `json:"batch_number" binding:"required"`
	ImportDate       string  `json:"import_date" binding:"required"` // YYYY-MM-DD
	ExpiryDate       string  `json:"expiry_date"`                    // optional, YYYY-MM-DD
	ImportedQuantity int     `json:"imported_quantity" binding:"required,gt=0"`
	USDPrice         float64 `json:"usd_price" binding:"required,gte=0"`
	ExchangeRate     float64 `json:"exchange_rate" binding:"required,gte=0"`
	DutyPercent      *float64 `json:"duty_percent"` // nil falls back to the product default
	FreightAmount    float64 `json:"freight_amount"`
	FreightType      string  `json:"freight_charge_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	OtherAmount      float64 `json:"other_amount"`
	OtherType        string  `json:"other_charge_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	ContainerID      string  `json:"container_id"`
}

type UpdateBatchRequest struct {
	ImportDate       string   `json:"import_date"`
	ExpiryDate       *string  `json:"expiry_date"` // empty string clears
	ImportedQuantity *int     `json:"imported_quantity"`
	USDPrice         *float64 `json:"usd_price"`
	ExchangeRate     *float64 `json:"exchange_rate"`
	DutyPercent      *float64 `json:"duty_percent"`
	FreightAmount    *float64 `json:"freight_amount"`
	FreightType      string   `json:"freight_charge_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	OtherAmount      *float64 `json:"other_amount"`
	OtherType        string   `json:"other_charge_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	IsActive         *bool    `json:"is_active"`
}

type AdjustStockRequest struct {
	Delta int    `json:"delta" binding:"required"`
	Note  string `json:"note" binding:"required"`
}

type CostPreviewRequest struct {
	USDPrice         float64 `json:"usd_price" binding:"gte=0"`
	ExchangeRate     float64 `json:"exchange_rate" binding:"gte=0"`
	DutyPercent      float64 `json:"duty_percent"`
	FreightAmount    float64 `json:"freight_amount"`
	FreightType      string  `json:"freight_charge_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	OtherAmount      float64 `json:"other_amount"`
	OtherType        string  `json:"other_charge_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	ImportedQuantity int     `json:"imported_quantity" binding:"required,gt=0"`
}

type BatchResponse struct {
	Batch              model.Batch         `json:"batch"`
	FreeStock          int                 `json:"free_stock"`
	Breakdown          *stock.CostBreakdown `json:"cost_breakdown,omitempty"`
	SuggestedSalePrice decimal.Decimal     `json:"suggested_sale_price"`
}

type BatchService interface {
	CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*BatchResponse, error)
	UpdateBatch(ctx context.Context, userID string, id string, req UpdateBatchRequest) (*BatchResponse, error)
	DeleteBatch(ctx context.Context, userID string, id string) error
	AdjustStock(ctx context.Context, userID string, id string, req AdjustStockRequest) error
	GetBatch(ctx context.Context, id string) (*BatchResponse, error)
	ListBatches(ctx context.Context, page, limit int, productID string) ([]BatchResponse, int64, error)
	StockCard(ctx context.Context, id string) ([]stock.StockCardEntry, error)
	PreviewCost(ctx context.Context, req CostPreviewRequest) (*stock.CostBreakdown, error)
}

type batchService struct {
	batchRepo     repository.BatchRepository
	productRepo   repository.ProductRepository
	ledgerRepo    repository.InventoryTxRepository
	challanRepo   repository.ChallanRepository
	containerRepo repository.ContainerRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	hub           *ws.Hub
}

func NewBatchService(
	batchRepo repository.BatchRepository,
	productRepo repository.ProductRepository,
	ledgerRepo repository.InventoryTxRepository,
	challanRepo repository.ChallanRepository,
	containerRepo repository.ContainerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) BatchService {
	return &batchService{
		batchRepo:     batchRepo,
		productRepo:   productRepo,
		ledgerRepo:    ledgerRepo,
		challanRepo:   challanRepo,
		containerRepo: containerRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		hub:           hub,
	}
}

const dateLayout = "2006-01-02"

func (s *batchService) CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*BatchResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}

	importDate, err := time.Parse(dateLayout, req.ImportDate)
	if err != nil {
		return nil, fmt.Errorf("invalid import date: %w", err)
	}
	var expiryDate *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.Parse(dateLayout, req.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry date: %w", err)
		}
		if !parsed.After(importDate) {
			return nil, errors.New("expiry date must be after import date")
		}
		expiryDate = &parsed
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !product.IsActive {
		return nil, errors.New("product is deactivated")
	}

	dutyPercent := product.DefaultDutyPercent
	if req.DutyPercent != nil {
		dutyPercent = decimal.NewFromFloat(*req.DutyPercent)
	}

	var containerID *uuid.UUID
	var containerCost decimal.Decimal
	if req.ContainerID != "" {
		cid, err := uuid.Parse(req.ContainerID)
		if err != nil {
			return nil, fmt.Errorf("invalid container id: %w", err)
		}
		container, err := s.containerRepo.FindByID(ctx, cid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New("container not found")
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
		containerID = &container.ID
		containerCost = container.AllocatedCost
	}

	input := stock.CostInput{
		USDPrice:               decimal.NewFromFloat(req.USDPrice),
		ExchangeRate:           decimal.NewFromFloat(req.ExchangeRate),
		DutyPercent:            dutyPercent,
		FreightAmount:          decimal.NewFromFloat(req.FreightAmount),
		FreightType:            req.FreightType,
		OtherAmount:            decimal.NewFromFloat(req.OtherAmount),
		OtherType:              req.OtherType,
		ImportedQuantity:       req.ImportedQuantity,
		ContainerAllocatedCost: containerCost,
	}
	breakdown, err := stock.ComputeLandedCost(input)
	if err != nil {
		return nil, err
	}

	batch := model.Batch{
		ProductID:         productID,
		BatchNumber:       req.BatchNumber,
		ImportDate:        importDate,
		ExpiryDate:        expiryDate,
		ImportedQuantity:  req.ImportedQuantity,
		CurrentStock:      req.ImportedQuantity,
		ReservedStock:     0,
		USDPrice:          input.USDPrice,
		ExchangeRate:      input.ExchangeRate,
		DutyPercent:       dutyPercent,
		FreightAmount:     input.FreightAmount,
		FreightChargeType: normalizeChargeType(req.FreightType),
		OtherAmount:       input.OtherAmount,
		OtherChargeType:   normalizeChargeType(req.OtherType),
		LandedCostPerUnit: breakdown.LandedPerUnit,
		ContainerID:       containerID,
		IsActive:          true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.batchRepo.FindByNumber(txCtx, req.BatchNumber); err == nil {
			return &stock.DuplicateBatchNumberError{BatchNumber: req.BatchNumber}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.batchRepo.Create(txCtx, &batch); err != nil {
			// A concurrent create can slip past the pre-check and lose the
			// race on the unique index instead.
			if repository.IsUniqueViolation(err) {
				return &stock.DuplicateBatchNumberError{BatchNumber: req.BatchNumber}
			}
			return fmt.Errorf("failed to create batch: %w", err)
		}

		purchase := &model.InventoryTransaction{
			BatchID:       &batch.ID,
			ProductID:     productID,
			Type:          model.TxTypePurchase,
			Quantity:      req.ImportedQuantity,
			ReferenceType: model.RefTypeBatch,
			ReferenceID:   &batch.ID,
			Note:          "batch import",
		}
		if err := s.ledgerRepo.Create(txCtx, purchase); err != nil {
			return fmt.Errorf("failed to write purchase transaction: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCreateBatch,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "batch.created", map[string]interface{}{
		"batch_id":      batch.ID.String(),
		"batch_number":  batch.BatchNumber,
		"product_id":    productID.String(),
		"current_stock": batch.CurrentStock,
	})

	return s.toResponse(&batch, &breakdown), nil
}

func (s *batchService) UpdateBatch(ctx context.Context, userID string, id string, req UpdateBatchRequest) (*BatchResponse, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid batch id: %w", err)
	}

	var updated *model.Batch
	var breakdown stock.CostBreakdown

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, batchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("batch not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		ledger, err := s.ledgerRepo.ListByBatch(txCtx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		sold := stock.SoldQuantity(ledger)

		if req.ImportDate != "" {
			parsed, err := time.Parse(dateLayout, req.ImportDate)
			if err != nil {
				return fmt.Errorf("invalid import date: %w", err)
			}
			batch.ImportDate = parsed
		}
		if req.ExpiryDate != nil {
			if *req.ExpiryDate == "" {
				batch.ExpiryDate = nil
			} else {
				parsed, err := time.Parse(dateLayout, *req.ExpiryDate)
				if err != nil {
					return fmt.Errorf("invalid expiry date: %w", err)
				}
				batch.ExpiryDate = &parsed
			}
		}
		if req.USDPrice != nil {
			batch.USDPrice = decimal.NewFromFloat(*req.USDPrice)
		}
		if req.ExchangeRate != nil {
			batch.ExchangeRate = decimal.NewFromFloat(*req.ExchangeRate)
		}
		if req.DutyPercent != nil {
			batch.DutyPercent = decimal.NewFromFloat(*req.DutyPercent)
		}
		if req.FreightAmount != nil {
			batch.FreightAmount = decimal.NewFromFloat(*req.FreightAmount)
		}
		if req.FreightType != "" {
			batch.FreightChargeType = req.FreightType
		}
		if req.OtherAmount != nil {
			batch.OtherAmount = decimal.NewFromFloat(*req.OtherAmount)
		}
		if req.OtherType != "" {
			batch.OtherChargeType = req.OtherType
		}
		if req.IsActive != nil {
			batch.IsActive = *req.IsActive
		}

		if req.ImportedQuantity != nil {
			newQty := *req.ImportedQuantity
			if newQty <= 0 {
				return &stock.InvalidChargeConfigError{Reason: "imported quantity must be positive"}
			}
			if newQty < sold {
				return &stock.QuantityBelowSoldError{
					BatchID:     batch.ID,
					BatchNumber: batch.BatchNumber,
					NewQuantity: newQty,
					Sold:        sold,
				}
			}

			// Rewrite the originating purchase row and re-derive the cached
			// balance from the full ledger rather than patching it by delta.
			purchase, err := s.ledgerRepo.FindPurchaseByBatch(txCtx, batchID)
			if err != nil {
				return fmt.Errorf("failed to load purchase transaction: %w", err)
			}
			purchase.Quantity = newQty
			if err := s.ledgerRepo.Save(txCtx, purchase); err != nil {
				return fmt.Errorf("failed to rewrite purchase transaction: %w", err)
			}

			batch.ImportedQuantity = newQty
			ledger, err = s.ledgerRepo.ListByBatch(txCtx, batchID)
			if err != nil {
				return fmt.Errorf("failed to reload ledger: %w", err)
			}
			batch.CurrentStock = stock.SumTransactions(ledger)

			if batch.ReservedStock > batch.CurrentStock {
				return &stock.InsufficientStockError{
					BatchID:     batch.ID,
					BatchNumber: batch.BatchNumber,
					Requested:   batch.ReservedStock,
					Available:   batch.CurrentStock,
				}
			}
		}

		var containerCost decimal.Decimal
		if batch.ContainerID != nil {
			container, err := s.containerRepo.FindByID(txCtx, *batch.ContainerID)
			if err == nil {
				containerCost = container.AllocatedCost
			}
		}

		breakdown, err = stock.ComputeLandedCost(stock.CostInput{
			USDPrice:               batch.USDPrice,
			ExchangeRate:           batch.ExchangeRate,
			DutyPercent:            batch.DutyPercent,
			FreightAmount:          batch.FreightAmount,
			FreightType:            batch.FreightChargeType,
			OtherAmount:            batch.OtherAmount,
			OtherType:              batch.OtherChargeType,
			ImportedQuantity:       batch.ImportedQuantity,
			ContainerAllocatedCost: containerCost,
		})
		if err != nil {
			return err
		}
		batch.LandedCostPerUnit = breakdown.LandedPerUnit

		if err := s.batchRepo.Save(txCtx, batch); err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionEditBatch,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		updated = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "batch.updated", map[string]interface{}{
		"batch_id":      updated.ID.String(),
		"batch_number":  updated.BatchNumber,
		"current_stock": updated.CurrentStock,
	})

	return s.toResponse(updated, &breakdown), nil
}

func (s *batchService) DeleteBatch(ctx context.Context, userID string, id string) error {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid batch id: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, batchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("batch not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if batch.ReservedStock > 0 {
			return &stock.BatchInUseError{
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Reason:      "active reservations hold its stock",
			}
		}
		referenced, err := s.challanRepo.ExistsByBatch(txCtx, batchID)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if referenced {
			return &stock.BatchInUseError{
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Reason:      "delivery challan items reference it",
			}
		}
		ledger, err := s.ledgerRepo.ListByBatch(txCtx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		if stock.SoldQuantity(ledger) > 0 {
			return &stock.BatchInUseError{
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Reason:      "stock has been sold from it",
			}
		}

		if err := s.ledgerRepo.DeleteByBatch(txCtx, batchID); err != nil {
			return fmt.Errorf("failed to delete ledger rows: %w", err)
		}
		if err := s.batchRepo.Delete(txCtx, batchID); err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionDeleteBatch,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    `{"deleted": true}`,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}

func (s *batchService) AdjustStock(ctx context.Context, userID string, id string, req AdjustStockRequest) error {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid batch id: %w", err)
	}

	var after int
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, batchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("batch not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		newStock := batch.CurrentStock + req.Delta
		if newStock < 0 || newStock < batch.ReservedStock {
			available := batch.CurrentStock - batch.ReservedStock
			return &stock.InsufficientStockError{
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Requested:   -req.Delta,
				Available:   available,
			}
		}

		adjustment := &model.InventoryTransaction{
			BatchID:       &batch.ID,
			ProductID:     batch.ProductID,
			Type:          model.TxTypeAdjustment,
			Quantity:      req.Delta,
			ReferenceType: model.RefTypeManual,
			Note:          req.Note,
		}
		if err := s.ledgerRepo.Create(txCtx, adjustment); err != nil {
			return fmt.Errorf("failed to write adjustment: %w", err)
		}

		batch.CurrentStock = newStock
		if err := s.batchRepo.Save(txCtx, batch); err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}
		after = newStock

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionAdjustStock,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return err
	}

	broadcast(s.hub, "stock.adjusted", map[string]interface{}{
		"batch_id":      batchID.String(),
		"delta":         req.Delta,
		"current_stock": after,
	})
	return nil
}

func (s *batchService) GetBatch(ctx context.Context, id string) (*BatchResponse, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid batch id: %w", err)
	}
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("batch not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var containerCost decimal.Decimal
	if batch.Container != nil {
		containerCost = batch.Container.AllocatedCost
	}
	breakdown, err := stock.ComputeLandedCost(stock.CostInput{
		USDPrice:               batch.USDPrice,
		ExchangeRate:           batch.ExchangeRate,
		DutyPercent:            batch.DutyPercent,
		FreightAmount:          batch.FreightAmount,
		FreightType:            batch.FreightChargeType,
		OtherAmount:            batch.OtherAmount,
		OtherType:              batch.OtherChargeType,
		ImportedQuantity:       batch.ImportedQuantity,
		ContainerAllocatedCost: containerCost,
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(batch, &breakdown), nil
}

func (s *batchService) ListBatches(ctx context.Context, page, limit int, productID string) ([]BatchResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var pid *uuid.UUID
	if productID != "" {
		parsed, err := uuid.Parse(productID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid product id: %w", err)
		}
		pid = &parsed
	}

	batches, total, err := s.batchRepo.List(ctx, page, limit, pid)
	if err != nil {
		return nil, 0, err
	}

	res := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		res = append(res, *s.toResponse(&batches[i], nil))
	}
	return res, total, nil
}

func (s *batchService) StockCard(ctx context.Context, id string) ([]stock.StockCardEntry, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid batch id: %w", err)
	}
	if _, err := s.batchRepo.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("batch not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	ledger, err := s.ledgerRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return stock.StockCard(ledger), nil
}

func (s *batchService) PreviewCost(ctx context.Context, req CostPreviewRequest) (*stock.CostBreakdown, error) {
	breakdown, err := stock.ComputeLandedCost(stock.CostInput{
		USDPrice:         decimal.NewFromFloat(req.USDPrice),
		ExchangeRate:     decimal.NewFromFloat(req.ExchangeRate),
		DutyPercent:      decimal.NewFromFloat(req.DutyPercent),
		FreightAmount:    decimal.NewFromFloat(req.FreightAmount),
		FreightType:      req.FreightType,
		OtherAmount:      decimal.NewFromFloat(req.OtherAmount),
		OtherType:        req.OtherType,
		ImportedQuantity: req.ImportedQuantity,
	})
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

func (s *batchService) toResponse(batch *model.Batch, breakdown *stock.CostBreakdown) *BatchResponse {
	return &BatchResponse{
		Batch:              *batch,
		FreeStock:          batch.FreeStock(),
		Breakdown:          breakdown,
		SuggestedSalePrice: stock.SuggestedSalePrice(batch.LandedCostPerUnit),
	}
}

func normalizeChargeType(t string) string {
	if t == "" {
		return model.ChargeTypeFixed
	}
	return t
}
