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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateInvoiceRequest struct {
	ChallanID string `json:"challan_id" binding:"required"`
	Note      string `json:"note"`
}

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (*model.SalesInvoice, error)
	GetInvoice(ctx context.Context, id string) (*model.SalesInvoice, error)
	ListInvoices(ctx context.Context, page, limit int, customerID string) ([]model.SalesInvoice, int64, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	challanRepo  repository.ChallanRepository
	orderRepo    repository.SalesOrderRepository
	batchRepo    repository.BatchRepository
	sequenceRepo repository.SequenceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	challanRepo repository.ChallanRepository,
	orderRepo repository.SalesOrderRepository,
	batchRepo repository.BatchRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		challanRepo:  challanRepo,
		orderRepo:    orderRepo,
		batchRepo:    batchRepo,
		sequenceRepo: sequenceRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// CreateInvoice bills an approved, order-linked challan. Each line freezes
// the batch's landed cost per unit at invoicing time so the recorded margin
// survives later batch edits.
func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (*model.SalesInvoice, error) {
	challanID, err := uuid.Parse(req.ChallanID)
	if err != nil {
		return nil, fmt.Errorf("invalid challan id: %w", err)
	}

	var invoice model.SalesInvoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err := s.challanRepo.FindByIDForUpdate(txCtx, challanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("challan not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if challan.Status != model.ChallanStatusApproved {
			return errors.New("only approved challans can be invoiced")
		}
		if challan.SalesOrderID == nil {
			return errors.New("manual dispatches cannot be invoiced")
		}

		if _, err := s.invoiceRepo.FindByChallan(txCtx, challanID); err == nil {
			return errors.New("challan already invoiced")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database error: %w", err)
		}

		order, err := s.orderRepo.FindByID(txCtx, *challan.SalesOrderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		orderItems := make(map[uuid.UUID]model.SalesOrderItem, len(order.Items))
		for _, it := range order.Items {
			orderItems[it.ID] = it
		}

		subtotal := decimal.Zero
		totalMargin := decimal.Zero
		lines := make([]model.SalesInvoiceItem, 0, len(challan.Items))
		for _, item := range challan.Items {
			batch, err := s.batchRepo.FindByID(txCtx, item.BatchID)
			if err != nil {
				return fmt.Errorf("failed to load batch: %w", err)
			}

			var unitPrice decimal.Decimal
			if item.SalesOrderItemID != nil {
				orderItem, ok := orderItems[*item.SalesOrderItemID]
				if !ok {
					return errors.New("challan line references a missing order item")
				}
				unitPrice = orderItem.UnitPrice
			} else {
				unitPrice = stock.SuggestedSalePrice(batch.LandedCostPerUnit)
			}

			qty := decimal.NewFromInt(int64(item.Quantity))
			margin := unitPrice.Sub(batch.LandedCostPerUnit).Mul(qty)
			subtotal = subtotal.Add(unitPrice.Mul(qty))
			totalMargin = totalMargin.Add(margin)

			lines = append(lines, model.SalesInvoiceItem{
				ChallanItemID:     item.ID,
				SalesOrderItemID:  item.SalesOrderItemID,
				ProductID:         item.ProductID,
				BatchID:           item.BatchID,
				Quantity:          item.Quantity,
				UnitPrice:         unitPrice,
				LandedCostPerUnit: batch.LandedCostPerUnit,
				Margin:            margin,
			})
		}

		now := time.Now()
		if err := s.sequenceRepo.Lock(txCtx, "sales_invoice_no"); err != nil {
			return fmt.Errorf("failed to lock invoice numbering: %w", err)
		}
		count, err := s.invoiceRepo.CountByPrefix(txCtx, docNoPrefix("INV", now))
		if err != nil {
			return fmt.Errorf("failed to count invoices: %w", err)
		}

		invoice = model.SalesInvoice{
			InvoiceNo:    formatDocNo("INV", now, count+1),
			SalesOrderID: *challan.SalesOrderID,
			ChallanID:    challan.ID,
			CustomerID:   order.CustomerID,
			Subtotal:     subtotal,
			TotalMargin:  totalMargin,
			Note:         req.Note,
			Items:        lines,
		}
		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"challan_id": challan.ID.String(),
			"subtotal":   subtotal,
			"margin":     totalMargin,
		})
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCreateInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*model.SalesInvoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invoice not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, page, limit int, customerID string) ([]model.SalesInvoice, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var cid *uuid.UUID
	if customerID != "" {
		parsed, err := uuid.Parse(customerID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid customer id: %w", err)
		}
		cid = &parsed
	}
	return s.invoiceRepo.List(ctx, page, limit, cid)
}
