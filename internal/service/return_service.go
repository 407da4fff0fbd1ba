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
type CreateReturnRequest struct {
	ChallanItemID string `json:"challan_item_id" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	Disposition   string `json:"disposition" binding:"required,oneof=RESTOCK SCRAP RETURN_TO_SUPPLIER"`
	Reason        string `json:"reason" binding:"required"`
}

type CreateRejectionRequest struct {
	BatchID  string `json:"batch_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Reason   string `json:"reason" binding:"required"`
}

type ReturnService interface {
	CreateReturn(ctx context.Context, userID string, req CreateReturnRequest) (*model.MaterialReturn, error)
	ApproveReturn(ctx context.Context, userID string, id string) (*model.MaterialReturn, error)
	RejectReturn(ctx context.Context, userID string, id string, reason string) error
	GetReturn(ctx context.Context, id string) (*model.MaterialReturn, error)
	ListReturns(ctx context.Context, page, limit int, status string) ([]model.MaterialReturn, int64, error)

	CreateRejection(ctx context.Context, userID string, req CreateRejectionRequest) (*model.StockRejection, error)
	ApproveRejection(ctx context.Context, userID string, id string) (*model.StockRejection, error)
	RejectRejection(ctx context.Context, userID string, id string, reason string) error
	GetRejection(ctx context.Context, id string) (*model.StockRejection, error)
	ListRejections(ctx context.Context, page, limit int, status string) ([]model.StockRejection, int64, error)
}

type returnService struct {
	returnRepo      repository.ReturnRepository
	challanRepo     repository.ChallanRepository
	batchRepo       repository.BatchRepository
	ledgerRepo      repository.InventoryTxRepository
	reservationRepo repository.ReservationRepository
	orderRepo       repository.SalesOrderRepository
	sequenceRepo    repository.SequenceRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	hub             *ws.Hub
}

func NewReturnService(
	returnRepo repository.ReturnRepository,
	challanRepo repository.ChallanRepository,
	batchRepo repository.BatchRepository,
	ledgerRepo repository.InventoryTxRepository,
	reservationRepo repository.ReservationRepository,
	orderRepo repository.SalesOrderRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ReturnService {
	return &returnService{
		returnRepo:      returnRepo,
		challanRepo:     challanRepo,
		batchRepo:       batchRepo,
		ledgerRepo:      ledgerRepo,
		reservationRepo: reservationRepo,
		orderRepo:       orderRepo,
		sequenceRepo:    sequenceRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		hub:             hub,
	}
}

// CreateReturn files a pending return against a dispatched challan line.
// Cumulative returns on a line are capped at its dispatched quantity.
func (s *returnService) CreateReturn(ctx context.Context, userID string, req CreateReturnRequest) (*model.MaterialReturn, error) {
	challanItemID, err := uuid.Parse(req.ChallanItemID)
	if err != nil {
		return nil, fmt.Errorf("invalid challan item id: %w", err)
	}

	var ret model.MaterialReturn
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		itemPtr, err := s.challanRepo.FindItemByID(txCtx, challanItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("challan item not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		item := *itemPtr
		challan, err := s.challanRepo.FindByID(txCtx, item.ChallanID)
		if err != nil {
			return fmt.Errorf("failed to load challan: %w", err)
		}
		if challan.Status != model.ChallanStatusApproved {
			return errors.New("returns can only reference approved challans")
		}

		alreadyReturned, err := s.returnRepo.SumReturnedByChallanItem(txCtx, challanItemID)
		if err != nil {
			return fmt.Errorf("failed to sum prior returns: %w", err)
		}
		if alreadyReturned+req.Quantity > item.Quantity {
			return fmt.Errorf("return quantity %d exceeds dispatched remainder %d",
				req.Quantity, item.Quantity-alreadyReturned)
		}

		now := time.Now()
		if err := s.sequenceRepo.Lock(txCtx, "material_return_no"); err != nil {
			return fmt.Errorf("failed to lock return numbering: %w", err)
		}
		count, err := s.returnRepo.CountReturnsByPrefix(txCtx, docNoPrefix("MR", now))
		if err != nil {
			return fmt.Errorf("failed to count returns: %w", err)
		}

		ret = model.MaterialReturn{
			ReturnNo:      formatDocNo("MR", now, count+1),
			ChallanItemID: challanItemID,
			BatchID:       item.BatchID,
			ProductID:     item.ProductID,
			Quantity:      req.Quantity,
			Disposition:   req.Disposition,
			Reason:        req.Reason,
			Status:        model.ReturnStatusPending,
		}
		if err := s.returnRepo.CreateReturn(txCtx, &ret); err != nil {
			return fmt.Errorf("failed to create return: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCreateReturn,
			EntityID:   ret.ID.String(),
			EntityName: ret.ReturnNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// ApproveReturn applies the disposition. RESTOCK credits the batch ledger;
// SCRAP and RETURN_TO_SUPPLIER leave stock untouched and record the loss at
// the batch's landed cost.
func (s *returnService) ApproveReturn(ctx context.Context, userID string, id string) (*model.MaterialReturn, error) {
	returnID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid return id: %w", err)
	}

	var result *model.MaterialReturn
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ret, err := s.returnRepo.FindReturnByIDForUpdate(txCtx, returnID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("return not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if ret.Status != model.ReturnStatusPending {
			return fmt.Errorf("return in status %s cannot be approved", ret.Status)
		}

		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, ret.BatchID)
		if err != nil {
			return fmt.Errorf("failed to lock batch: %w", err)
		}

		switch ret.Disposition {
		case model.DispositionRestock:
			batch.CurrentStock += ret.Quantity
			if err := s.batchRepo.UpdateQuantities(txCtx, batch.ID, batch.CurrentStock, batch.ReservedStock); err != nil {
				return fmt.Errorf("failed to restock batch: %w", err)
			}
			credit := &model.InventoryTransaction{
				BatchID:       &batch.ID,
				ProductID:     batch.ProductID,
				Type:          model.TxTypeAdjustment,
				Quantity:      ret.Quantity,
				ReferenceType: model.RefTypeMaterialReturn,
				ReferenceID:   &ret.ID,
				Note:          "material return " + ret.ReturnNo,
			}
			if err := s.ledgerRepo.Create(txCtx, credit); err != nil {
				return fmt.Errorf("failed to write return transaction: %w", err)
			}
			ret.LossAmount = decimal.Zero
		case model.DispositionScrap, model.DispositionReturnToSupplier:
			ret.LossAmount = batch.LandedCostPerUnit.Mul(decimal.NewFromInt(int64(ret.Quantity)))
		default:
			return fmt.Errorf("unknown disposition %s", ret.Disposition)
		}

		now := time.Now()
		actor := parseActorID(userID)
		ret.Status = model.ReturnStatusApproved
		ret.ApprovedBy = actor
		ret.ApprovedAt = &now
		if err := s.returnRepo.SaveReturn(txCtx, ret); err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"disposition": ret.Disposition,
			"loss_amount": ret.LossAmount,
		})
		audit := &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionApproveReturn,
			EntityID:   ret.ID.String(),
			EntityName: ret.ReturnNo,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		result = ret
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "return.approved", map[string]interface{}{
		"return_id":   result.ID.String(),
		"return_no":   result.ReturnNo,
		"disposition": result.Disposition,
	})
	return result, nil
}

func (s *returnService) RejectReturn(ctx context.Context, userID string, id string, reason string) error {
	returnID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid return id: %w", err)
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ret, err := s.returnRepo.FindReturnByIDForUpdate(txCtx, returnID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("return not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if ret.Status != model.ReturnStatusPending {
			return fmt.Errorf("return in status %s cannot be rejected", ret.Status)
		}
		ret.Status = model.ReturnStatusRejected
		if err := s.returnRepo.SaveReturn(txCtx, ret); err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}
		details, _ := json.Marshal(map[string]string{"reason": reason})
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionApproveReturn,
			EntityID:   ret.ID.String(),
			EntityName: ret.ReturnNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}

func (s *returnService) GetReturn(ctx context.Context, id string) (*model.MaterialReturn, error) {
	returnID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid return id: %w", err)
	}
	ret, err := s.returnRepo.FindReturnByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("return not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return ret, nil
}

func (s *returnService) ListReturns(ctx context.Context, page, limit int, status string) ([]model.MaterialReturn, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.returnRepo.ListReturns(ctx, page, limit, status)
}

func (s *returnService) CreateRejection(ctx context.Context, userID string, req CreateRejectionRequest) (*model.StockRejection, error) {
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		return nil, fmt.Errorf("invalid batch id: %w", err)
	}

	var rejection model.StockRejection
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, err := s.batchRepo.FindByID(txCtx, batchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("batch not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if req.Quantity > batch.CurrentStock {
			return &stock.InsufficientStockError{
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Requested:   req.Quantity,
				Available:   batch.CurrentStock,
			}
		}

		now := time.Now()
		if err := s.sequenceRepo.Lock(txCtx, "stock_rejection_no"); err != nil {
			return fmt.Errorf("failed to lock rejection numbering: %w", err)
		}
		count, err := s.returnRepo.CountRejectionsByPrefix(txCtx, docNoPrefix("SR", now))
		if err != nil {
			return fmt.Errorf("failed to count rejections: %w", err)
		}

		rejection = model.StockRejection{
			RejectionNo: formatDocNo("SR", now, count+1),
			BatchID:     batchID,
			ProductID:   batch.ProductID,
			Quantity:    req.Quantity,
			Reason:      req.Reason,
			Status:      model.ReturnStatusPending,
		}
		if err := s.returnRepo.CreateRejection(txCtx, &rejection); err != nil {
			return fmt.Errorf("failed to create rejection: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCreateRejection,
			EntityID:   rejection.ID.String(),
			EntityName: rejection.RejectionNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}
	return &rejection, nil
}

// ApproveRejection writes off batch stock before dispatch. If the write-off
// cuts into reserved stock, the newest holds are released first until the
// reserve fits under the remaining balance; their orders fall back to
// SHORTAGE so the requirement surfaces again.
func (s *returnService) ApproveRejection(ctx context.Context, userID string, id string) (*model.StockRejection, error) {
	rejectionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid rejection id: %w", err)
	}

	var result *model.StockRejection
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rejection, err := s.returnRepo.FindRejectionByIDForUpdate(txCtx, rejectionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("rejection not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if rejection.Status != model.ReturnStatusPending {
			return fmt.Errorf("rejection in status %s cannot be approved", rejection.Status)
		}

		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, rejection.BatchID)
		if err != nil {
			return fmt.Errorf("failed to lock batch: %w", err)
		}
		if rejection.Quantity > batch.CurrentStock {
			return &stock.InsufficientStockError{
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Requested:   rejection.Quantity,
				Available:   batch.CurrentStock,
			}
		}

		batch.CurrentStock -= rejection.Quantity

		if batch.ReservedStock > batch.CurrentStock {
			if err := s.shedReservations(txCtx, batch); err != nil {
				return err
			}
		}

		if err := s.batchRepo.UpdateQuantities(txCtx, batch.ID, batch.CurrentStock, batch.ReservedStock); err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}

		writeOff := &model.InventoryTransaction{
			BatchID:       &batch.ID,
			ProductID:     batch.ProductID,
			Type:          model.TxTypeAdjustment,
			Quantity:      -rejection.Quantity,
			ReferenceType: model.RefTypeStockRejection,
			ReferenceID:   &rejection.ID,
			Note:          "stock rejection " + rejection.RejectionNo,
		}
		if err := s.ledgerRepo.Create(txCtx, writeOff); err != nil {
			return fmt.Errorf("failed to write rejection transaction: %w", err)
		}

		now := time.Now()
		actor := parseActorID(userID)
		rejection.Status = model.ReturnStatusApproved
		rejection.ApprovedBy = actor
		rejection.ApprovedAt = &now
		if err := s.returnRepo.SaveRejection(txCtx, rejection); err != nil {
			return fmt.Errorf("failed to update rejection: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{"quantity": rejection.Quantity})
		audit := &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionApproveRejection,
			EntityID:   rejection.ID.String(),
			EntityName: rejection.RejectionNo,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		result = rejection
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "rejection.approved", map[string]interface{}{
		"rejection_id": result.ID.String(),
		"rejection_no": result.RejectionNo,
		"quantity":     result.Quantity,
	})
	return result, nil
}

func (s *returnService) RejectRejection(ctx context.Context, userID string, id string, reason string) error {
	rejectionID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid rejection id: %w", err)
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rejection, err := s.returnRepo.FindRejectionByIDForUpdate(txCtx, rejectionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("rejection not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if rejection.Status != model.ReturnStatusPending {
			return fmt.Errorf("rejection in status %s cannot be rejected", rejection.Status)
		}
		rejection.Status = model.ReturnStatusRejected
		if err := s.returnRepo.SaveRejection(txCtx, rejection); err != nil {
			return fmt.Errorf("failed to update rejection: %w", err)
		}
		details, _ := json.Marshal(map[string]string{"reason": reason})
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionApproveRejection,
			EntityID:   rejection.ID.String(),
			EntityName: rejection.RejectionNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}

func (s *returnService) GetRejection(ctx context.Context, id string) (*model.StockRejection, error) {
	rejectionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid rejection id: %w", err)
	}
	rejection, err := s.returnRepo.FindRejectionByID(ctx, rejectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("rejection not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return rejection, nil
}

func (s *returnService) ListRejections(ctx context.Context, page, limit int, status string) ([]model.StockRejection, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.returnRepo.ListRejections(ctx, page, limit, status)
}

// shedReservations releases the newest active holds on the batch until
// reserved stock fits under the current balance again. Partially shed holds
// are shrunk in place; fully shed ones are released with STOCK_REJECTED and
// their orders pushed back to SHORTAGE.
func (s *returnService) shedReservations(txCtx context.Context, batch *model.Batch) error {
	reservations, err := s.reservationRepo.ListActiveByBatchForUpdate(txCtx, batch.ID)
	if err != nil {
		return fmt.Errorf("failed to load reservations: %w", err)
	}

	now := time.Now()
	excess := batch.ReservedStock - batch.CurrentStock
	for i := range reservations {
		if excess <= 0 {
			break
		}
		res := &reservations[i]

		shed := res.Quantity
		if shed > excess {
			shed = excess
		}
		res.Quantity -= shed
		batch.ReservedStock -= shed
		excess -= shed

		if res.Quantity == 0 {
			res.Status = model.ReservationReleased
			res.ReleaseReason = model.ReleaseReasonStockRejected
			res.ReleasedAt = &now
		}
		if err := s.reservationRepo.Save(txCtx, res); err != nil {
			return fmt.Errorf("failed to shed reservation: %w", err)
		}

		order, err := s.orderRepo.FindByIDForUpdate(txCtx, res.SalesOrderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order.Status == model.OrderStatusStockReserved {
			order.Status = model.OrderStatusShortage
			if err := s.orderRepo.Save(txCtx, order); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
		}
	}
	return nil
}
