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
	"gorm.io/gorm"
)

// DTOs
type ChallanItemRequest struct {
	SalesOrderItemID string `json:"sales_order_item_id"` // optional for manual dispatch
	BatchID          string `json:"batch_id" binding:"required"`
	Quantity         int    `json:"quantity" binding:"required,gt=0"`
}

type CreateChallanRequest struct {
	SalesOrderID string               `json:"sales_order_id"` // optional for manual dispatch
	Note         string               `json:"note"`
	Items        []ChallanItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateChallanRequest struct {
	Note  string               `json:"note"`
	Items []ChallanItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ChallanService interface {
	CreateChallan(ctx context.Context, userID string, req CreateChallanRequest) (*model.DeliveryChallan, error)
	UpdateChallan(ctx context.Context, userID string, id string, req UpdateChallanRequest) (*model.DeliveryChallan, error)
	ApproveChallan(ctx context.Context, userID string, id string) (*model.DeliveryChallan, error)
	RejectChallan(ctx context.Context, userID string, id string, reason string) error
	DeleteChallan(ctx context.Context, userID string, id string) error
	GetChallan(ctx context.Context, id string) (*model.DeliveryChallan, error)
	ListChallans(ctx context.Context, page, limit int, status, orderID string) ([]model.DeliveryChallan, int64, error)
}

type challanService struct {
	challanRepo     repository.ChallanRepository
	orderRepo       repository.SalesOrderRepository
	batchRepo       repository.BatchRepository
	reservationRepo repository.ReservationRepository
	ledgerRepo      repository.InventoryTxRepository
	sequenceRepo    repository.SequenceRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	hub             *ws.Hub
}

func NewChallanService(
	challanRepo repository.ChallanRepository,
	orderRepo repository.SalesOrderRepository,
	batchRepo repository.BatchRepository,
	reservationRepo repository.ReservationRepository,
	ledgerRepo repository.InventoryTxRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ChallanService {
	return &challanService{
		challanRepo:     challanRepo,
		orderRepo:       orderRepo,
		batchRepo:       batchRepo,
		reservationRepo: reservationRepo,
		ledgerRepo:      ledgerRepo,
		sequenceRepo:    sequenceRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		hub:             hub,
	}
}

// CreateChallan records a pending dispatch document. It touches no stock:
// validation of holds and balances happens at approval time.
func (s *challanService) CreateChallan(ctx context.Context, userID string, req CreateChallanRequest) (*model.DeliveryChallan, error) {
	var orderID *uuid.UUID
	if req.SalesOrderID != "" {
		parsed, err := uuid.Parse(req.SalesOrderID)
		if err != nil {
			return nil, fmt.Errorf("invalid order id: %w", err)
		}
		orderID = &parsed
	}

	var challan model.DeliveryChallan
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if orderID != nil {
			order, err := s.orderRepo.FindByID(txCtx, *orderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.New("order not found")
				}
				return fmt.Errorf("database error: %w", err)
			}
			switch order.Status {
			case model.OrderStatusStockReserved, model.OrderStatusShortage,
				model.OrderStatusPendingDelivery, model.OrderStatusPartiallyDelivered:
			default:
				return fmt.Errorf("order in status %s cannot be dispatched", order.Status)
			}
		}

		items := make([]model.DeliveryChallanItem, 0, len(req.Items))
		for _, r := range req.Items {
			batchID, err := uuid.Parse(r.BatchID)
			if err != nil {
				return fmt.Errorf("invalid batch id %s: %w", r.BatchID, err)
			}
			batch, err := s.batchRepo.FindByID(txCtx, batchID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("batch not found: %s", r.BatchID)
				}
				return fmt.Errorf("database error: %w", err)
			}

			var itemID *uuid.UUID
			if r.SalesOrderItemID != "" {
				parsed, err := uuid.Parse(r.SalesOrderItemID)
				if err != nil {
					return fmt.Errorf("invalid order item id: %w", err)
				}
				orderItem, err := s.orderRepo.FindItemByID(txCtx, parsed)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return errors.New("order item not found")
					}
					return fmt.Errorf("database error: %w", err)
				}
				if orderID == nil || orderItem.SalesOrderID != *orderID {
					return errors.New("order item does not belong to the challan's order")
				}
				if orderItem.ProductID != batch.ProductID {
					return errors.New("batch product does not match the order item")
				}
				if orderItem.DeliveredQuantity+r.Quantity > orderItem.RequestedQuantity {
					return fmt.Errorf("quantity %d exceeds undelivered remainder of order item", r.Quantity)
				}
				itemID = &parsed
			}

			items = append(items, model.DeliveryChallanItem{
				SalesOrderItemID: itemID,
				BatchID:          batchID,
				ProductID:        batch.ProductID,
				Quantity:         r.Quantity,
			})
		}

		now := time.Now()
		if err := s.sequenceRepo.Lock(txCtx, "delivery_challan_no"); err != nil {
			return fmt.Errorf("failed to lock challan numbering: %w", err)
		}
		count, err := s.challanRepo.CountByPrefix(txCtx, docNoPrefix("DC", now))
		if err != nil {
			return fmt.Errorf("failed to count challans: %w", err)
		}

		challan = model.DeliveryChallan{
			ChallanNo:    formatDocNo("DC", now, count+1),
			SalesOrderID: orderID,
			Status:       model.ChallanStatusPendingApproval,
			Note:         req.Note,
			Items:        items,
		}
		if err := s.challanRepo.Create(txCtx, &challan); err != nil {
			return fmt.Errorf("failed to create challan: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCreateChallan,
			EntityID:   challan.ID.String(),
			EntityName: challan.ChallanNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}
	return &challan, nil
}

// UpdateChallan replaces the line set. A pending challan is a plain rewrite;
// an approved challan is reverted and reapplied in one transaction so the
// ledger and holds are never half-updated.
func (s *challanService) UpdateChallan(ctx context.Context, userID string, id string, req UpdateChallanRequest) (*model.DeliveryChallan, error) {
	challanID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid challan id: %w", err)
	}

	var result *model.DeliveryChallan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err := s.challanRepo.FindByIDForUpdate(txCtx, challanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("challan not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if challan.Status == model.ChallanStatusRejected {
			return errors.New("rejected challan cannot be edited")
		}

		if challan.Status == model.ChallanStatusApproved {
			for i := range challan.Items {
				if err := s.revertItem(txCtx, challan, &challan.Items[i]); err != nil {
					return err
				}
			}
		}

		items := make([]model.DeliveryChallanItem, 0, len(req.Items))
		for _, r := range req.Items {
			batchID, err := uuid.Parse(r.BatchID)
			if err != nil {
				return fmt.Errorf("invalid batch id %s: %w", r.BatchID, err)
			}
			batch, err := s.batchRepo.FindByID(txCtx, batchID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("batch not found: %s", r.BatchID)
				}
				return fmt.Errorf("database error: %w", err)
			}
			var itemID *uuid.UUID
			if r.SalesOrderItemID != "" {
				parsed, err := uuid.Parse(r.SalesOrderItemID)
				if err != nil {
					return fmt.Errorf("invalid order item id: %w", err)
				}
				itemID = &parsed
			}
			items = append(items, model.DeliveryChallanItem{
				SalesOrderItemID: itemID,
				BatchID:          batchID,
				ProductID:        batch.ProductID,
				Quantity:         r.Quantity,
			})
		}
		if err := s.challanRepo.ReplaceItems(txCtx, challan.ID, items); err != nil {
			return fmt.Errorf("failed to replace items: %w", err)
		}
		challan.Items = items
		challan.Note = req.Note

		if challan.Status == model.ChallanStatusApproved {
			for i := range challan.Items {
				if err := s.applyItem(txCtx, challan, &challan.Items[i]); err != nil {
					return err
				}
			}
			if err := s.syncOrderDelivery(txCtx, challan.SalesOrderID); err != nil {
				return err
			}
		}

		if err := s.challanRepo.Save(txCtx, challan); err != nil {
			return fmt.Errorf("failed to update challan: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionEditChallan,
			EntityID:   challan.ID.String(),
			EntityName: challan.ChallanNo,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		result = challan
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "challan.updated", map[string]interface{}{
		"challan_id": result.ID.String(),
		"challan_no": result.ChallanNo,
		"status":     result.Status,
	})
	return result, nil
}

// ApproveChallan is the only operation that deducts stock. Per line it
// consumes the order's reservation on the batch, appends the negative sale
// delta to the ledger, and advances the order's delivered quantities.
func (s *challanService) ApproveChallan(ctx context.Context, userID string, id string) (*model.DeliveryChallan, error) {
	challanID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid challan id: %w", err)
	}

	var result *model.DeliveryChallan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err := s.challanRepo.FindByIDForUpdate(txCtx, challanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("challan not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if challan.Status != model.ChallanStatusPendingApproval {
			return fmt.Errorf("challan in status %s cannot be approved", challan.Status)
		}

		for i := range challan.Items {
			if err := s.applyItem(txCtx, challan, &challan.Items[i]); err != nil {
				return err
			}
		}
		if err := s.syncOrderDelivery(txCtx, challan.SalesOrderID); err != nil {
			return err
		}

		now := time.Now()
		actor := parseActorID(userID)
		challan.Status = model.ChallanStatusApproved
		challan.ApprovedBy = actor
		challan.ApprovedAt = &now
		if err := s.challanRepo.Save(txCtx, challan); err != nil {
			return fmt.Errorf("failed to update challan: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionApproveChallan,
			EntityID:   challan.ID.String(),
			EntityName: challan.ChallanNo,
			Details:    `{"approved": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		result = challan
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "challan.approved", map[string]interface{}{
		"challan_id": result.ID.String(),
		"challan_no": result.ChallanNo,
	})
	return result, nil
}

func (s *challanService) RejectChallan(ctx context.Context, userID string, id string, reason string) error {
	challanID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid challan id: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err := s.challanRepo.FindByIDForUpdate(txCtx, challanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("challan not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if challan.Status != model.ChallanStatusPendingApproval {
			return fmt.Errorf("challan in status %s cannot be rejected", challan.Status)
		}

		challan.Status = model.ChallanStatusRejected
		if err := s.challanRepo.Save(txCtx, challan); err != nil {
			return fmt.Errorf("failed to update challan: %w", err)
		}

		details, _ := json.Marshal(map[string]string{"reason": reason})
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionRejectChallan,
			EntityID:   challan.ID.String(),
			EntityName: challan.ChallanNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}

// DeleteChallan removes a dispatch document. Deleting an approved challan
// reverts its stock effect line by line.
func (s *challanService) DeleteChallan(ctx context.Context, userID string, id string) error {
	challanID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid challan id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err := s.challanRepo.FindByIDForUpdate(txCtx, challanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("challan not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if challan.Status == model.ChallanStatusApproved {
			for i := range challan.Items {
				if err := s.revertItem(txCtx, challan, &challan.Items[i]); err != nil {
					return err
				}
			}
			if err := s.syncOrderDelivery(txCtx, challan.SalesOrderID); err != nil {
				return err
			}
		}

		if err := s.challanRepo.Delete(txCtx, challanID); err != nil {
			return fmt.Errorf("failed to delete challan: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionDeleteChallan,
			EntityID:   challan.ID.String(),
			EntityName: challan.ChallanNo,
			Details:    `{"deleted": true}`,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return err
	}

	broadcast(s.hub, "challan.deleted", map[string]interface{}{"challan_id": challanID.String()})
	return nil
}

func (s *challanService) GetChallan(ctx context.Context, id string) (*model.DeliveryChallan, error) {
	challanID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid challan id: %w", err)
	}
	challan, err := s.challanRepo.FindByID(ctx, challanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("challan not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return challan, nil
}

func (s *challanService) ListChallans(ctx context.Context, page, limit int, status, orderID string) ([]model.DeliveryChallan, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var oid *uuid.UUID
	if orderID != "" {
		parsed, err := uuid.Parse(orderID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid order id: %w", err)
		}
		oid = &parsed
	}
	return s.challanRepo.List(ctx, page, limit, status, oid)
}

// applyItem consumes the order's hold on the batch (when order-linked),
// deducts the batch stock and appends the sale delta to the ledger.
func (s *challanService) applyItem(txCtx context.Context, challan *model.DeliveryChallan, item *model.DeliveryChallanItem) error {
	batch, err := s.batchRepo.FindByIDForUpdate(txCtx, item.BatchID)
	if err != nil {
		return fmt.Errorf("failed to lock batch: %w", err)
	}

	// The order may hold this batch through several reservation rows (one per
	// order line per allocation); consume across all of them, oldest first,
	// until the dispatched quantity is covered.
	consumed := 0
	if challan.SalesOrderID != nil {
		reservations, err := s.reservationRepo.ListActiveByOrderAndBatchForUpdate(txCtx, *challan.SalesOrderID, item.BatchID)
		if err != nil {
			return fmt.Errorf("failed to load reservations: %w", err)
		}
		for i := range reservations {
			if consumed == item.Quantity {
				break
			}
			reservation := &reservations[i]
			take := item.Quantity - consumed
			if take > reservation.Quantity {
				take = reservation.Quantity
			}
			reservation.Quantity -= take
			if reservation.Quantity == 0 {
				now := time.Now()
				reservation.Status = model.ReservationReleased
				reservation.ReleaseReason = model.ReleaseReasonConsumed
				reservation.ReleasedAt = &now
			}
			if err := s.reservationRepo.Save(txCtx, reservation); err != nil {
				return fmt.Errorf("failed to consume reservation: %w", err)
			}
			consumed += take
		}
	}

	// The unreserved part of the line must fit in the batch's free stock.
	unreserved := item.Quantity - consumed
	free := batch.CurrentStock - batch.ReservedStock
	if unreserved > free {
		return &stock.InsufficientStockError{
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Requested:   unreserved,
			Available:   free,
		}
	}

	batch.CurrentStock -= item.Quantity
	batch.ReservedStock -= consumed
	if err := s.batchRepo.UpdateQuantities(txCtx, batch.ID, batch.CurrentStock, batch.ReservedStock); err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}

	sale := &model.InventoryTransaction{
		BatchID:       &batch.ID,
		ProductID:     batch.ProductID,
		Type:          model.TxTypeSale,
		Quantity:      -item.Quantity,
		ReferenceType: model.RefTypeChallanItem,
		ReferenceID:   &item.ID,
		Note:          "dispatch " + challan.ChallanNo,
	}
	if err := s.ledgerRepo.Create(txCtx, sale); err != nil {
		return fmt.Errorf("failed to write sale transaction: %w", err)
	}

	if item.SalesOrderItemID != nil {
		orderItem, err := s.orderRepo.FindItemByID(txCtx, *item.SalesOrderItemID)
		if err != nil {
			return fmt.Errorf("failed to load order item: %w", err)
		}
		orderItem.DeliveredQuantity += item.Quantity
		if orderItem.DeliveredQuantity > orderItem.RequestedQuantity {
			return fmt.Errorf("delivery exceeds requested quantity on order item %s", orderItem.ID)
		}
		if err := s.orderRepo.SaveItem(txCtx, orderItem); err != nil {
			return fmt.Errorf("failed to update order item: %w", err)
		}
	}
	return nil
}

// revertItem undoes applyItem: restores the batch balance with a positive
// adjustment, rolls back delivered quantities and, for orders still in
// flight, re-creates the hold the dispatch had consumed.
func (s *challanService) revertItem(txCtx context.Context, challan *model.DeliveryChallan, item *model.DeliveryChallanItem) error {
	batch, err := s.batchRepo.FindByIDForUpdate(txCtx, item.BatchID)
	if err != nil {
		return fmt.Errorf("failed to lock batch: %w", err)
	}

	batch.CurrentStock += item.Quantity

	reheld := 0
	if challan.SalesOrderID != nil {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, *challan.SalesOrderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if !stock.IsTerminalOrderStatus(order.Status) {
			reservation := &model.StockReservation{
				BatchID:      item.BatchID,
				SalesOrderID: order.ID,
				Quantity:     item.Quantity,
				Status:       model.ReservationActive,
			}
			if err := s.reservationRepo.Create(txCtx, reservation); err != nil {
				return fmt.Errorf("failed to re-create reservation: %w", err)
			}
			reheld = item.Quantity
		}
	}
	batch.ReservedStock += reheld

	if err := s.batchRepo.UpdateQuantities(txCtx, batch.ID, batch.CurrentStock, batch.ReservedStock); err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}

	reversal := &model.InventoryTransaction{
		BatchID:       &batch.ID,
		ProductID:     batch.ProductID,
		Type:          model.TxTypeAdjustment,
		Quantity:      item.Quantity,
		ReferenceType: model.RefTypeChallanItem,
		ReferenceID:   &item.ID,
		Note:          "revert dispatch " + challan.ChallanNo,
	}
	if err := s.ledgerRepo.Create(txCtx, reversal); err != nil {
		return fmt.Errorf("failed to write reversal transaction: %w", err)
	}

	if item.SalesOrderItemID != nil {
		orderItem, err := s.orderRepo.FindItemByID(txCtx, *item.SalesOrderItemID)
		if err != nil {
			return fmt.Errorf("failed to load order item: %w", err)
		}
		orderItem.DeliveredQuantity -= item.Quantity
		if orderItem.DeliveredQuantity < 0 {
			orderItem.DeliveredQuantity = 0
		}
		if err := s.orderRepo.SaveItem(txCtx, orderItem); err != nil {
			return fmt.Errorf("failed to update order item: %w", err)
		}
	}
	return nil
}

// syncOrderDelivery re-derives the delivery side of the order's status from
// its items after dispatch quantities changed.
func (s *challanService) syncOrderDelivery(txCtx context.Context, orderID *uuid.UUID) error {
	if orderID == nil {
		return nil
	}
	order, err := s.orderRepo.FindByIDForUpdate(txCtx, *orderID)
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if stock.IsTerminalOrderStatus(order.Status) {
		return nil
	}

	derived := stock.DeliveryStatus(order.Items)
	if derived == order.Status {
		return nil
	}
	// Orders that have not shipped anything fall back to their reservation
	// state rather than PENDING_DELIVERY.
	if derived == model.OrderStatusPendingDelivery &&
		(order.Status == model.OrderStatusStockReserved || order.Status == model.OrderStatusShortage) {
		return nil
	}
	if !stock.CanTransitionOrder(order.Status, derived) {
		return nil
	}
	order.Status = derived
	if err := s.orderRepo.Save(txCtx, order); err != nil {
		return err
	}

	// A delivered order cannot be dispatched again, so any hold it still has
	// (a dispatch served from a different batch than the one reserved) would
	// pin stock forever. Release the leftovers.
	if derived == model.OrderStatusDelivered {
		return s.releaseRemainingHolds(txCtx, order.ID)
	}
	return nil
}

// releaseRemainingHolds returns the order's leftover active holds to their
// batches after the order reached its delivered state.
func (s *challanService) releaseRemainingHolds(txCtx context.Context, orderID uuid.UUID) error {
	reservations, err := s.reservationRepo.FindActiveByOrderForUpdate(txCtx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load reservations: %w", err)
	}
	now := time.Now()
	for i := range reservations {
		res := &reservations[i]

		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, res.BatchID)
		if err != nil {
			return fmt.Errorf("failed to lock batch: %w", err)
		}
		batch.ReservedStock -= res.Quantity
		if batch.ReservedStock < 0 {
			batch.ReservedStock = 0
		}
		if err := s.batchRepo.UpdateQuantities(txCtx, batch.ID, batch.CurrentStock, batch.ReservedStock); err != nil {
			return fmt.Errorf("failed to update batch hold: %w", err)
		}

		res.Status = model.ReservationReleased
		res.ReleaseReason = model.ReleaseReasonOrderDelivered
		res.ReleasedAt = &now
		if err := s.reservationRepo.Save(txCtx, res); err != nil {
			return fmt.Errorf("failed to release reservation: %w", err)
		}
	}
	return nil
}
