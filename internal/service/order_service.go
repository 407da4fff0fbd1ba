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
type OrderItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	CustomerID string             `json:"customer_id" binding:"required"`
	Note       string             `json:"note"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	Note  string             `json:"note"`
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ShortageLine reports one unfillable order item after FIFO planning.
type ShortageLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Required  int       `json:"required"`
	Shortage  int       `json:"shortage"`
}

type OrderResponse struct {
	Order     model.SalesOrder `json:"order"`
	Shortages []ShortageLine   `json:"shortages,omitempty"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*OrderResponse, error)
	UpdateOrder(ctx context.Context, userID string, id string, req UpdateOrderRequest) (*OrderResponse, error)
	SubmitOrder(ctx context.Context, userID string, id string) error
	ApproveOrder(ctx context.Context, userID string, id string) (*OrderResponse, error)
	RejectOrder(ctx context.Context, userID string, id string, reason string) error
	RetryReservation(ctx context.Context, userID string, id string) (*OrderResponse, error)
	CancelOrder(ctx context.Context, userID string, id string) error
	ArchiveOrder(ctx context.Context, userID string, id string) error
	GetOrder(ctx context.Context, id string) (*model.SalesOrder, error)
	GetOrderReservations(ctx context.Context, id string) ([]model.StockReservation, error)
	ListOrders(ctx context.Context, page, limit int, status, customerID string) ([]model.SalesOrder, int64, error)
}

type orderService struct {
	orderRepo       repository.SalesOrderRepository
	batchRepo       repository.BatchRepository
	reservationRepo repository.ReservationRepository
	requirementRepo repository.RequirementRepository
	customerRepo    repository.CustomerRepository
	productRepo     repository.ProductRepository
	sequenceRepo    repository.SequenceRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	hub             *ws.Hub
}

func NewOrderService(
	orderRepo repository.SalesOrderRepository,
	batchRepo repository.BatchRepository,
	reservationRepo repository.ReservationRepository,
	requirementRepo repository.RequirementRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		orderRepo:       orderRepo,
		batchRepo:       batchRepo,
		reservationRepo: reservationRepo,
		requirementRepo: requirementRepo,
		customerRepo:    customerRepo,
		productRepo:     productRepo,
		sequenceRepo:    sequenceRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		hub:             hub,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*OrderResponse, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id: %w", err)
	}

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var order model.SalesOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.customerRepo.FindByID(txCtx, customerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("customer not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		now := time.Now()
		if err := s.sequenceRepo.Lock(txCtx, "sales_order_no"); err != nil {
			return fmt.Errorf("failed to lock order numbering: %w", err)
		}
		count, err := s.orderRepo.CountByPrefix(txCtx, docNoPrefix("SO", now))
		if err != nil {
			return fmt.Errorf("failed to count orders: %w", err)
		}

		order = model.SalesOrder{
			OrderNo:    formatDocNo("SO", now, count+1),
			CustomerID: customerID,
			Status:     model.OrderStatusDraft,
			Note:       req.Note,
			Items:      items,
		}
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCreateOrder,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return &OrderResponse{Order: order}, nil
}

// UpdateOrder replaces the order's items. For orders whose stock is already
// held, the existing reservations are released and re-derived against the new
// lines in the same transaction, so the hold is never double-counted.
func (s *orderService) UpdateOrder(ctx context.Context, userID string, id string, req UpdateOrderRequest) (*OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var result *OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		switch order.Status {
		case model.OrderStatusDraft, model.OrderStatusPendingApproval,
			model.OrderStatusStockReserved, model.OrderStatusShortage:
		default:
			return fmt.Errorf("order in status %s cannot be edited", order.Status)
		}
		for _, it := range order.Items {
			if it.DeliveredQuantity > 0 {
				return errors.New("order with delivered quantities cannot be edited")
			}
		}

		held := order.Status == model.OrderStatusStockReserved || order.Status == model.OrderStatusShortage
		if held {
			if err := s.releaseReservations(txCtx, order.ID, model.ReleaseReasonOrderEdited); err != nil {
				return err
			}
			if err := s.requirementRepo.CancelOpenByOrder(txCtx, order.ID); err != nil {
				return fmt.Errorf("failed to cancel open requirements: %w", err)
			}
		}

		if err := s.orderRepo.ReplaceItems(txCtx, order.ID, items); err != nil {
			return fmt.Errorf("failed to replace items: %w", err)
		}
		order.Items = items
		order.Note = req.Note

		var shortages []ShortageLine
		if held {
			shortages, err = s.reserveOrderStock(txCtx, order)
			if err != nil {
				return err
			}
			if len(shortages) == 0 {
				order.Status = model.OrderStatusStockReserved
			} else {
				order.Status = model.OrderStatusShortage
			}
		}

		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionEditOrder,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		result = &OrderResponse{Order: *order, Shortages: shortages}
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "order.updated", map[string]interface{}{
		"order_id": result.Order.ID.String(),
		"order_no": result.Order.OrderNo,
		"status":   result.Order.Status,
	})
	return result, nil
}

func (s *orderService) SubmitOrder(ctx context.Context, userID string, id string) error {
	return s.transition(ctx, userID, id, model.OrderStatusPendingApproval, model.ActionSubmitOrder, "")
}

// ApproveOrder moves the order through the approval gate and immediately
// attempts to hold stock. Reservation is all-or-nothing across the order: a
// single unfillable line leaves no holds and files import requirements for
// every short line instead.
func (s *orderService) ApproveOrder(ctx context.Context, userID string, id string) (*OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}

	var result *OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if !stock.CanTransitionOrder(order.Status, model.OrderStatusApproved) {
			return fmt.Errorf("order in status %s cannot be approved", order.Status)
		}

		now := time.Now()
		actor := parseActorID(userID)
		order.Status = model.OrderStatusApproved
		order.ApprovedBy = actor
		order.ApprovedAt = &now

		shortages, err := s.reserveOrderStock(txCtx, order)
		if err != nil {
			return err
		}
		if len(shortages) == 0 {
			order.Status = model.OrderStatusStockReserved
		} else {
			order.Status = model.OrderStatusShortage
		}

		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{"status": order.Status, "shortages": shortages})
		audit := &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionApproveOrder,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		result = &OrderResponse{Order: *order, Shortages: shortages}
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "order.approved", map[string]interface{}{
		"order_id": result.Order.ID.String(),
		"order_no": result.Order.OrderNo,
		"status":   result.Order.Status,
	})
	return result, nil
}

func (s *orderService) RejectOrder(ctx context.Context, userID string, id string, reason string) error {
	return s.transition(ctx, userID, id, model.OrderStatusRejected, model.ActionRejectOrder, reason)
}

// RetryReservation re-runs FIFO allocation for an order stuck in SHORTAGE,
// typically after a new batch arrives.
func (s *orderService) RetryReservation(ctx context.Context, userID string, id string) (*OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}

	var result *OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if order.Status != model.OrderStatusShortage {
			return fmt.Errorf("order in status %s has no pending shortage", order.Status)
		}

		shortages, err := s.reserveOrderStock(txCtx, order)
		if err != nil {
			return err
		}
		if len(shortages) == 0 {
			order.Status = model.OrderStatusStockReserved
			if err := s.requirementRepo.CancelOpenByOrder(txCtx, order.ID); err != nil {
				return fmt.Errorf("failed to cancel open requirements: %w", err)
			}
		}

		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		result = &OrderResponse{Order: *order, Shortages: shortages}
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "order.reservation_retried", map[string]interface{}{
		"order_id": result.Order.ID.String(),
		"status":   result.Order.Status,
	})
	return result, nil
}

func (s *orderService) CancelOrder(ctx context.Context, userID string, id string) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid order id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if !stock.CanTransitionOrder(order.Status, model.OrderStatusCancelled) {
			return fmt.Errorf("order in status %s cannot be cancelled", order.Status)
		}

		if err := s.releaseReservations(txCtx, order.ID, model.ReleaseReasonOrderCancelled); err != nil {
			return err
		}
		if err := s.requirementRepo.CancelOpenByOrder(txCtx, order.ID); err != nil {
			return fmt.Errorf("failed to cancel open requirements: %w", err)
		}

		order.Status = model.OrderStatusCancelled
		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     model.ActionCancelOrder,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    `{"cancelled": true}`,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return err
	}

	broadcast(s.hub, "order.cancelled", map[string]interface{}{"order_id": orderID.String()})
	return nil
}

func (s *orderService) ArchiveOrder(ctx context.Context, userID string, id string) error {
	return s.transition(ctx, userID, id, model.OrderStatusArchived, model.ActionArchiveOrder, "")
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*model.SalesOrder, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return order, nil
}

func (s *orderService) GetOrderReservations(ctx context.Context, id string) ([]model.StockReservation, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}
	return s.reservationRepo.ListByOrder(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int, status, customerID string) ([]model.SalesOrder, int64, error) {
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
	return s.orderRepo.List(ctx, page, limit, status, cid)
}

// transition performs a plain status move with no stock side effects.
func (s *orderService) transition(ctx context.Context, userID, id, target, action, note string) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid order id: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if !stock.CanTransitionOrder(order.Status, target) {
			return fmt.Errorf("order cannot move from %s to %s", order.Status, target)
		}

		order.Status = target
		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		details, _ := json.Marshal(map[string]string{"status": target, "note": note})
		audit := &model.AuditLog{
			UserID:     parseActorID(userID),
			Action:     action,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}

// reserveOrderStock plans FIFO allocations for every undelivered line while
// holding row locks on the candidate batches. If every line can be filled it
// writes the reservation rows and bumps reserved stock; otherwise it writes
// nothing but files an import requirement per short line.
func (s *orderService) reserveOrderStock(txCtx context.Context, order *model.SalesOrder) ([]ShortageLine, error) {
	now := time.Now()

	type plannedItem struct {
		item model.SalesOrderItem
		plan stock.AllocationPlan
	}
	var planned []plannedItem
	var shortages []ShortageLine

	// Lock each product's batch set once; track takes locally so two lines of
	// the same product see each other's planned holds.
	lockedBatches := make(map[uuid.UUID][]model.Batch)
	plannedTake := make(map[uuid.UUID]int)

	for _, item := range order.Items {
		remaining := item.RequestedQuantity - item.DeliveredQuantity
		if remaining <= 0 {
			continue
		}

		batches, ok := lockedBatches[item.ProductID]
		if !ok {
			var err error
			batches, err = s.batchRepo.ListActiveByProductForUpdate(txCtx, item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("failed to lock batches: %w", err)
			}
			lockedBatches[item.ProductID] = batches
		}

		view := make([]model.Batch, len(batches))
		copy(view, batches)
		for i := range view {
			view[i].ReservedStock += plannedTake[view[i].ID]
		}

		plan := stock.SelectBatches(view, remaining, now, nil)
		if plan.Shortage > 0 {
			shortages = append(shortages, ShortageLine{
				ProductID: item.ProductID,
				Required:  remaining,
				Shortage:  plan.Shortage,
			})
			continue
		}
		for _, alloc := range plan.Allocations {
			plannedTake[alloc.BatchID] += alloc.Quantity
		}
		planned = append(planned, plannedItem{item: item, plan: plan})
	}

	if len(shortages) > 0 {
		for _, line := range shortages {
			requirement := &model.ImportRequirement{
				ProductID:        line.ProductID,
				SalesOrderID:     &order.ID,
				RequiredQuantity: line.Required,
				ShortageQuantity: line.Shortage,
				Priority:         model.PriorityNormal,
				Status:           model.RequirementOpen,
			}
			if err := s.requirementRepo.Create(txCtx, requirement); err != nil {
				return nil, fmt.Errorf("failed to create import requirement: %w", err)
			}
		}
		return shortages, nil
	}

	for _, p := range planned {
		for _, alloc := range p.plan.Allocations {
			reservation := &model.StockReservation{
				BatchID:      alloc.BatchID,
				SalesOrderID: order.ID,
				Quantity:     alloc.Quantity,
				Status:       model.ReservationActive,
			}
			if err := s.reservationRepo.Create(txCtx, reservation); err != nil {
				return nil, fmt.Errorf("failed to create reservation: %w", err)
			}
		}
	}
	for batchID, take := range plannedTake {
		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, batchID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload batch: %w", err)
		}
		batch.ReservedStock += take
		if batch.ReservedStock > batch.CurrentStock {
			return nil, &stock.InsufficientStockError{
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Requested:   take,
				Available:   batch.CurrentStock - (batch.ReservedStock - take),
			}
		}
		if err := s.batchRepo.UpdateQuantities(txCtx, batch.ID, batch.CurrentStock, batch.ReservedStock); err != nil {
			return nil, fmt.Errorf("failed to update batch hold: %w", err)
		}
	}
	return nil, nil
}

// releaseReservations releases every active hold of the order and returns the
// held quantities to the batches.
func (s *orderService) releaseReservations(txCtx context.Context, orderID uuid.UUID, reason string) error {
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
		res.ReleaseReason = reason
		res.ReleasedAt = &now
		if err := s.reservationRepo.Save(txCtx, res); err != nil {
			return fmt.Errorf("failed to release reservation: %w", err)
		}
	}
	return nil
}

func (s *orderService) buildItems(ctx context.Context, reqs []OrderItemRequest) ([]model.SalesOrderItem, error) {
	items := make([]model.SalesOrderItem, 0, len(reqs))
	for _, r := range reqs {
		pid, err := uuid.Parse(r.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %s: %w", r.ProductID, err)
		}
		product, err := s.productRepo.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("product not found: %s", r.ProductID)
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("product %s is deactivated", product.SKU)
		}
		items = append(items, model.SalesOrderItem{
			ProductID:         pid,
			RequestedQuantity: r.Quantity,
			UnitPrice:         decimal.NewFromFloat(r.UnitPrice),
		})
	}
	return items, nil
}
