package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChallanServiceForTest(store *fakeStore) ChallanService {
	return NewChallanService(
		&fakeChallanRepo{store: store},
		&fakeOrderRepo{store: store},
		&fakeBatchRepo{store: store},
		&fakeReservationRepo{store: store},
		&fakeLedgerRepo{store: store},
		fakeSequenceRepo{},
		&fakeAuditRepo{store: store},
		fakeTxManager{},
		nil,
	)
}

func TestApproveChallanConsumesReservation(t *testing.T) {
	store := newFakeStore()
	productID := uuid.New()
	batch := store.addBatch(model.Batch{
		ProductID:     productID,
		BatchNumber:   "B-001",
		ImportDate:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		CurrentStock:  1000,
		ReservedStock: 600,
	})
	order, items := store.addOrder(
		model.SalesOrder{OrderNo: "SO-202601-0001", CustomerID: uuid.New(), Status: model.OrderStatusStockReserved},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 600},
	)
	store.addReservation(order.ID, batch.ID, 600)
	challan := store.addChallan(model.DeliveryChallan{
		ChallanNo:    "DC-202601-0001",
		SalesOrderID: &order.ID,
		Status:       model.ChallanStatusPendingApproval,
		Items: []model.DeliveryChallanItem{
			{SalesOrderItemID: &items[0].ID, BatchID: batch.ID, ProductID: productID, Quantity: 300},
		},
	})

	svc := newChallanServiceForTest(store)
	approved, err := svc.ApproveChallan(context.Background(), uuid.New().String(), challan.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ChallanStatusApproved, approved.Status)

	got := store.batches[batch.ID]
	assert.Equal(t, 700, got.CurrentStock)
	assert.Equal(t, 300, got.ReservedStock)

	require.Len(t, store.ledger, 1)
	assert.Equal(t, model.TxTypeSale, store.ledger[0].Type)
	assert.Equal(t, -300, store.ledger[0].Quantity)

	active := store.activeReservations(order.ID)
	require.Len(t, active, 1)
	assert.Equal(t, 300, active[0].Quantity)

	assert.Equal(t, 300, store.orderItems[0].DeliveredQuantity)
	assert.Equal(t, model.OrderStatusPartiallyDelivered, store.orders[order.ID].Status)
}

// An order can hold one batch through several reservation rows (one per order
// line). Dispatches must be able to draw on all of them, not just the first.
func TestApproveChallanConsumesAcrossReservationRows(t *testing.T) {
	store := newFakeStore()
	productID := uuid.New()
	batch := store.addBatch(model.Batch{
		ProductID:     productID,
		BatchNumber:   "B-001",
		ImportDate:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		CurrentStock:  600,
		ReservedStock: 600,
	})
	order, items := store.addOrder(
		model.SalesOrder{OrderNo: "SO-202601-0002", CustomerID: uuid.New(), Status: model.OrderStatusStockReserved},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 300},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 300},
	)
	store.addReservation(order.ID, batch.ID, 300)
	store.addReservation(order.ID, batch.ID, 300)

	svc := newChallanServiceForTest(store)

	first := store.addChallan(model.DeliveryChallan{
		ChallanNo:    "DC-202601-0002",
		SalesOrderID: &order.ID,
		Status:       model.ChallanStatusPendingApproval,
		Items: []model.DeliveryChallanItem{
			{SalesOrderItemID: &items[0].ID, BatchID: batch.ID, ProductID: productID, Quantity: 150},
		},
	})
	_, err := svc.ApproveChallan(context.Background(), uuid.New().String(), first.ID.String())
	require.NoError(t, err)

	// The second dispatch needs 300 while the oldest row has only 150 left;
	// it must spill into the next row instead of failing on free stock.
	second := store.addChallan(model.DeliveryChallan{
		ChallanNo:    "DC-202601-0003",
		SalesOrderID: &order.ID,
		Status:       model.ChallanStatusPendingApproval,
		Items: []model.DeliveryChallanItem{
			{SalesOrderItemID: &items[1].ID, BatchID: batch.ID, ProductID: productID, Quantity: 300},
		},
	})
	_, err = svc.ApproveChallan(context.Background(), uuid.New().String(), second.ID.String())
	require.NoError(t, err)

	got := store.batches[batch.ID]
	assert.Equal(t, 150, got.CurrentStock)
	assert.Equal(t, 150, got.ReservedStock)

	remaining := 0
	for _, res := range store.activeReservations(order.ID) {
		remaining += res.Quantity
	}
	assert.Equal(t, 150, remaining)
	assert.Equal(t, model.OrderStatusPartiallyDelivered, store.orders[order.ID].Status)
}

// A dispatch served from a different batch than the one reserved leaves the
// hold behind. Once the order is fully delivered that hold must be returned
// to its batch, since no further dispatch can ever consume it.
func TestDeliveredOrderReleasesLeftoverHolds(t *testing.T) {
	store := newFakeStore()
	productID := uuid.New()
	reserved := store.addBatch(model.Batch{
		ProductID:     productID,
		BatchNumber:   "B-001",
		ImportDate:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		CurrentStock:  600,
		ReservedStock: 600,
	})
	dispatched := store.addBatch(model.Batch{
		ProductID:    productID,
		BatchNumber:  "B-002",
		ImportDate:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		CurrentStock: 600,
	})
	order, items := store.addOrder(
		model.SalesOrder{OrderNo: "SO-202601-0003", CustomerID: uuid.New(), Status: model.OrderStatusStockReserved},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 600},
	)
	store.addReservation(order.ID, reserved.ID, 600)
	challan := store.addChallan(model.DeliveryChallan{
		ChallanNo:    "DC-202601-0004",
		SalesOrderID: &order.ID,
		Status:       model.ChallanStatusPendingApproval,
		Items: []model.DeliveryChallanItem{
			{SalesOrderItemID: &items[0].ID, BatchID: dispatched.ID, ProductID: productID, Quantity: 600},
		},
	})

	svc := newChallanServiceForTest(store)
	_, err := svc.ApproveChallan(context.Background(), uuid.New().String(), challan.ID.String())
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusDelivered, store.orders[order.ID].Status)
	assert.Equal(t, 0, store.batches[dispatched.ID].CurrentStock)

	assert.Empty(t, store.activeReservations(order.ID))
	assert.Equal(t, 0, store.batches[reserved.ID].ReservedStock)
	assert.Equal(t, 600, store.batches[reserved.ID].CurrentStock)

	require.Len(t, store.reservations, 1)
	assert.Equal(t, model.ReservationReleased, store.reservations[0].Status)
	assert.Equal(t, model.ReleaseReasonOrderDelivered, store.reservations[0].ReleaseReason)
}

func TestDeleteApprovedChallanRevertsDispatch(t *testing.T) {
	store := newFakeStore()
	productID := uuid.New()
	batch := store.addBatch(model.Batch{
		ProductID:     productID,
		BatchNumber:   "B-001",
		ImportDate:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		CurrentStock:  1000,
		ReservedStock: 600,
	})
	order, items := store.addOrder(
		model.SalesOrder{OrderNo: "SO-202601-0004", CustomerID: uuid.New(), Status: model.OrderStatusStockReserved},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 600},
	)
	store.addReservation(order.ID, batch.ID, 600)
	challan := store.addChallan(model.DeliveryChallan{
		ChallanNo:    "DC-202601-0005",
		SalesOrderID: &order.ID,
		Status:       model.ChallanStatusPendingApproval,
		Items: []model.DeliveryChallanItem{
			{SalesOrderItemID: &items[0].ID, BatchID: batch.ID, ProductID: productID, Quantity: 300},
		},
	})

	svc := newChallanServiceForTest(store)
	_, err := svc.ApproveChallan(context.Background(), uuid.New().String(), challan.ID.String())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteChallan(context.Background(), uuid.New().String(), challan.ID.String()))

	got := store.batches[batch.ID]
	assert.Equal(t, 1000, got.CurrentStock)
	assert.Equal(t, 600, got.ReservedStock)

	held := 0
	for _, res := range store.activeReservations(order.ID) {
		held += res.Quantity
	}
	assert.Equal(t, 600, held)

	assert.Equal(t, 0, store.orderItems[0].DeliveredQuantity)
	assert.NotContains(t, store.challans, challan.ID)

	var adjustment *model.InventoryTransaction
	for _, tx := range store.ledger {
		if tx.Type == model.TxTypeAdjustment {
			adjustment = tx
		}
	}
	require.NotNil(t, adjustment)
	assert.Equal(t, 300, adjustment.Quantity)
}
