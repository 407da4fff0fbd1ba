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

func newOrderServiceForTest(store *fakeStore) OrderService {
	return NewOrderService(
		&fakeOrderRepo{store: store},
		&fakeBatchRepo{store: store},
		&fakeReservationRepo{store: store},
		&fakeRequirementRepo{store: store},
		&fakeCustomerRepo{store: store},
		&fakeProductRepo{store: store},
		fakeSequenceRepo{},
		&fakeAuditRepo{store: store},
		fakeTxManager{},
		nil,
	)
}

func TestApproveOrderAllocatesOldestBatchesFirst(t *testing.T) {
	store := newFakeStore()
	productID := uuid.New()
	january := store.addBatch(model.Batch{
		ProductID:    productID,
		BatchNumber:  "B-JAN",
		ImportDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		CurrentStock: 300,
	})
	february := store.addBatch(model.Batch{
		ProductID:    productID,
		BatchNumber:  "B-FEB",
		ImportDate:   time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
		CurrentStock: 400,
	})
	order, _ := store.addOrder(
		model.SalesOrder{OrderNo: "SO-202601-0010", CustomerID: uuid.New(), Status: model.OrderStatusPendingApproval},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 500},
	)

	svc := newOrderServiceForTest(store)
	resp, err := svc.ApproveOrder(context.Background(), uuid.New().String(), order.ID.String())
	require.NoError(t, err)
	assert.Empty(t, resp.Shortages)
	assert.Equal(t, model.OrderStatusStockReserved, store.orders[order.ID].Status)

	held := map[uuid.UUID]int{}
	for _, res := range store.activeReservations(order.ID) {
		held[res.BatchID] += res.Quantity
	}
	assert.Equal(t, 300, held[january.ID])
	assert.Equal(t, 200, held[february.ID])
	assert.Equal(t, 300, store.batches[january.ID].ReservedStock)
	assert.Equal(t, 200, store.batches[february.ID].ReservedStock)
}

func TestApproveOrderShortageFilesImportRequirement(t *testing.T) {
	store := newFakeStore()
	productID := uuid.New()
	batch := store.addBatch(model.Batch{
		ProductID:    productID,
		BatchNumber:  "B-001",
		ImportDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		CurrentStock: 200,
	})
	order, _ := store.addOrder(
		model.SalesOrder{OrderNo: "SO-202601-0011", CustomerID: uuid.New(), Status: model.OrderStatusPendingApproval},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 500},
	)

	svc := newOrderServiceForTest(store)
	resp, err := svc.ApproveOrder(context.Background(), uuid.New().String(), order.ID.String())
	require.NoError(t, err)
	require.Len(t, resp.Shortages, 1)
	assert.Equal(t, 500, resp.Shortages[0].Required)
	assert.Equal(t, 300, resp.Shortages[0].Shortage)

	assert.Equal(t, model.OrderStatusShortage, store.orders[order.ID].Status)

	// Shortage means no holds at all: partial fills are not kept.
	assert.Empty(t, store.activeReservations(order.ID))
	assert.Equal(t, 0, store.batches[batch.ID].ReservedStock)

	require.Len(t, store.requirements, 1)
	req := store.requirements[0]
	assert.Equal(t, productID, req.ProductID)
	assert.Equal(t, 500, req.RequiredQuantity)
	assert.Equal(t, 300, req.ShortageQuantity)
	assert.Equal(t, model.RequirementOpen, req.Status)
}

// Two lines of the same product must not both count the same free stock:
// the second line sees the first line's planned take.
func TestApproveOrderSharedBatchAcrossLines(t *testing.T) {
	store := newFakeStore()
	productID := uuid.New()
	batch := store.addBatch(model.Batch{
		ProductID:    productID,
		BatchNumber:  "B-001",
		ImportDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		CurrentStock: 500,
	})
	order, _ := store.addOrder(
		model.SalesOrder{OrderNo: "SO-202601-0012", CustomerID: uuid.New(), Status: model.OrderStatusPendingApproval},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 300},
		model.SalesOrderItem{ProductID: productID, RequestedQuantity: 300},
	)

	svc := newOrderServiceForTest(store)
	resp, err := svc.ApproveOrder(context.Background(), uuid.New().String(), order.ID.String())
	require.NoError(t, err)
	require.Len(t, resp.Shortages, 1)
	assert.Equal(t, 100, resp.Shortages[0].Shortage)

	assert.Equal(t, model.OrderStatusShortage, store.orders[order.ID].Status)
	assert.Empty(t, store.activeReservations(order.ID))
	assert.Equal(t, 0, store.batches[batch.ID].ReservedStock)
}
