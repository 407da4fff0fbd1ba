package stock

import (
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestOrderApprovalPath(t *testing.T) {
	assert.True(t, CanTransitionOrder(model.OrderStatusDraft, model.OrderStatusPendingApproval))
	assert.True(t, CanTransitionOrder(model.OrderStatusPendingApproval, model.OrderStatusApproved))
	assert.True(t, CanTransitionOrder(model.OrderStatusPendingApproval, model.OrderStatusRejected))
	assert.True(t, CanTransitionOrder(model.OrderStatusApproved, model.OrderStatusStockReserved))
	assert.True(t, CanTransitionOrder(model.OrderStatusApproved, model.OrderStatusShortage))
	assert.True(t, CanTransitionOrder(model.OrderStatusStockReserved, model.OrderStatusPartiallyDelivered))
	assert.True(t, CanTransitionOrder(model.OrderStatusPartiallyDelivered, model.OrderStatusDelivered))
	assert.True(t, CanTransitionOrder(model.OrderStatusDelivered, model.OrderStatusArchived))
}

func TestOrderIllegalTransitions(t *testing.T) {
	assert.False(t, CanTransitionOrder(model.OrderStatusDraft, model.OrderStatusApproved))
	assert.False(t, CanTransitionOrder(model.OrderStatusRejected, model.OrderStatusApproved))
	assert.False(t, CanTransitionOrder(model.OrderStatusDelivered, model.OrderStatusPendingApproval))
	assert.False(t, CanTransitionOrder(model.OrderStatusArchived, model.OrderStatusDelivered))
}

func TestCancellationReachability(t *testing.T) {
	cancellable := []string{
		model.OrderStatusDraft,
		model.OrderStatusPendingApproval,
		model.OrderStatusApproved,
		model.OrderStatusStockReserved,
		model.OrderStatusShortage,
		model.OrderStatusPendingDelivery,
		model.OrderStatusPartiallyDelivered,
	}
	for _, from := range cancellable {
		assert.True(t, CanTransitionOrder(from, model.OrderStatusCancelled), "from %s", from)
	}

	for _, from := range []string{model.OrderStatusDelivered, model.OrderStatusCancelled, model.OrderStatusArchived} {
		assert.False(t, CanTransitionOrder(from, model.OrderStatusCancelled), "from %s", from)
	}
}

func TestIsTerminalOrderStatus(t *testing.T) {
	assert.True(t, IsTerminalOrderStatus(model.OrderStatusCancelled))
	assert.True(t, IsTerminalOrderStatus(model.OrderStatusRejected))
	assert.True(t, IsTerminalOrderStatus(model.OrderStatusArchived))
	assert.False(t, IsTerminalOrderStatus(model.OrderStatusDelivered))
	assert.False(t, IsTerminalOrderStatus(model.OrderStatusStockReserved))
}

func TestDeliveryStatus(t *testing.T) {
	items := []model.SalesOrderItem{
		{RequestedQuantity: 100, DeliveredQuantity: 0},
		{RequestedQuantity: 50, DeliveredQuantity: 0},
	}
	assert.Equal(t, model.OrderStatusPendingDelivery, DeliveryStatus(items))

	items[0].DeliveredQuantity = 40
	assert.Equal(t, model.OrderStatusPartiallyDelivered, DeliveryStatus(items))

	items[0].DeliveredQuantity = 100
	items[1].DeliveredQuantity = 50
	assert.Equal(t, model.OrderStatusDelivered, DeliveryStatus(items))
}

func TestDeliveryStatusNoItems(t *testing.T) {
	assert.Equal(t, model.OrderStatusPendingDelivery, DeliveryStatus(nil))
}
