package stock

import "backend/internal/model"

// orderTransitions is the sales-order state machine:
//
//	DRAFT -> PENDING_APPROVAL -> {APPROVED | REJECTED}
//	APPROVED -> {STOCK_RESERVED | SHORTAGE}
//	STOCK_RESERVED | SHORTAGE -> PENDING_DELIVERY -> PARTIALLY_DELIVERED -> DELIVERED
//	CANCELLED is reachable from any non-delivered state; DELIVERED may be ARCHIVED.
var orderTransitions = map[string][]string{
	model.OrderStatusDraft:              {model.OrderStatusPendingApproval},
	model.OrderStatusPendingApproval:    {model.OrderStatusApproved, model.OrderStatusRejected},
	model.OrderStatusApproved:           {model.OrderStatusStockReserved, model.OrderStatusShortage},
	model.OrderStatusStockReserved:      {model.OrderStatusShortage, model.OrderStatusPendingDelivery, model.OrderStatusPartiallyDelivered, model.OrderStatusDelivered},
	model.OrderStatusShortage:           {model.OrderStatusStockReserved, model.OrderStatusPendingDelivery, model.OrderStatusPartiallyDelivered},
	model.OrderStatusPendingDelivery:    {model.OrderStatusPartiallyDelivered, model.OrderStatusDelivered},
	model.OrderStatusPartiallyDelivered: {model.OrderStatusDelivered},
	model.OrderStatusDelivered:          {model.OrderStatusArchived, model.OrderStatusPartiallyDelivered},
}

// CanTransitionOrder reports whether a sales order may move from one status
// to another. Cancellation is allowed from every state except DELIVERED,
// CANCELLED and ARCHIVED.
func CanTransitionOrder(from, to string) bool {
	if to == model.OrderStatusCancelled {
		switch from {
		case model.OrderStatusDelivered, model.OrderStatusCancelled, model.OrderStatusArchived:
			return false
		}
		return true
	}
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus reports whether no further transitions are possible.
func IsTerminalOrderStatus(status string) bool {
	return status == model.OrderStatusCancelled ||
		status == model.OrderStatusRejected ||
		status == model.OrderStatusArchived
}

// DeliveryStatus derives the delivery-side status of an order from its items:
// DELIVERED once every item reached its requested quantity, PARTIALLY_DELIVERED
// when anything has shipped, PENDING_DELIVERY otherwise.
func DeliveryStatus(items []model.SalesOrderItem) string {
	if len(items) == 0 {
		return model.OrderStatusPendingDelivery
	}
	delivered := 0
	complete := true
	for _, it := range items {
		delivered += it.DeliveredQuantity
		if it.DeliveredQuantity < it.RequestedQuantity {
			complete = false
		}
	}
	switch {
	case complete:
		return model.OrderStatusDelivered
	case delivered > 0:
		return model.OrderStatusPartiallyDelivered
	default:
		return model.OrderStatusPendingDelivery
	}
}
