package model

import (
	"time"

	"github.com/google/uuid"
)

// Reservation status enum constants
const (
	ReservationActive   = "ACTIVE"
	ReservationReleased = "RELEASED"
)

// Reservation release reasons
const (
	ReleaseReasonConsumed       = "CONSUMED"
	ReleaseReasonOrderCancelled = "ORDER_CANCELLED"
	ReleaseReasonOrderEdited    = "ORDER_EDITED"
	ReleaseReasonChallanDeleted = "CHALLAN_DELETED"
	ReleaseReasonStockRejected  = "STOCK_REJECTED"
	ReleaseReasonOrderDelivered = "ORDER_DELIVERED"
)

// StockReservation is a non-destructive hold on batch stock tied to a sales
// order. It never mutates current stock; it only constrains how much of the
// batch is free for new holds. Consumption on dispatch shrinks Quantity and
// releases the row once fully consumed.
type StockReservation struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BatchID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch         *Batch     `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	SalesOrderID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"sales_order_id"`
	Quantity      int        `gorm:"type:int;not null" json:"quantity"`
	Status        string     `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	ReleaseReason string     `gorm:"type:varchar(30)" json:"release_reason"`
	ReleasedAt    *time.Time `json:"released_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsActive reports whether the reservation still holds stock.
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationActive
}
