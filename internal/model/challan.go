package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryChallan status enum constants — an independent two-state approval
// gate. A pending challan has zero stock effect; only the transition to
// APPROVED consumes reservations and deducts stock.
const (
	ChallanStatusPendingApproval = "PENDING_APPROVAL"
	ChallanStatusApproved        = "APPROVED"
	ChallanStatusRejected        = "REJECTED"
)

// DeliveryChallan is a dispatch document against a sales order (or manual).
type DeliveryChallan struct {
	ID           uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ChallanNo    string                `gorm:"type:varchar(100);uniqueIndex;not null" json:"challan_no"`
	SalesOrderID *uuid.UUID            `gorm:"type:uuid;index" json:"sales_order_id"` // nullable for manual dispatch
	SalesOrder   *SalesOrder           `gorm:"foreignKey:SalesOrderID" json:"sales_order,omitempty"`
	Status       string                `gorm:"type:varchar(30);not null;default:'PENDING_APPROVAL';index" json:"status"`
	Note         string                `gorm:"type:text" json:"note"`
	Items        []DeliveryChallanItem `gorm:"foreignKey:ChallanID;constraint:OnDelete:CASCADE" json:"items"`
	ApprovedBy   *uuid.UUID            `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt   *time.Time            `json:"approved_at"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// DeliveryChallanItem dispatches a concrete batch quantity against a specific
// sales-order item (or unlinked for manual dispatch). Immutable once the
// parent challan is approved, except through the atomic challan edit path.
type DeliveryChallanItem struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ChallanID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"challan_id"`
	SalesOrderItemID *uuid.UUID `gorm:"type:uuid;index" json:"sales_order_item_id"`
	BatchID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch            *Batch     `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	ProductID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity         int        `gorm:"type:int;not null" json:"quantity"`
}
