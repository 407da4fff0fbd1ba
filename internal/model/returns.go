package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Material return dispositions. Only RESTOCK credits batch stock back;
// SCRAP and RETURN_TO_SUPPLIER record the financial loss without restoring it.
const (
	DispositionRestock          = "RESTOCK"
	DispositionScrap            = "SCRAP"
	DispositionReturnToSupplier = "RETURN_TO_SUPPLIER"
)

// Return/rejection document statuses
const (
	ReturnStatusPending  = "PENDING"
	ReturnStatusApproved = "APPROVED"
	ReturnStatusRejected = "REJECTED"
)

// MaterialReturn records goods coming back after dispatch, referencing the
// challan item that shipped them.
type MaterialReturn struct {
	ID            uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReturnNo      string               `gorm:"type:varchar(100);uniqueIndex;not null" json:"return_no"`
	ChallanItemID uuid.UUID            `gorm:"type:uuid;not null;index" json:"challan_item_id"`
	ChallanItem   *DeliveryChallanItem `gorm:"foreignKey:ChallanItemID" json:"challan_item,omitempty"`
	BatchID       uuid.UUID            `gorm:"type:uuid;not null;index" json:"batch_id"`
	ProductID     uuid.UUID            `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity      int                  `gorm:"type:int;not null" json:"quantity"`
	Disposition   string               `gorm:"type:varchar(30);not null" json:"disposition"`
	LossAmount    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"loss_amount"`
	Reason        string               `gorm:"type:text" json:"reason"`
	Status        string               `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ApprovedBy    *uuid.UUID           `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt    *time.Time           `json:"approved_at"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// StockRejection is a pre-dispatch quality write-off deducted straight from a
// batch's current stock, independent of any reservation.
type StockRejection struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RejectionNo string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"rejection_no"`
	BatchID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch       *Batch     `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity    int        `gorm:"type:int;not null" json:"quantity"`
	Reason      string     `gorm:"type:text" json:"reason"`
	Status      string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ApprovedBy  *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
