package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrder status enum constants
const (
	OrderStatusDraft              = "DRAFT"
	OrderStatusPendingApproval    = "PENDING_APPROVAL"
	OrderStatusApproved           = "APPROVED"
	OrderStatusRejected           = "REJECTED"
	OrderStatusStockReserved      = "STOCK_RESERVED"
	OrderStatusShortage           = "SHORTAGE"
	OrderStatusPendingDelivery    = "PENDING_DELIVERY"
	OrderStatusPartiallyDelivered = "PARTIALLY_DELIVERED"
	OrderStatusDelivered          = "DELIVERED"
	OrderStatusCancelled          = "CANCELLED"
	OrderStatusArchived           = "ARCHIVED"
)

// SalesOrder is a customer order driving reservation and dispatch. Status
// transitions are enforced by the fulfillment state machine; stock is held by
// reservations on approval and deducted only through challan approval.
type SalesOrder struct {
	ID         uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNo    string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"order_no"`
	CustomerID uuid.UUID        `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer   *Customer        `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status     string           `gorm:"type:varchar(30);not null;default:'DRAFT';index" json:"status"`
	Note       string           `gorm:"type:text" json:"note"`
	Items      []SalesOrderItem `gorm:"foreignKey:SalesOrderID;constraint:OnDelete:CASCADE" json:"items"`
	ApprovedBy *uuid.UUID       `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt *time.Time       `json:"approved_at"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SalesOrderItem is one product line of an order. DeliveredQuantity only ever
// grows through challan approval and never exceeds RequestedQuantity.
type SalesOrderItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SalesOrderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"sales_order_id"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product           *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	RequestedQuantity int             `gorm:"type:int;not null" json:"requested_quantity"`
	DeliveredQuantity int             `gorm:"type:int;not null;default:0" json:"delivered_quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
}
