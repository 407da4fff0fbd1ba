package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesInvoice bills the delivered quantities of a sales order. Lines carry
// the batch's landed cost so margin is always derived from the authoritative
// cost basis, never from a markup heuristic.
type SalesInvoice struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo    string             `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	SalesOrderID uuid.UUID          `gorm:"type:uuid;not null;index" json:"sales_order_id"`
	SalesOrder   *SalesOrder        `gorm:"foreignKey:SalesOrderID" json:"sales_order,omitempty"`
	ChallanID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"challan_id"`
	CustomerID   uuid.UUID          `gorm:"type:uuid;not null;index" json:"customer_id"`
	Subtotal     decimal.Decimal    `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TotalMargin  decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0" json:"total_margin"`
	Note         string             `gorm:"type:text" json:"note"`
	Items        []SalesInvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// SalesInvoiceItem is one billed line, keyed back to the challan item it
// invoices so the audit chain order -> reservation -> challan -> invoice stays
// a DAG of IDs.
type SalesInvoiceItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ChallanItemID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"challan_item_id"`
	SalesOrderItemID  *uuid.UUID      `gorm:"type:uuid" json:"sales_order_item_id"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	BatchID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"batch_id"`
	Quantity          int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	LandedCostPerUnit decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"landed_cost_per_unit"`
	Margin            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"margin"`
}
