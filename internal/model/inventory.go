package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType enum constants
const (
	TxTypePurchase   = "PURCHASE"
	TxTypeSale       = "SALE"
	TxTypeAdjustment = "ADJUSTMENT"
)

// Transaction reference types — the document that caused the movement
const (
	RefTypeBatch          = "BATCH"
	RefTypeChallanItem    = "DELIVERY_CHALLAN_ITEM"
	RefTypeMaterialReturn = "MATERIAL_RETURN"
	RefTypeStockRejection = "STOCK_REJECTION"
	RefTypeManual         = "MANUAL"
)

// InventoryTransaction is the append-only batch ledger. Quantity is a signed
// delta; the sum of all deltas for a batch equals its current stock at every
// point in time. Rows are only ever rewritten by an imported-quantity edit,
// which adjusts the originating purchase row and re-derives the balance.
type InventoryTransaction struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BatchID       *uuid.UUID `gorm:"type:uuid;index" json:"batch_id"` // nullable for product-level adjustments
	ProductID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Type          string     `gorm:"type:varchar(20);not null;index" json:"type"` // PURCHASE, SALE, ADJUSTMENT
	Quantity      int        `gorm:"type:int;not null" json:"quantity"`           // signed delta
	ReferenceType string     `gorm:"type:varchar(30);not null" json:"reference_type"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid;index" json:"reference_id"`
	Note          string     `gorm:"type:text" json:"note"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
}
