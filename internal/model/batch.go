package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeType enum constants for freight/other import charges
const (
	ChargeTypePercentage = "PERCENTAGE"
	ChargeTypeFixed      = "FIXED"
)

// ImportContainer groups batches shipped together; its allocated overhead is
// spread over each linked batch's imported quantity for display.
type ImportContainer struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContainerNo   string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"container_no"`
	ArrivalDate   *time.Time      `json:"arrival_date"`
	AllocatedCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"allocated_cost"`
	Note          string          `gorm:"type:text" json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Batch is a discrete import lot of a product with its own cost basis and expiry.
// CurrentStock is mutated only through the batch ledger (inventory transactions);
// ReservedStock is mutated only by reservation handling. FreeStock is the derived
// quantity available for new holds.
type Batch struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	BatchNumber string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"batch_number"`
	ImportDate  time.Time  `gorm:"not null;index" json:"import_date"`
	ExpiryDate  *time.Time `gorm:"index" json:"expiry_date"`

	ImportedQuantity int `gorm:"type:int;not null" json:"imported_quantity"`
	CurrentStock     int `gorm:"type:int;not null" json:"current_stock"`
	ReservedStock    int `gorm:"type:int;not null;default:0" json:"reserved_stock"`

	USDPrice          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"usd_price"`
	ExchangeRate      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"exchange_rate"`
	DutyPercent       decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0" json:"duty_percent"`
	FreightAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"freight_amount"`
	FreightChargeType string          `gorm:"type:varchar(20);not null;default:'FIXED'" json:"freight_charge_type"`
	OtherAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"other_amount"`
	OtherChargeType   string          `gorm:"type:varchar(20);not null;default:'FIXED'" json:"other_charge_type"`
	LandedCostPerUnit decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"landed_cost_per_unit"`

	ContainerID *uuid.UUID       `gorm:"type:uuid;index" json:"container_id"`
	Container   *ImportContainer `gorm:"foreignKey:ContainerID" json:"container,omitempty"`

	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FreeStock returns the quantity available for new reservations.
func (b *Batch) FreeStock() int {
	return b.CurrentStock - b.ReservedStock
}

// IsExpired reports whether the batch is expired as of the given time.
// Batches without an expiry date never expire.
func (b *Batch) IsExpired(asOf time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return !b.ExpiryDate.After(asOf)
}
