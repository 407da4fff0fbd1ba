package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents an imported good. Once batches reference a product it is
// only ever soft-deactivated, never hard-deleted.
type Product struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU                string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name               string          `gorm:"type:varchar(255);not null" json:"name"`
	UnitOfMeasure      string          `gorm:"type:varchar(30);not null;default:'PCS'" json:"unit_of_measure"`
	DefaultDutyPercent decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0" json:"default_duty_percent"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}
