package model

import (
	"time"

	"github.com/google/uuid"
)

// ImportRequirement statuses
const (
	RequirementOpen      = "OPEN"
	RequirementOrdered   = "ORDERED"
	RequirementReceived  = "RECEIVED"
	RequirementCancelled = "CANCELLED"
)

// ImportRequirement priorities
const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

// ImportRequirement is a procurement-facing record created when order
// approval detects a shortage. Informational only — it does not hold stock.
type ImportRequirement struct {
	ID               uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"product_id"`
	Product          *Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	SalesOrderID     *uuid.UUID  `gorm:"type:uuid;index" json:"sales_order_id"`
	SalesOrder       *SalesOrder `gorm:"foreignKey:SalesOrderID" json:"sales_order,omitempty"`
	RequiredQuantity int         `gorm:"type:int;not null" json:"required_quantity"`
	ShortageQuantity int         `gorm:"type:int;not null" json:"shortage_quantity"`
	Priority         string      `gorm:"type:varchar(20);not null;default:'NORMAL'" json:"priority"`
	Status           string      `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
