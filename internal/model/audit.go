package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct     = "CREATE_PRODUCT"
	ActionUpdateProduct     = "UPDATE_PRODUCT"
	ActionDeactivateProduct = "DEACTIVATE_PRODUCT"

	ActionCreateBatch = "CREATE_BATCH"
	ActionEditBatch   = "EDIT_BATCH"
	ActionDeleteBatch = "DELETE_BATCH"
	ActionAdjustStock = "ADJUST_STOCK"

	ActionCreateOrder  = "CREATE_SALES_ORDER"
	ActionSubmitOrder  = "SUBMIT_SALES_ORDER"
	ActionApproveOrder = "APPROVE_SALES_ORDER"
	ActionRejectOrder  = "REJECT_SALES_ORDER"
	ActionCancelOrder  = "CANCEL_SALES_ORDER"
	ActionArchiveOrder = "ARCHIVE_SALES_ORDER"
	ActionEditOrder    = "EDIT_SALES_ORDER"

	ActionCreateChallan  = "CREATE_DELIVERY_CHALLAN"
	ActionApproveChallan = "APPROVE_DELIVERY_CHALLAN"
	ActionRejectChallan  = "REJECT_DELIVERY_CHALLAN"
	ActionEditChallan    = "EDIT_DELIVERY_CHALLAN"
	ActionDeleteChallan  = "DELETE_DELIVERY_CHALLAN"

	ActionCreateInvoice    = "CREATE_SALES_INVOICE"
	ActionCreateReturn     = "CREATE_MATERIAL_RETURN"
	ActionApproveReturn    = "APPROVE_MATERIAL_RETURN"
	ActionCreateRejection  = "CREATE_STOCK_REJECTION"
	ActionApproveRejection = "APPROVE_STOCK_REJECTION"

	ActionCreateCustomer = "CREATE_CUSTOMER"
	ActionUpdateCustomer = "UPDATE_CUSTOMER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
