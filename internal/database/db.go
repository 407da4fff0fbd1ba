package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Product{},
		&model.ImportContainer{},
		&model.Batch{},
		&model.InventoryTransaction{},
		&model.StockReservation{},
		&model.Customer{},
		&model.CustomerAddress{},
		&model.SalesOrder{},
		&model.SalesOrderItem{},
		&model.DeliveryChallan{},
		&model.DeliveryChallanItem{},
		&model.SalesInvoice{},
		&model.SalesInvoiceItem{},
		&model.MaterialReturn{},
		&model.StockRejection{},
		&model.ImportRequirement{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
