package stock

import (
	"fmt"

	"github.com/google/uuid"
)

// InsufficientStockError is returned when a deduction or reservation would
// exceed a batch's free stock. It names the batch and the numeric gap so the
// operator can act.
type InsufficientStockError struct {
	BatchID     uuid.UUID
	BatchNumber string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock on batch %s: requested %d, available %d (short by %d)",
		e.BatchNumber, e.Requested, e.Available, e.Requested-e.Available)
}

// QuantityBelowSoldError is returned when an imported-quantity edit would
// drop below the quantity already sold from the batch.
type QuantityBelowSoldError struct {
	BatchID     uuid.UUID
	BatchNumber string
	NewQuantity int
	Sold        int
}

func (e *QuantityBelowSoldError) Error() string {
	return fmt.Sprintf("batch %s: new imported quantity %d is below cumulative sold quantity %d",
		e.BatchNumber, e.NewQuantity, e.Sold)
}

// DuplicateBatchNumberError is returned on a batch-number uniqueness violation.
type DuplicateBatchNumberError struct {
	BatchNumber string
}

func (e *DuplicateBatchNumberError) Error() string {
	return fmt.Sprintf("batch number %q already exists", e.BatchNumber)
}

// BatchInUseError blocks deletion of a batch still referenced by challan
// items, invoice items, or active reservations.
type BatchInUseError struct {
	BatchID     uuid.UUID
	BatchNumber string
	Reason      string
}

func (e *BatchInUseError) Error() string {
	return fmt.Sprintf("batch %s cannot be deleted: %s", e.BatchNumber, e.Reason)
}

// InvalidChargeConfigError is returned for unusable cost inputs, e.g. a zero
// exchange rate with a non-zero USD price.
type InvalidChargeConfigError struct {
	Reason string
}

func (e *InvalidChargeConfigError) Error() string {
	return "invalid charge configuration: " + e.Reason
}
