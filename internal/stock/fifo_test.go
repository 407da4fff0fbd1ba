package stock

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatch(number string, importDate time.Time, current, reserved int) model.Batch {
	return model.Batch{
		ID:            uuid.New(),
		BatchNumber:   number,
		ImportDate:    importDate,
		CurrentStock:  current,
		ReservedStock: reserved,
		IsActive:      true,
	}
}

func TestSelectBatchesOldestFirst(t *testing.T) {
	now := time.Now()
	old := testBatch("B-OLD", now.AddDate(0, -3, 0), 100, 0)
	mid := testBatch("B-MID", now.AddDate(0, -2, 0), 100, 0)
	new_ := testBatch("B-NEW", now.AddDate(0, -1, 0), 100, 0)

	// Shuffle input order to prove sorting decides.
	plan := SelectBatches([]model.Batch{new_, old, mid}, 250, now, nil)

	require.Len(t, plan.Allocations, 3)
	assert.Equal(t, "B-OLD", plan.Allocations[0].BatchNumber)
	assert.Equal(t, 100, plan.Allocations[0].Quantity)
	assert.Equal(t, "B-MID", plan.Allocations[1].BatchNumber)
	assert.Equal(t, 100, plan.Allocations[1].Quantity)
	assert.Equal(t, "B-NEW", plan.Allocations[2].BatchNumber)
	assert.Equal(t, 50, plan.Allocations[2].Quantity)
	assert.Equal(t, 250, plan.Allocated)
	assert.Zero(t, plan.Shortage)
}

func TestSelectBatchesExcludesExpired(t *testing.T) {
	now := time.Now()
	expired := testBatch("B-EXP", now.AddDate(0, -6, 0), 100, 0)
	past := now.AddDate(0, 0, -1)
	expired.ExpiryDate = &past
	fresh := testBatch("B-OK", now.AddDate(0, -1, 0), 100, 0)
	future := now.AddDate(0, 6, 0)
	fresh.ExpiryDate = &future

	plan := SelectBatches([]model.Batch{expired, fresh}, 50, now, nil)

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, "B-OK", plan.Allocations[0].BatchNumber)
}

func TestSelectBatchesExcludesExhaustedAndInactive(t *testing.T) {
	now := time.Now()
	empty := testBatch("B-EMPTY", now.AddDate(0, -3, 0), 0, 0)
	fullyReserved := testBatch("B-HELD", now.AddDate(0, -2, 0), 80, 80)
	archived := testBatch("B-ARCH", now.AddDate(0, -2, 0), 50, 0)
	archived.IsActive = false
	open := testBatch("B-OPEN", now.AddDate(0, -1, 0), 60, 20)

	plan := SelectBatches([]model.Batch{empty, fullyReserved, archived, open}, 100, now, nil)

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, "B-OPEN", plan.Allocations[0].BatchNumber)
	assert.Equal(t, 40, plan.Allocations[0].Quantity) // only free stock counts
	assert.Equal(t, 60, plan.Shortage)
}

func TestSelectBatchesShortageIsNotError(t *testing.T) {
	now := time.Now()
	only := testBatch("B-1", now.AddDate(0, -1, 0), 30, 0)

	plan := SelectBatches([]model.Batch{only}, 100, now, nil)

	assert.Equal(t, 30, plan.Allocated)
	assert.Equal(t, 70, plan.Shortage)
}

func TestSelectBatchesNoCandidates(t *testing.T) {
	plan := SelectBatches(nil, 10, time.Now(), nil)
	assert.Empty(t, plan.Allocations)
	assert.Equal(t, 10, plan.Shortage)
}

func TestSelectBatchesTieBrokenByID(t *testing.T) {
	now := time.Now()
	date := now.AddDate(0, -1, 0)
	a := testBatch("B-A", date, 10, 0)
	b := testBatch("B-B", date, 10, 0)

	first := a
	if b.ID.String() < a.ID.String() {
		first = b
	}

	plan := SelectBatches([]model.Batch{a, b}, 15, now, nil)
	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, first.ID, plan.Allocations[0].BatchID)
	assert.Equal(t, 10, plan.Allocations[0].Quantity)
	assert.Equal(t, 5, plan.Allocations[1].Quantity)
}

func TestSelectBatchesOwnHoldAddBack(t *testing.T) {
	now := time.Now()
	b := testBatch("B-1", now.AddDate(0, -1, 0), 100, 100)

	// All stock reserved — but 60 of it is the caller's own hold being
	// re-derived, so an equal-size request must not show shortage.
	plan := SelectBatches([]model.Batch{b}, 60, now, map[uuid.UUID]int{b.ID: 60})
	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, 60, plan.Allocations[0].Quantity)
	assert.Zero(t, plan.Shortage)

	// Without the add-back the same request is pure shortage.
	plan = SelectBatches([]model.Batch{b}, 60, now, nil)
	assert.Empty(t, plan.Allocations)
	assert.Equal(t, 60, plan.Shortage)
}

func TestSelectBatchesConcurrentHoldsCannotBothFit(t *testing.T) {
	// Two orders of 600 against a batch of 1000: whichever commits first
	// reserves 600, leaving 400 free — the second plan must show shortage.
	now := time.Now()
	b := testBatch("B-1000", now.AddDate(0, -1, 0), 1000, 0)

	first := SelectBatches([]model.Batch{b}, 600, now, nil)
	require.Zero(t, first.Shortage)
	b.ReservedStock += first.Allocated

	second := SelectBatches([]model.Batch{b}, 600, now, nil)
	assert.Equal(t, 400, second.Allocated)
	assert.Equal(t, 200, second.Shortage)
	assert.LessOrEqual(t, first.Allocated+second.Allocated, 1000)
}
