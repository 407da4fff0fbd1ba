package stock

import (
	"sort"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
)

// Allocation is one (batch, quantity) pick of an allocation plan.
type Allocation struct {
	BatchID     uuid.UUID `json:"batch_id"`
	BatchNumber string    `json:"batch_number"`
	Quantity    int       `json:"quantity"`
}

// AllocationPlan is the result of FIFO batch selection. Shortage is not an
// error: a partial fill plus the unmet remainder is a first-class outcome the
// fulfillment workflow turns into an import requirement.
type AllocationPlan struct {
	Allocations []Allocation `json:"allocations"`
	Allocated   int          `json:"allocated"`
	Shortage    int          `json:"shortage"`
}

// SelectBatches greedily fills requiredQty from the given batches, oldest
// import date first (ties broken by batch id for determinism). Expired,
// inactive and free-stock-exhausted batches are skipped. ownHold adds back
// quantities the caller already holds on a batch (its own prior reservation)
// so re-deriving an order's allocation does not spuriously report shortage.
func SelectBatches(batches []model.Batch, requiredQty int, asOf time.Time, ownHold map[uuid.UUID]int) AllocationPlan {
	candidates := make([]model.Batch, 0, len(batches))
	for _, b := range batches {
		if !b.IsActive || b.IsExpired(asOf) {
			continue
		}
		if freeStock(b, ownHold) <= 0 {
			continue
		}
		candidates = append(candidates, b)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].ImportDate.Equal(candidates[j].ImportDate) {
			return candidates[i].ImportDate.Before(candidates[j].ImportDate)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	plan := AllocationPlan{Allocations: make([]Allocation, 0, len(candidates))}
	remaining := requiredQty
	for _, b := range candidates {
		if remaining <= 0 {
			break
		}
		take := freeStock(b, ownHold)
		if take > remaining {
			take = remaining
		}
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
		})
		plan.Allocated += take
		remaining -= take
	}
	plan.Shortage = remaining
	return plan
}

func freeStock(b model.Batch, ownHold map[uuid.UUID]int) int {
	free := b.FreeStock()
	if ownHold != nil {
		free += ownHold[b.ID]
	}
	return free
}
