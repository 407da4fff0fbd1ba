package stock

import "backend/internal/model"

// SumTransactions returns the signed sum of ledger deltas — the authoritative
// current stock of a batch. After any edit to historical rows the cached
// balance must be re-derived from this, never trusted.
func SumTransactions(txs []model.InventoryTransaction) int {
	total := 0
	for _, t := range txs {
		total += t.Quantity
	}
	return total
}

// SoldQuantity returns the cumulative quantity sold from a batch, as a
// positive number. Sale deltas are negative in the ledger.
func SoldQuantity(txs []model.InventoryTransaction) int {
	sold := 0
	for _, t := range txs {
		if t.Type == model.TxTypeSale {
			sold -= t.Quantity
		}
	}
	return sold
}

// StockCardEntry is one ledger row with its running balance.
type StockCardEntry struct {
	Transaction model.InventoryTransaction `json:"transaction"`
	Balance     int                        `json:"balance"`
}

// StockCard projects the transaction log into running balances, in the order
// given (callers pass rows in commit order).
func StockCard(txs []model.InventoryTransaction) []StockCardEntry {
	entries := make([]StockCardEntry, 0, len(txs))
	balance := 0
	for _, t := range txs {
		balance += t.Quantity
		entries = append(entries, StockCardEntry{Transaction: t, Balance: balance})
	}
	return entries
}
