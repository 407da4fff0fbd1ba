package stock

import (
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(txType string, qty int) model.InventoryTransaction {
	return model.InventoryTransaction{Type: txType, Quantity: qty}
}

func TestSumTransactionsEqualsCurrentStock(t *testing.T) {
	txs := []model.InventoryTransaction{
		tx(model.TxTypePurchase, 1000),
		tx(model.TxTypeSale, -300),
		tx(model.TxTypeAdjustment, -20),
		tx(model.TxTypeSale, -180),
		tx(model.TxTypeAdjustment, 50),
	}

	assert.Equal(t, 550, SumTransactions(txs))
}

func TestSoldQuantity(t *testing.T) {
	txs := []model.InventoryTransaction{
		tx(model.TxTypePurchase, 1000),
		tx(model.TxTypeSale, -300),
		tx(model.TxTypeAdjustment, -100), // not a sale
		tx(model.TxTypeSale, -150),
	}

	assert.Equal(t, 450, SoldQuantity(txs))
}

func TestSumAfterPurchaseRewrite(t *testing.T) {
	// Editing imported quantity rewrites the originating purchase row;
	// the balance must be re-derived from the ledger, not patched.
	txs := []model.InventoryTransaction{
		tx(model.TxTypePurchase, 1000),
		tx(model.TxTypeSale, -600),
	}
	require.Equal(t, 400, SumTransactions(txs))

	txs[0].Quantity = 800 // imported quantity lowered 1000 -> 800
	assert.Equal(t, 200, SumTransactions(txs))

	txs[0].Quantity = 1500 // raised above the original
	assert.Equal(t, 900, SumTransactions(txs))
}

func TestStockCardRunningBalance(t *testing.T) {
	txs := []model.InventoryTransaction{
		tx(model.TxTypePurchase, 500),
		tx(model.TxTypeSale, -200),
		tx(model.TxTypeAdjustment, 30),
	}

	card := StockCard(txs)
	require.Len(t, card, 3)
	assert.Equal(t, 500, card[0].Balance)
	assert.Equal(t, 300, card[1].Balance)
	assert.Equal(t, 330, card[2].Balance)
	assert.Equal(t, SumTransactions(txs), card[2].Balance)
}

func TestStockCardEmpty(t *testing.T) {
	assert.Empty(t, StockCard(nil))
}
