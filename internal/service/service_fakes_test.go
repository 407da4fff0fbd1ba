package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes backing the service tests. They keep the same
// copy-on-read / write-back-on-save contract as the gorm implementations so
// the services' mutate-then-persist flow is exercised for real.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeSequenceRepo struct{}

func (fakeSequenceRepo) Lock(ctx context.Context, key string) error { return nil }

type fakeStore struct {
	clock        time.Time
	batches      map[uuid.UUID]*model.Batch
	reservations []*model.StockReservation
	orders       map[uuid.UUID]*model.SalesOrder
	orderItems   []*model.SalesOrderItem
	challans     map[uuid.UUID]*model.DeliveryChallan
	ledger       []*model.InventoryTransaction
	requirements []*model.ImportRequirement
	customers    map[uuid.UUID]*model.Customer
	products     map[uuid.UUID]*model.Product
	audits       []*model.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		batches:   make(map[uuid.UUID]*model.Batch),
		orders:    make(map[uuid.UUID]*model.SalesOrder),
		challans:  make(map[uuid.UUID]*model.DeliveryChallan),
		customers: make(map[uuid.UUID]*model.Customer),
		products:  make(map[uuid.UUID]*model.Product),
	}
}

// tick returns a strictly increasing timestamp so created_at ordering is
// deterministic without sleeping.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) addBatch(b model.Batch) *model.Batch {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.IsActive = true
	stored := b
	s.batches[stored.ID] = &stored
	return &stored
}

func (s *fakeStore) addOrder(o model.SalesOrder, items ...model.SalesOrderItem) (*model.SalesOrder, []*model.SalesOrderItem) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	stored := o
	stored.Items = nil
	s.orders[stored.ID] = &stored

	added := make([]*model.SalesOrderItem, 0, len(items))
	for _, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.SalesOrderID = stored.ID
		copied := it
		s.orderItems = append(s.orderItems, &copied)
		added = append(added, &copied)
	}
	return &stored, added
}

func (s *fakeStore) addReservation(orderID, batchID uuid.UUID, qty int) *model.StockReservation {
	res := &model.StockReservation{
		ID:           uuid.New(),
		BatchID:      batchID,
		SalesOrderID: orderID,
		Quantity:     qty,
		Status:       model.ReservationActive,
		CreatedAt:    s.tick(),
	}
	s.reservations = append(s.reservations, res)
	return res
}

func (s *fakeStore) addChallan(c model.DeliveryChallan) *model.DeliveryChallan {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	for i := range c.Items {
		if c.Items[i].ID == uuid.Nil {
			c.Items[i].ID = uuid.New()
		}
		c.Items[i].ChallanID = c.ID
	}
	stored := c
	s.challans[stored.ID] = &stored
	return &stored
}

func (s *fakeStore) itemsOf(orderID uuid.UUID) []model.SalesOrderItem {
	var items []model.SalesOrderItem
	for _, it := range s.orderItems {
		if it.SalesOrderID == orderID {
			items = append(items, *it)
		}
	}
	return items
}

func (s *fakeStore) activeReservations(orderID uuid.UUID) []*model.StockReservation {
	var active []*model.StockReservation
	for _, r := range s.reservations {
		if r.SalesOrderID == orderID && r.Status == model.ReservationActive {
			active = append(active, r)
		}
	}
	return active
}

// --- batch repository ---

type fakeBatchRepo struct{ store *fakeStore }

func (r *fakeBatchRepo) Create(ctx context.Context, batch *model.Batch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	stored := *batch
	r.store.batches[stored.ID] = &stored
	return nil
}

func (r *fakeBatchRepo) Save(ctx context.Context, batch *model.Batch) error {
	stored := *batch
	r.store.batches[stored.ID] = &stored
	return nil
}

func (r *fakeBatchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.store.batches, id)
	return nil
}

func (r *fakeBatchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	b, ok := r.store.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBatchRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBatchRepo) FindByNumber(ctx context.Context, number string) (*model.Batch, error) {
	for _, b := range r.store.batches {
		if b.BatchNumber == number {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBatchRepo) ListActiveByProductForUpdate(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	for _, b := range r.store.batches {
		if b.ProductID == productID && b.IsActive {
			batches = append(batches, *b)
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].ImportDate.Equal(batches[j].ImportDate) {
			return batches[i].ImportDate.Before(batches[j].ImportDate)
		}
		return batches[i].ID.String() < batches[j].ID.String()
	})
	return batches, nil
}

func (r *fakeBatchRepo) List(ctx context.Context, page, limit int, productID *uuid.UUID) ([]model.Batch, int64, error) {
	var batches []model.Batch
	for _, b := range r.store.batches {
		if productID == nil || b.ProductID == *productID {
			batches = append(batches, *b)
		}
	}
	return batches, int64(len(batches)), nil
}

func (r *fakeBatchRepo) UpdateQuantities(ctx context.Context, id uuid.UUID, currentStock, reservedStock int) error {
	b, ok := r.store.batches[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.CurrentStock = currentStock
	b.ReservedStock = reservedStock
	return nil
}

func (r *fakeBatchRepo) StockSummaryByProduct(ctx context.Context, productID uuid.UUID) (int, int, error) {
	current, reserved := 0, 0
	for _, b := range r.store.batches {
		if b.ProductID == productID {
			current += b.CurrentStock
			reserved += b.ReservedStock
		}
	}
	return current, reserved, nil
}

// --- reservation repository ---

type fakeReservationRepo struct{ store *fakeStore }

func (r *fakeReservationRepo) Create(ctx context.Context, res *model.StockReservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.CreatedAt = r.store.tick()
	stored := *res
	r.store.reservations = append(r.store.reservations, &stored)
	return nil
}

func (r *fakeReservationRepo) Save(ctx context.Context, res *model.StockReservation) error {
	for _, stored := range r.store.reservations {
		if stored.ID == res.ID {
			*stored = *res
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeReservationRepo) filter(match func(*model.StockReservation) bool, newestFirst bool) []model.StockReservation {
	var out []model.StockReservation
	for _, res := range r.store.reservations {
		if match(res) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *fakeReservationRepo) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	return r.filter(func(res *model.StockReservation) bool {
		return res.SalesOrderID == orderID && res.Status == model.ReservationActive
	}, false), nil
}

func (r *fakeReservationRepo) FindActiveByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	return r.FindActiveByOrder(ctx, orderID)
}

func (r *fakeReservationRepo) ListActiveByOrderAndBatchForUpdate(ctx context.Context, orderID, batchID uuid.UUID) ([]model.StockReservation, error) {
	return r.filter(func(res *model.StockReservation) bool {
		return res.SalesOrderID == orderID && res.BatchID == batchID && res.Status == model.ReservationActive
	}, false), nil
}

func (r *fakeReservationRepo) ListActiveByBatchForUpdate(ctx context.Context, batchID uuid.UUID) ([]model.StockReservation, error) {
	return r.filter(func(res *model.StockReservation) bool {
		return res.BatchID == batchID && res.Status == model.ReservationActive
	}, true), nil
}

func (r *fakeReservationRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	return r.filter(func(res *model.StockReservation) bool {
		return res.SalesOrderID == orderID
	}, false), nil
}

// --- sales order repository ---

type fakeOrderRepo struct{ store *fakeStore }

func (r *fakeOrderRepo) Create(ctx context.Context, order *model.SalesOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	items := order.Items
	stored := *order
	stored.Items = nil
	r.store.orders[stored.ID] = &stored
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].SalesOrderID = stored.ID
		copied := items[i]
		r.store.orderItems = append(r.store.orderItems, &copied)
	}
	order.Items = items
	return nil
}

func (r *fakeOrderRepo) Save(ctx context.Context, order *model.SalesOrder) error {
	stored, ok := r.store.orders[order.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *order
	cp.Items = nil
	*stored = cp
	return nil
}

func (r *fakeOrderRepo) SaveItem(ctx context.Context, item *model.SalesOrderItem) error {
	for _, stored := range r.store.orderItems {
		if stored.ID == item.ID {
			*stored = *item
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []model.SalesOrderItem) error {
	kept := r.store.orderItems[:0]
	for _, it := range r.store.orderItems {
		if it.SalesOrderID != orderID {
			kept = append(kept, it)
		}
	}
	r.store.orderItems = kept
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].SalesOrderID = orderID
		copied := items[i]
		r.store.orderItems = append(r.store.orderItems, &copied)
	}
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	cp.Items = r.store.itemsOf(id)
	return &cp, nil
}

func (r *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeOrderRepo) FindItemByID(ctx context.Context, id uuid.UUID) (*model.SalesOrderItem, error) {
	for _, it := range r.store.orderItems {
		if it.ID == id {
			cp := *it
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) List(ctx context.Context, page, limit int, status string, customerID *uuid.UUID) ([]model.SalesOrder, int64, error) {
	var orders []model.SalesOrder
	for _, o := range r.store.orders {
		orders = append(orders, *o)
	}
	return orders, int64(len(orders)), nil
}

func (r *fakeOrderRepo) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	for _, o := range r.store.orders {
		if strings.HasPrefix(o.OrderNo, prefix) {
			count++
		}
	}
	return count, nil
}

// --- challan repository ---

type fakeChallanRepo struct{ store *fakeStore }

func (r *fakeChallanRepo) Create(ctx context.Context, challan *model.DeliveryChallan) error {
	if challan.ID == uuid.Nil {
		challan.ID = uuid.New()
	}
	for i := range challan.Items {
		if challan.Items[i].ID == uuid.Nil {
			challan.Items[i].ID = uuid.New()
		}
		challan.Items[i].ChallanID = challan.ID
	}
	stored := *challan
	stored.Items = append([]model.DeliveryChallanItem(nil), challan.Items...)
	r.store.challans[stored.ID] = &stored
	return nil
}

func (r *fakeChallanRepo) Save(ctx context.Context, challan *model.DeliveryChallan) error {
	stored, ok := r.store.challans[challan.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *challan
	cp.Items = append([]model.DeliveryChallanItem(nil), challan.Items...)
	*stored = cp
	return nil
}

func (r *fakeChallanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.store.challans, id)
	return nil
}

func (r *fakeChallanRepo) ReplaceItems(ctx context.Context, challanID uuid.UUID, items []model.DeliveryChallanItem) error {
	stored, ok := r.store.challans[challanID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].ChallanID = challanID
	}
	stored.Items = append([]model.DeliveryChallanItem(nil), items...)
	return nil
}

func (r *fakeChallanRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DeliveryChallan, error) {
	c, ok := r.store.challans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Items = append([]model.DeliveryChallanItem(nil), c.Items...)
	return &cp, nil
}

func (r *fakeChallanRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DeliveryChallan, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeChallanRepo) FindItemByID(ctx context.Context, id uuid.UUID) (*model.DeliveryChallanItem, error) {
	for _, c := range r.store.challans {
		for i := range c.Items {
			if c.Items[i].ID == id {
				cp := c.Items[i]
				return &cp, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChallanRepo) List(ctx context.Context, page, limit int, status string, orderID *uuid.UUID) ([]model.DeliveryChallan, int64, error) {
	var challans []model.DeliveryChallan
	for _, c := range r.store.challans {
		challans = append(challans, *c)
	}
	return challans, int64(len(challans)), nil
}

func (r *fakeChallanRepo) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	for _, c := range r.store.challans {
		if strings.HasPrefix(c.ChallanNo, prefix) {
			count++
		}
	}
	return count, nil
}

func (r *fakeChallanRepo) ExistsByBatch(ctx context.Context, batchID uuid.UUID) (bool, error) {
	for _, c := range r.store.challans {
		for _, it := range c.Items {
			if it.BatchID == batchID {
				return true, nil
			}
		}
	}
	return false, nil
}

// --- inventory transaction repository ---

type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = r.store.tick()
	stored := *tx
	r.store.ledger = append(r.store.ledger, &stored)
	return nil
}

func (r *fakeLedgerRepo) Save(ctx context.Context, tx *model.InventoryTransaction) error {
	for _, stored := range r.store.ledger {
		if stored.ID == tx.ID {
			*stored = *tx
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeLedgerRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.InventoryTransaction, error) {
	var out []model.InventoryTransaction
	for _, tx := range r.store.ledger {
		if tx.BatchID != nil && *tx.BatchID == batchID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) FindPurchaseByBatch(ctx context.Context, batchID uuid.UUID) (*model.InventoryTransaction, error) {
	for _, tx := range r.store.ledger {
		if tx.BatchID != nil && *tx.BatchID == batchID && tx.Type == model.TxTypePurchase {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLedgerRepo) DeleteByBatch(ctx context.Context, batchID uuid.UUID) error {
	kept := r.store.ledger[:0]
	for _, tx := range r.store.ledger {
		if tx.BatchID == nil || *tx.BatchID != batchID {
			kept = append(kept, tx)
		}
	}
	r.store.ledger = kept
	return nil
}

// --- import requirement repository ---

type fakeRequirementRepo struct{ store *fakeStore }

func (r *fakeRequirementRepo) Create(ctx context.Context, req *model.ImportRequirement) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	stored := *req
	r.store.requirements = append(r.store.requirements, &stored)
	return nil
}

func (r *fakeRequirementRepo) Save(ctx context.Context, req *model.ImportRequirement) error {
	for _, stored := range r.store.requirements {
		if stored.ID == req.ID {
			*stored = *req
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRequirementRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ImportRequirement, error) {
	for _, req := range r.store.requirements {
		if req.ID == id {
			cp := *req
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRequirementRepo) List(ctx context.Context, page, limit int, status string, productID *uuid.UUID) ([]model.ImportRequirement, int64, error) {
	var out []model.ImportRequirement
	for _, req := range r.store.requirements {
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRequirementRepo) CancelOpenByOrder(ctx context.Context, orderID uuid.UUID) error {
	for _, req := range r.store.requirements {
		if req.SalesOrderID != nil && *req.SalesOrderID == orderID && req.Status == model.RequirementOpen {
			req.Status = model.RequirementCancelled
		}
	}
	return nil
}

// --- customer / product / audit repositories ---

type fakeCustomerRepo struct{ store *fakeStore }

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	stored := *customer
	r.store.customers[stored.ID] = &stored
	return nil
}

func (r *fakeCustomerRepo) Update(ctx context.Context, customer *model.Customer) error {
	stored := *customer
	r.store.customers[stored.ID] = &stored
	return nil
}

func (r *fakeCustomerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.store.customers, id)
	return nil
}

func (r *fakeCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.store.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error) {
	var out []model.Customer
	for _, c := range r.store.customers {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

type fakeProductRepo struct{ store *fakeStore }

func (r *fakeProductRepo) Create(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	stored := *product
	r.store.products[stored.ID] = &stored
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *model.Product) error {
	stored := *product
	r.store.products[stored.ID] = &stored
	return nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	for _, p := range r.store.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.store.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

type fakeAuditRepo struct{ store *fakeStore }

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	stored := *entry
	r.store.audits = append(r.store.audits, &stored)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, a := range r.store.audits {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}
