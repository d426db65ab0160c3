package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memProduct struct {
	stock         int
	purchasePrice float64
}

type memStore struct {
	products       map[int64]*memProduct
	counterparties map[Kind]map[int64]bool
	orders         map[Kind]map[int64]*Order
	lines          map[Kind]map[int64][]Line
	nextOrderID    int64
	nextLineID     int64
}

func newMemStore() *memStore {
	return &memStore{
		products: map[int64]*memProduct{},
		counterparties: map[Kind]map[int64]bool{
			KindPurchase: {},
			KindSale:     {},
		},
		orders: map[Kind]map[int64]*Order{
			KindPurchase: {},
			KindSale:     {},
		},
		lines: map[Kind]map[int64][]Line{
			KindPurchase: {},
			KindSale:     {},
		},
		nextOrderID: 1,
		nextLineID:  1,
	}
}

func (s *memStore) snapshot() *memStore {
	clone := newMemStore()
	clone.nextOrderID = s.nextOrderID
	clone.nextLineID = s.nextLineID
	for id, p := range s.products {
		cp := *p
		clone.products[id] = &cp
	}
	for kind, m := range s.counterparties {
		for id, active := range m {
			clone.counterparties[kind][id] = active
		}
	}
	for kind, m := range s.orders {
		for id, o := range m {
			co := *o
			clone.orders[kind][id] = &co
		}
	}
	for kind, m := range s.lines {
		for id, ls := range m {
			clone.lines[kind][id] = append([]Line(nil), ls...)
		}
	}
	return clone
}

// memRepository backs the service with in-memory state. WithTx snapshots the
// store before the callback and restores it on error, mirroring a database
// rollback.
type memRepository struct {
	store *memStore
}

func newMemRepository() *memRepository {
	return &memRepository{store: newMemStore()}
}

func (r *memRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	backup := r.store.snapshot()
	if err := fn(ctx, &memTx{store: r.store}); err != nil {
		r.store = backup
		return err
	}
	return nil
}

func (r *memRepository) Get(_ context.Context, kind Kind, id int64) (*Order, error) {
	order, ok := r.store.orders[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *order
	copied.Lines = append([]Line(nil), r.store.lines[kind][id]...)
	return &copied, nil
}

func (r *memRepository) Lines(_ context.Context, kind Kind, orderID int64) ([]Line, error) {
	return append([]Line(nil), r.store.lines[kind][orderID]...), nil
}

func (r *memRepository) List(_ context.Context, kind Kind, filter ListFilter) ([]OrderWithCounterparty, int, error) {
	var rows []OrderWithCounterparty
	for _, order := range r.store.orders[kind] {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.CounterpartyID != nil && order.CounterpartyID != *filter.CounterpartyID {
			continue
		}
		rows = append(rows, OrderWithCounterparty{Order: *order})
	}
	return rows, len(rows), nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) CounterpartyActive(_ context.Context, kind Kind, id int64) (bool, error) {
	return t.store.counterparties[kind][id], nil
}

func (t *memTx) InsertOrder(_ context.Context, order Order) (int64, error) {
	id := t.store.nextOrderID
	t.store.nextOrderID++
	order.ID = id
	t.store.orders[order.Kind][id] = &order
	return id, nil
}

func (t *memTx) InsertLine(_ context.Context, kind Kind, line Line) error {
	line.ID = t.store.nextLineID
	t.store.nextLineID++
	t.store.lines[kind][line.OrderID] = append(t.store.lines[kind][line.OrderID], line)
	return nil
}

func (t *memTx) GetForUpdate(_ context.Context, kind Kind, id int64) (*Order, error) {
	order, ok := t.store.orders[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (t *memTx) GetLines(_ context.Context, kind Kind, orderID int64) ([]Line, error) {
	return append([]Line(nil), t.store.lines[kind][orderID]...), nil
}

func (t *memTx) UpdateHeader(_ context.Context, kind Kind, id int64, counterpartyID int64, total float64, order Order) error {
	existing, ok := t.store.orders[kind][id]
	if !ok {
		return ErrNotFound
	}
	existing.CounterpartyID = counterpartyID
	existing.Total = total
	existing.OrderDate = order.OrderDate
	existing.InvoiceNumber = order.InvoiceNumber
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, kind Kind, id int64, status Status, reason *string) error {
	existing, ok := t.store.orders[kind][id]
	if !ok {
		return ErrNotFound
	}
	existing.Status = status
	existing.VoidReason = reason
	return nil
}

func (t *memTx) DeleteLines(_ context.Context, kind Kind, orderID int64) error {
	delete(t.store.lines[kind], orderID)
	return nil
}

func (t *memTx) DeleteOrder(_ context.Context, kind Kind, id int64) error {
	delete(t.store.orders[kind], id)
	return nil
}

func (t *memTx) ProductStock(_ context.Context, productID int64) (int, bool, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return 0, false, nil
	}
	return p.stock, true, nil
}

func (t *memTx) AddStock(_ context.Context, productID int64, qty int) error {
	p, ok := t.store.products[productID]
	if !ok {
		return errors.New("unknown product")
	}
	p.stock += qty
	return nil
}

func (t *memTx) RemoveStock(_ context.Context, productID int64, qty int) (bool, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return false, errors.New("unknown product")
	}
	if p.stock < qty {
		return false, nil
	}
	p.stock -= qty
	return true, nil
}

func (t *memTx) RemoveStockFloored(_ context.Context, productID int64, qty int) error {
	p, ok := t.store.products[productID]
	if !ok {
		return errors.New("unknown product")
	}
	p.stock -= qty
	if p.stock < 0 {
		p.stock = 0
	}
	return nil
}

func (t *memTx) SetPurchasePrice(_ context.Context, productID int64, price float64) error {
	p, ok := t.store.products[productID]
	if !ok {
		return errors.New("unknown product")
	}
	p.purchasePrice = price
	return nil
}

func newTestService() (*Service, *memRepository) {
	repo := newMemRepository()
	repo.store.counterparties[KindPurchase][1] = true
	repo.store.counterparties[KindSale][1] = true
	repo.store.counterparties[KindSale][9] = false
	return NewService(repo, nil, nil), repo
}

func stockOf(t *testing.T, repo *memRepository, productID int64) int {
	t.Helper()
	p, ok := repo.store.products[productID]
	require.True(t, ok)
	return p.stock
}

func TestCreatePurchaseIncreasesStockAndPrice(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 5, purchasePrice: 2.0}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindPurchase,
		CounterpartyID: 1,
		Total:          30,
		Lines:          []LineInput{{ProductID: 10, Quantity: 6, UnitPrice: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, order.Status)
	require.Equal(t, 11, stockOf(t, repo, 10))
	require.Equal(t, 5.0, repo.store.products[10].purchasePrice)
	require.Len(t, order.Lines, 1)
	require.Equal(t, 30.0, order.Lines[0].Subtotal)
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Total:          12,
		Lines:          []LineInput{{ProductID: 10, Quantity: 4, UnitPrice: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, 6, stockOf(t, repo, 10))
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 3}

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 5, UnitPrice: 3}},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(10), stockErr.ProductID)
	require.Equal(t, 5, stockErr.Requested)
	require.Equal(t, 3, stockErr.Available)
	require.Equal(t, 3, stockOf(t, repo, 10))
	require.Empty(t, repo.store.orders[KindSale])
}

func TestCreateRollsBackWhenMiddleLineFails(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 20}
	repo.store.products[11] = &memProduct{stock: 1}

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines: []LineInput{
			{ProductID: 10, Quantity: 5, UnitPrice: 2},
			{ProductID: 11, Quantity: 3, UnitPrice: 2},
		},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// The first line must not survive the failed second line.
	require.Equal(t, 20, stockOf(t, repo, 10))
	require.Equal(t, 1, stockOf(t, repo, 11))
	require.Empty(t, repo.store.orders[KindSale])
	require.Empty(t, repo.store.lines[KindSale])
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 99, Quantity: 1, UnitPrice: 1}},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCreateRejectsInactiveCounterparty(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}
	_, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 9,
		Lines:          []LineInput{{ProductID: 10, Quantity: 1, UnitPrice: 1}},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, 10, stockOf(t, repo, 10))
}

func TestPurchaseCannotBeCreatedPending(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 0}
	_, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindPurchase,
		CounterpartyID: 1,
		Status:         StatusPending,
		Lines:          []LineInput{{ProductID: 10, Quantity: 1, UnitPrice: 1}},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestVoidPurchaseReversesStock(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindPurchase,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 4, UnitPrice: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 14, stockOf(t, repo, 10))

	voided, err := svc.Void(context.Background(), KindPurchase, order.ID, "wrong delivery", 7)
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
	require.NotNil(t, voided.VoidReason)
	require.Equal(t, 10, stockOf(t, repo, 10))
}

func TestVoidPurchaseFloorsAtZero(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 0}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindPurchase,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 11, UnitPrice: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 11, stockOf(t, repo, 10))

	// Everything delivered was sold off before the void.
	repo.store.products[10].stock = 4

	_, err = svc.Void(context.Background(), KindPurchase, order.ID, "", 7)
	require.NoError(t, err)
	require.Equal(t, 0, stockOf(t, repo, 10))
}

func TestVoidSaleRestoresStock(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 4, UnitPrice: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, repo, 10))

	_, err = svc.Void(context.Background(), KindSale, order.ID, "customer cancelled", 7)
	require.NoError(t, err)
	require.Equal(t, 10, stockOf(t, repo, 10))
}

func TestVoidAlreadyVoided(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 2, UnitPrice: 3}},
	})
	require.NoError(t, err)
	_, err = svc.Void(context.Background(), KindSale, order.ID, "", 7)
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), KindSale, order.ID, "", 7)
	require.ErrorIs(t, err, ErrAlreadyVoided)
	require.Equal(t, 10, stockOf(t, repo, 10))
}

func TestCompletedCannotReturnToPending(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Status:         StatusCompleted,
		Lines:          []LineInput{{ProductID: 10, Quantity: 2, UnitPrice: 3}},
	})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), KindSale, order.ID, StatusPending, "", 7)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCompletingPendingSaleLeavesStockAlone(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 4, UnitPrice: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, repo, 10))

	completed, err := svc.ChangeStatus(context.Background(), KindSale, order.ID, StatusCompleted, "", 7)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.Equal(t, 6, stockOf(t, repo, 10))
}

func TestReactivateVoidedSaleRevalidatesStock(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 5, UnitPrice: 3}},
	})
	require.NoError(t, err)
	_, err = svc.Void(context.Background(), KindSale, order.ID, "", 7)
	require.NoError(t, err)
	require.Equal(t, 10, stockOf(t, repo, 10))

	// Stock drained while the sale sat voided.
	repo.store.products[10].stock = 3

	_, err = svc.ChangeStatus(context.Background(), KindSale, order.ID, StatusPending, "", 7)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 3, stockOf(t, repo, 10))

	repo.store.products[10].stock = 8
	restored, err := svc.ChangeStatus(context.Background(), KindSale, order.ID, StatusPending, "", 7)
	require.NoError(t, err)
	require.Equal(t, StatusPending, restored.Status)
	require.Equal(t, 3, stockOf(t, repo, 10))
}

func TestEditPendingSaleAppliesNetEffect(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 20}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Total:          15,
		Lines:          []LineInput{{ProductID: 10, Quantity: 5, UnitPrice: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 15, stockOf(t, repo, 10))

	edited, err := svc.Edit(context.Background(), KindSale, order.ID, UpdateOrderInput{
		CounterpartyID: 1,
		Total:          24,
		Lines:          []LineInput{{ProductID: 10, Quantity: 8, UnitPrice: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 12, stockOf(t, repo, 10))
	require.Len(t, edited.Lines, 1)
	require.Equal(t, 8, edited.Lines[0].Quantity)
	require.Equal(t, 24.0, edited.Lines[0].Subtotal)
}

func TestEditRollsBackWhenNewLinesExceedStock(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 5, UnitPrice: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 5, stockOf(t, repo, 10))

	// 5 reversed + 10 available = 10, so 11 must fail and leave everything as-is.
	_, err = svc.Edit(context.Background(), KindSale, order.ID, UpdateOrderInput{
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 11, UnitPrice: 3}},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 5, stockOf(t, repo, 10))

	kept, err := svc.Get(context.Background(), KindSale, order.ID)
	require.NoError(t, err)
	require.Len(t, kept.Lines, 1)
	require.Equal(t, 5, kept.Lines[0].Quantity)
}

func TestEditRejectedForNonPendingOrder(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Status:         StatusCompleted,
		Lines:          []LineInput{{ProductID: 10, Quantity: 2, UnitPrice: 3}},
	})
	require.NoError(t, err)

	_, err = svc.Edit(context.Background(), KindSale, order.ID, UpdateOrderInput{
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 1, UnitPrice: 3}},
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, 8, stockOf(t, repo, 10))
}

func TestDeleteOnlyVoidedOrders(t *testing.T) {
	svc, repo := newTestService()
	repo.store.products[10] = &memProduct{stock: 10}

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Kind:           KindSale,
		CounterpartyID: 1,
		Lines:          []LineInput{{ProductID: 10, Quantity: 2, UnitPrice: 3}},
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), KindSale, order.ID, 7)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Void(context.Background(), KindSale, order.ID, "", 7)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), KindSale, order.ID, 7))
	_, err = svc.Get(context.Background(), KindSale, order.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 10, stockOf(t, repo, 10))
}

func TestGetUnknownOrder(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Get(context.Background(), KindSale, 404)
	require.ErrorIs(t, err, ErrNotFound)
}
