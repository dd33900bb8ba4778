package application

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	catalog "github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/internal/order/domain"
	"github.com/dmehra2102/watchstore/pkg/outbox"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

// memStore is an in-memory database. Transactions are serialised by mu and
// rolled back by restoring a snapshot.
type memStore struct {
	mu          sync.Mutex
	products    map[uuid.UUID]catalog.Product
	orders      map[uuid.UUID]domain.Order
	transitions map[uuid.UUID][]domain.Transition
	events      []outbox.Event
	users       map[uuid.UUID]domain.UserSummary

	// duplicates makes the next n inserts report a taken order number.
	duplicates int

	// beforeReserve runs once before the first Reserve of a transaction.
	beforeReserve func(s *memStore)

	txCount int
}

func newMemStore(products ...catalog.Product) *memStore {
	s := &memStore{
		products:    map[uuid.UUID]catalog.Product{},
		orders:      map[uuid.UUID]domain.Order{},
		transitions: map[uuid.UUID][]domain.Transition{},
		users:       map[uuid.UUID]domain.UserSummary{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

type snapshot struct {
	products    map[uuid.UUID]catalog.Product
	orders      map[uuid.UUID]domain.Order
	transitions map[uuid.UUID][]domain.Transition
	events      int
}

func (s *memStore) snapshot() snapshot {
	return snapshot{
		products:    maps.Clone(s.products),
		orders:      maps.Clone(s.orders),
		transitions: maps.Clone(s.transitions),
		events:      len(s.events),
	}
}

func (s *memStore) restore(snap snapshot) {
	s.products = snap.products
	s.orders = snap.orders
	s.transitions = snap.transitions
	s.events = s.events[:snap.events]
}

func (s *memStore) stock(id uuid.UUID) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	snap := s.snapshot()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memTx struct {
	s        *memStore
	reserved bool
}

func (t *memTx) Stock() StockStore { return t }
func (t *memTx) Orders() OrderWriter { return t }
func (t *memTx) Outbox() OutboxWriter { return t }

func (t *memTx) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error) {
	out := map[uuid.UUID]catalog.Product{}
	for _, id := range ids {
		if p, ok := t.s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memTx) Reserve(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	if !t.reserved {
		t.reserved = true
		if t.s.beforeReserve != nil {
			t.s.beforeReserve(t.s)
		}
	}
	p, ok := t.s.products[id]
	if !ok {
		return false, nil
	}
	if err := p.Take(qty); err != nil {
		return false, nil
	}
	t.s.products[id] = p
	return true, nil
}

func (t *memTx) Release(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	p, ok := t.s.products[id]
	if !ok {
		return false, nil
	}
	p.Restock(qty)
	t.s.products[id] = p
	return true, nil
}

func (t *memTx) Insert(_ context.Context, o domain.Order) error {
	if t.s.duplicates > 0 {
		t.s.duplicates--
		return ErrDuplicateOrderNumber
	}
	for _, existing := range t.s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}
	o.Items = slices.Clone(o.Items)
	t.s.orders[o.ID] = o
	return nil
}

func (t *memTx) GetForUpdate(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	o.History = nil
	return o, nil
}

func (t *memTx) UpdateStatus(_ context.Context, o domain.Order) error {
	stored := t.s.orders[o.ID]
	stored.Status = o.Status
	stored.TrackingNumber = o.TrackingNumber
	stored.Notes = o.Notes
	stored.UpdatedAt = o.UpdatedAt
	t.s.orders[o.ID] = stored
	return nil
}

func (t *memTx) AppendTransition(_ context.Context, orderID uuid.UUID, tr domain.Transition) error {
	t.s.transitions[orderID] = append(slices.Clone(t.s.transitions[orderID]), tr)
	return nil
}

func (t *memTx) Enqueue(_ context.Context, ev outbox.Event) error {
	t.s.events = append(t.s.events, ev)
	return nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	if u, ok := s.users[o.UserID]; ok {
		o.User = &u
	}
	o.History = slices.Clone(s.transitions[id])
	return o, nil
}

func (s *memStore) List(_ context.Context, f ListFilter, page pagination.Request) ([]domain.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.Order
	for _, o := range s.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, o)
	}
	slices.SortFunc(matched, func(a, b domain.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	total := int64(len(matched))
	start := min(page.Offset(), len(matched))
	end := min(start+page.Limit, len(matched))
	return matched[start:end], total, nil
}

func (s *memStore) Stats(context.Context) (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.Stats{TotalOrders: int64(len(s.orders)), OrdersByStatus: map[domain.Status]int64{}}
	for _, o := range s.orders {
		st.OrdersByStatus[o.Status]++
	}
	return st, nil
}

func (s *memStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}
