package booking

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/reservation"
)

// ----- in-memory fakes -----

type memCatalog struct {
	mu     sync.Mutex
	events map[uint64]model.Event
}

func newMemCatalog() *memCatalog { return &memCatalog{events: make(map[uint64]model.Event)} }

func (c *memCatalog) put(e model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[e.ID] = e
}

func (c *memCatalog) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

type memStore struct {
	mu    sync.Mutex
	next  uint64
	items map[uint64]map[uint64]model.BookingItem // userID -> eventID -> item
}

func newMemStore() *memStore { return &memStore{items: make(map[uint64]map[uint64]model.BookingItem)} }

func (s *memStore) Upsert(_ context.Context, item *model.BookingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[item.UserID] == nil {
		s.items[item.UserID] = make(map[uint64]model.BookingItem)
	}
	if prev, ok := s.items[item.UserID][item.EventID]; ok {
		item.ID = prev.ID
		item.CreatedAt = prev.CreatedAt
	} else {
		s.next++
		item.ID = s.next
		item.CreatedAt = time.Now().UTC()
	}
	item.UpdatedAt = time.Now().UTC()
	s.items[item.UserID][item.EventID] = *item
	return nil
}

func (s *memStore) GetByUserAndEvent(_ context.Context, userID, eventID uint64) (*model.BookingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[userID][eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (s *memStore) ListByUser(_ context.Context, userID uint64) ([]model.BookingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.BookingItem
	for _, item := range s.items[userID] {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Delete(_ context.Context, userID, eventID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[userID][eventID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items[userID], eventID)
	return nil
}

func (s *memStore) DeleteAll(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, userID)
	return nil
}

type memInventory struct {
	mu    sync.Mutex
	seats map[uint64]map[uint32]*model.Seat
}

func newMemInventory() *memInventory {
	return &memInventory{seats: make(map[uint64]map[uint32]*model.Seat)}
}

func (m *memInventory) create(eventID uint64, capacity uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[uint32]*model.Seat, capacity)
	for no := uint32(1); no <= capacity; no++ {
		set[no] = &model.Seat{EventID: eventID, SeatNo: no}
	}
	m.seats[eventID] = set
}

func (m *memInventory) Inventory(_ context.Context, eventID uint64) (*model.SeatInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.seats[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	inv := &model.SeatInventory{EventID: eventID}
	for _, s := range set {
		inv.Seats = append(inv.Seats, *s)
	}
	sort.Slice(inv.Seats, func(i, j int) bool { return inv.Seats[i].SeatNo < inv.Seats[j].SeatNo })
	return inv, nil
}

func (m *memInventory) Claim(_ context.Context, eventID, userID uint64, seatNos []uint32, at time.Time) ([]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.seats[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, no := range seatNos {
		if s, ok := set[no]; ok && !s.Reserved {
			uid, ts := userID, at
			s.Reserved = true
			s.ReservedBy = &uid
			s.ReservedAt = &ts
		}
	}
	var won []uint32
	for _, no := range seatNos {
		if s, ok := set[no]; ok && s.Reserved && s.ReservedBy != nil && *s.ReservedBy == userID {
			won = append(won, no)
		}
	}
	return won, nil
}

func (m *memInventory) Release(_ context.Context, eventID uint64, seatNos []uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.seats[eventID]
	if !ok {
		return nil
	}
	for _, no := range seatNos {
		if s, ok := set[no]; ok {
			s.Reserved = false
			s.ReservedBy = nil
			s.ReservedAt = nil
		}
	}
	return nil
}

func (m *memInventory) reserved(eventID uint64, no uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[eventID][no].Reserved
}

// ----- fixtures -----

const (
	userA = uint64(1)
	userB = uint64(2)
)

func seatModeAggregator(t *testing.T) (*Aggregator, *memCatalog, *memStore, *memInventory) {
	t.Helper()
	catalog := newMemCatalog()
	store := newMemStore()
	inv := newMemInventory()
	agg := NewAggregator(model.QuantitySeats, catalog, store, reservation.NewEngine(inv), inv)
	return agg, catalog, store, inv
}

func countModeAggregator(t *testing.T) (*Aggregator, *memCatalog, *memStore) {
	t.Helper()
	catalog := newMemCatalog()
	store := newMemStore()
	agg := NewAggregator(model.QuantityCount, catalog, store, nil, nil)
	return agg, catalog, store
}

// ----- count mode -----

func TestAddItem_CountExceedingCapacityFails(t *testing.T) {
	agg, catalog, store := countModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1500, Capacity: 4})
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.CountQuantity(5))
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)

	items, err := store.ListByUser(ctx, userA)
	require.NoError(t, err)
	assert.Empty(t, items, "failed add must leave the booking unchanged")
}

func TestAddItem_CountUpsertReplacesQuantity(t *testing.T) {
	agg, catalog, _ := countModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1500, Capacity: 10})
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.CountQuantity(2))
	require.NoError(t, err)
	_, err = agg.AddItem(ctx, userA, 7, model.CountQuantity(4))
	require.NoError(t, err)

	sum, err := agg.GetSummary(ctx, userA)
	require.NoError(t, err)
	require.Len(t, sum.Items, 1)
	assert.Equal(t, uint32(4), sum.Items[0].TicketCount)
	assert.Equal(t, uint64(4*1500), sum.TotalCents)
}

func TestGetSummary_TotalRecomputedFromCurrentPrices(t *testing.T) {
	agg, catalog, _ := countModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 10})
	catalog.put(model.Event{ID: 8, PriceCents: 250, Capacity: 10})
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.CountQuantity(3))
	require.NoError(t, err)
	_, err = agg.AddItem(ctx, userA, 8, model.CountQuantity(2))
	require.NoError(t, err)

	sum, err := agg.GetSummary(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, uint64(3*1000+2*250), sum.TotalCents)

	// A price change must be visible on the very next read.
	catalog.put(model.Event{ID: 7, PriceCents: 2000, Capacity: 10})
	sum, err = agg.GetSummary(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, uint64(3*2000+2*250), sum.TotalCents)
}

func TestAddItem_RejectsSeatShapeInCountMode(t *testing.T) {
	agg, catalog, _ := countModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 10})

	_, err := agg.AddItem(context.Background(), userA, 7, model.SeatQuantity([]uint32{1, 2}))
	assert.ErrorIs(t, err, repository.ErrValidation)
}

// ----- seat mode -----

func TestAddItem_SeatsStoresOnlyWonSeats(t *testing.T) {
	agg, catalog, _, inv := seatModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 3})
	inv.create(7, 3)
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{1, 2}))
	require.NoError(t, err)

	res, err := agg.AddItem(ctx, userB, 7, model.SeatQuantity([]uint32{2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, res.Reserved)
	assert.Equal(t, []uint32{2}, res.Rejected)
	assert.Equal(t, []uint32{3}, res.Item.SeatNos)
}

func TestAddItem_AllSeatsTakenIsConflict(t *testing.T) {
	agg, catalog, store, inv := seatModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 2})
	inv.create(7, 2)
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{1}))
	require.NoError(t, err)

	_, err = agg.AddItem(ctx, userB, 7, model.SeatQuantity([]uint32{1}))
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = store.GetByUserAndEvent(ctx, userB, 7)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAddItem_SeatSetBeyondRemainingCapacityFails(t *testing.T) {
	agg, catalog, store, inv := seatModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 3})
	inv.create(7, 3)
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{1, 2}))
	require.NoError(t, err)

	_, err = agg.AddItem(ctx, userB, 7, model.SeatQuantity([]uint32{1, 2, 3}))
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)

	_, err = store.GetByUserAndEvent(ctx, userB, 7)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, inv.reserved(7, 3), "failed add must not claim seats")
}

func TestAddItem_ReplacementReleasesDroppedSeats(t *testing.T) {
	agg, catalog, _, inv := seatModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 4})
	inv.create(7, 4)
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{1, 2, 3}))
	require.NoError(t, err)

	res, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 4}, res.Item.SeatNos)

	assert.False(t, inv.reserved(7, 1), "seat 1 dropped from the item should be free")
	assert.False(t, inv.reserved(7, 2), "seat 2 dropped from the item should be free")
	assert.True(t, inv.reserved(7, 3))
	assert.True(t, inv.reserved(7, 4))
}

func TestRemoveItem_ReleasesSeatsAndExcludesFromSummary(t *testing.T) {
	agg, catalog, _, inv := seatModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 3})
	catalog.put(model.Event{ID: 8, PriceCents: 500, Capacity: 3})
	inv.create(7, 3)
	inv.create(8, 3)
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{1, 2}))
	require.NoError(t, err)
	_, err = agg.AddItem(ctx, userA, 8, model.SeatQuantity([]uint32{1}))
	require.NoError(t, err)

	require.NoError(t, agg.RemoveItem(ctx, userA, 7))

	sum, err := agg.GetSummary(ctx, userA)
	require.NoError(t, err)
	require.Len(t, sum.Items, 1)
	assert.Equal(t, uint64(8), sum.Items[0].Event.ID)
	assert.Equal(t, uint64(500), sum.TotalCents)

	assert.False(t, inv.reserved(7, 1), "removed item's seats must be observably free")
	assert.False(t, inv.reserved(7, 2))
}

func TestRemoveItem_UnknownEventIsNotFound(t *testing.T) {
	agg, _, _, _ := seatModeAggregator(t)
	err := agg.RemoveItem(context.Background(), userA, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClear_EmptiesBookingAndReleasesAllSeats(t *testing.T) {
	agg, catalog, _, inv := seatModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 3})
	catalog.put(model.Event{ID: 8, PriceCents: 500, Capacity: 3})
	inv.create(7, 3)
	inv.create(8, 3)
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{1}))
	require.NoError(t, err)
	_, err = agg.AddItem(ctx, userA, 8, model.SeatQuantity([]uint32{2, 3}))
	require.NoError(t, err)

	require.NoError(t, agg.Clear(ctx, userA))

	sum, err := agg.GetSummary(ctx, userA)
	require.NoError(t, err)
	assert.Empty(t, sum.Items)
	assert.Zero(t, sum.TotalCents)
	assert.False(t, inv.reserved(7, 1))
	assert.False(t, inv.reserved(8, 2))
	assert.False(t, inv.reserved(8, 3))
}

func TestGetSummary_SeatModeRecountsOccupiedSeats(t *testing.T) {
	agg, catalog, _, inv := seatModeAggregator(t)
	catalog.put(model.Event{ID: 7, PriceCents: 1000, Capacity: 3})
	inv.create(7, 3)
	ctx := context.Background()

	_, err := agg.AddItem(ctx, userA, 7, model.SeatQuantity([]uint32{1, 2}))
	require.NoError(t, err)

	sum, err := agg.GetSummary(ctx, userA)
	require.NoError(t, err)
	require.Len(t, sum.Items, 1)
	assert.Equal(t, uint32(2), sum.Items[0].OccupiedCount)
	assert.Equal(t, uint64(2000), sum.TotalCents)

	// A capacity change regenerates the inventory and drops the
	// reservations; the summary must reflect that on the next read.
	inv.create(7, 3)
	sum, err = agg.GetSummary(ctx, userA)
	require.NoError(t, err)
	require.Len(t, sum.Items, 1)
	assert.Zero(t, sum.Items[0].OccupiedCount)
	assert.Zero(t, sum.TotalCents)
}
