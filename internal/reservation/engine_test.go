package reservation

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
)

// memInventory is an in-memory Inventory used to exercise the engine
// without a database.  Claim mirrors the SQL store's semantics: only
// free seats flip, then the requested seats now held by the user are
// reported back.
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

func (m *memInventory) seat(eventID uint64, no uint32) model.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.seats[eventID][no]
}

const (
	eventX = uint64(10)
	userA  = uint64(1)
	userB  = uint64(2)
)

func TestReserve_ContestedSeatsSplitReservedAndRejected(t *testing.T) {
	inv := newMemInventory()
	inv.create(eventX, 3)
	eng := NewEngine(inv)
	ctx := context.Background()

	resA, err := eng.Reserve(ctx, eventX, userA, []uint32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, resA.Reserved)
	assert.Empty(t, resA.Rejected)

	resB, err := eng.Reserve(ctx, eventX, userB, []uint32{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, resB.Reserved)
	assert.Equal(t, []uint32{2}, resB.Rejected)

	for no, want := range map[uint32]uint64{1: userA, 2: userA, 3: userB} {
		s := inv.seat(eventX, no)
		require.True(t, s.Reserved, "seat %d should be reserved", no)
		require.NotNil(t, s.ReservedBy)
		assert.Equal(t, want, *s.ReservedBy, "seat %d owner", no)
	}
}

func TestReserve_SameUserIsIdempotent(t *testing.T) {
	inv := newMemInventory()
	inv.create(eventX, 3)
	eng := NewEngine(inv)
	ctx := context.Background()

	first, err := eng.Reserve(ctx, eventX, userA, []uint32{1, 2})
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, first.Reserved)
	before := inv.seat(eventX, 1)

	second, err := eng.Reserve(ctx, eventX, userA, []uint32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, second.Reserved)
	assert.Empty(t, second.Rejected)

	after := inv.seat(eventX, 1)
	require.NotNil(t, after.ReservedAt)
	assert.Equal(t, *before.ReservedAt, *after.ReservedAt, "re-reserving must not touch state")
}

func TestReserve_OtherUsersSeatAlwaysRejected(t *testing.T) {
	inv := newMemInventory()
	inv.create(eventX, 2)
	eng := NewEngine(inv)
	ctx := context.Background()

	_, err := eng.Reserve(ctx, eventX, userA, []uint32{1})
	require.NoError(t, err)

	res, err := eng.Reserve(ctx, eventX, userB, []uint32{1})
	require.NoError(t, err)
	assert.Empty(t, res.Reserved)
	assert.Equal(t, []uint32{1}, res.Rejected)
}

func TestReserve_UnknownSeatRejected(t *testing.T) {
	inv := newMemInventory()
	inv.create(eventX, 3)
	eng := NewEngine(inv)

	res, err := eng.Reserve(context.Background(), eventX, userA, []uint32{2, 7})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, res.Reserved)
	assert.Equal(t, []uint32{7}, res.Rejected)
}

func TestReserve_DeduplicatesRequest(t *testing.T) {
	inv := newMemInventory()
	inv.create(eventX, 3)
	eng := NewEngine(inv)

	res, err := eng.Reserve(context.Background(), eventX, userA, []uint32{2, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1}, res.Reserved)
}

func TestReserve_InputValidation(t *testing.T) {
	inv := newMemInventory()
	inv.create(eventX, 3)
	eng := NewEngine(inv)
	ctx := context.Background()

	tests := []struct {
		name    string
		seatNos []uint32
	}{
		{"empty list", nil},
		{"zero seat number", []uint32{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Reserve(ctx, eventX, userA, tt.seatNos)
			assert.ErrorIs(t, err, repository.ErrValidation)
		})
	}
}

func TestReserve_MissingInventory(t *testing.T) {
	eng := NewEngine(newMemInventory())
	_, err := eng.Reserve(context.Background(), 999, userA, []uint32{1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRelease_FreesSeatsUnconditionally(t *testing.T) {
	inv := newMemInventory()
	inv.create(eventX, 3)
	eng := NewEngine(inv)
	ctx := context.Background()

	_, err := eng.Reserve(ctx, eventX, userA, []uint32{1, 2, 3})
	require.NoError(t, err)

	// Releasing a mix of held and free seats must not error.
	require.NoError(t, eng.Release(ctx, eventX, []uint32{1, 2}))
	require.NoError(t, eng.Release(ctx, eventX, []uint32{1}))

	for _, no := range []uint32{1, 2} {
		s := inv.seat(eventX, no)
		assert.False(t, s.Reserved, "seat %d should be free", no)
		assert.Nil(t, s.ReservedBy)
		assert.Nil(t, s.ReservedAt)
	}
	assert.True(t, inv.seat(eventX, 3).Reserved, "untouched seat stays reserved")
}
