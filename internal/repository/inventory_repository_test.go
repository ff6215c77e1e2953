package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*InventoryRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewInventoryRepo(db), mock
}

func TestInventoryCreate_InsertsOneRowPerSeat(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO seats \(event_id, seat_no\) VALUES`).
		WithArgs(
			uint64(9), uint32(1),
			uint64(9), uint32(2),
			uint64(9), uint32(3),
			uint64(9), uint32(4),
		).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.Create(context.Background(), 9, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryCreate_ZeroCapacityIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.Create(context.Background(), 9, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegenerate_ReplacesAllSeatsAndReportsDropped(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seats WHERE event_id = \? AND reserved = 1`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`DELETE FROM seats WHERE event_id = \?`).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO seats \(event_id, seat_no\) VALUES`).
		WithArgs(uint64(9), uint32(1), uint64(9), uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	dropped, err := repo.Regenerate(context.Background(), 9, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), dropped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaim_UpdatesOnlyFreeSeatsThenReadsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	// The guard on reserved = 0 is what makes the claim a compare-and-swap.
	mock.ExpectExec(`UPDATE seats SET reserved = 1, reserved_by = \?, reserved_at = \?\s+WHERE event_id = \? AND reserved = 0 AND seat_no IN`).
		WithArgs(uint64(5), at, uint64(9), uint32(1), uint32(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT seat_no FROM seats`).
		WithArgs(uint64(9), uint64(5), uint32(1), uint32(3)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_no"}).AddRow(3))
	mock.ExpectCommit()

	won, err := repo.Claim(context.Background(), 9, 5, []uint32{1, 3}, at)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_ClearsReservationColumns(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE seats SET reserved = 0, reserved_by = NULL, reserved_at = NULL`).
		WithArgs(uint64(9), uint32(1), uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Release(context.Background(), 9, []uint32{1, 2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventory_NoRowsIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT event_id, seat_no, reserved, reserved_by, reserved_at`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "seat_no", "reserved", "reserved_by", "reserved_at"}))

	_, err := repo.Inventory(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventory_ReturnsSeatsInOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"event_id", "seat_no", "reserved", "reserved_by", "reserved_at"}).
		AddRow(9, 1, true, 5, at).
		AddRow(9, 2, false, nil, nil)
	mock.ExpectQuery(`SELECT event_id, seat_no, reserved, reserved_by, reserved_at`).
		WithArgs(uint64(9)).
		WillReturnRows(rows)

	inv, err := repo.Inventory(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, inv.Seats, 2)
	assert.True(t, inv.Seats[0].Reserved)
	require.NotNil(t, inv.Seats[0].ReservedBy)
	assert.Equal(t, uint64(5), *inv.Seats[0].ReservedBy)
	assert.False(t, inv.Seats[1].Reserved)
	assert.Nil(t, inv.Seats[1].ReservedBy)
	assert.Equal(t, uint32(1), inv.ReservedCount())
	assert.Equal(t, []uint32{1}, inv.ReservedBy(5))
}
