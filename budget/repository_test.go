package budget

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectAddItem(mock sqlmock.Sqlmock, item *Item) {
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO budget_items`)).
		WithArgs(item.ID, item.TripID, "Food", "Lunch", item.Amount, decimal.NewFromInt(100), 2, item.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO budget_item_credits`)).
		WithArgs(item.ID, item.TripID, decimal.NewFromInt(100)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trip_members`)).
		WithArgs(item.TripID, decimal.NewFromInt(100)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO budget_history`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestRepository_AddItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	item, err := NewItem(uuid.New(), "Food", "Lunch", decimal.NewFromInt(200))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM trip_members WHERE trip_id = $1`)).
		WithArgs(item.TripID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	expectAddItem(mock, item)
	mock.ExpectCommit()

	entry, err := NewRepository(db).AddItem(context.Background(), item, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, EntryAdd, entry.Type)
	assert.Equal(t, 2, item.MemberCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_AddItemRetriesConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	item, err := NewItem(uuid.New(), "Food", "Lunch", decimal.NewFromInt(200))
	require.NoError(t, err)

	// A concurrent allocation on the same trip wins the first round.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*)`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO budget_items`)).
		WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*)`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	expectAddItem(mock, item)
	mock.ExpectCommit()

	entry, err := NewRepository(db).AddItem(context.Background(), item, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, EntryAdd, entry.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_AddItemNoMembers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	item, err := NewItem(uuid.New(), "Food", "Lunch", decimal.NewFromInt(200))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*)`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, err = NewRepository(db).AddItem(context.Background(), item, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrNoMembers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RemoveItem(t *testing.T) {
	tripID, itemID := uuid.New(), uuid.New()
	cols := []string{"id", "trip_id", "category", "description", "amount", "share_per_member", "member_count", "created_at"}

	t.Run("missing item rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs(tripID, itemID).WillReturnRows(sqlmock.NewRows(cols))
		mock.ExpectRollback()

		_, _, err = NewRepository(db).RemoveItem(context.Background(), tripID, itemID, decimal.NewFromInt(1000))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reverses recorded credits", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs(tripID, itemID).WillReturnRows(
			sqlmock.NewRows(cols).AddRow(itemID.String(), tripID.String(), "Food", "Lunch", "200.0000", "100.0000", 2, time.Now()))
		mock.ExpectExec(regexp.QuoteMeta(`FROM budget_item_credits c`)).
			WithArgs(itemID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM budget_items`)).WithArgs(itemID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO budget_history`)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		item, entry, err := NewRepository(db).RemoveItem(context.Background(), tripID, itemID, decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.Equal(t, "Food", item.Category)
		assert.Equal(t, EntryRemove, entry.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
