package expense

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/billbatista/acasinha-trips/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Record(ctx context.Context, e *Entry) error {
	return database.RunSerializable(ctx, r.db, func(tx *sql.Tx) error {
		return recordEntry(ctx, tx, e)
	})
}

func recordEntry(ctx context.Context, tx *sql.Tx, e *Entry) error {
	insertEntry := `INSERT INTO spending_entries (id, trip_id, user_id, description, amount, date, split_type, created_at)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := tx.ExecContext(ctx, insertEntry,
		e.ID,
		e.TripID,
		e.UserID,
		e.Description,
		e.Amount,
		e.Date,
		e.SplitType,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting spending entry: %w", err)
	}

	positions := make([]int64, len(e.ParticipantShares))
	memberIDs := make([]string, len(e.ParticipantShares))
	amounts := make([]string, len(e.ParticipantShares))
	for i, s := range e.ParticipantShares {
		positions[i] = int64(i)
		memberIDs[i] = s.MemberID.String()
		amounts[i] = s.Amount.String()
	}

	insertShares := `INSERT INTO spending_shares (entry_id, position, member_id, amount)
                     SELECT $1, s.position, s.member_id, s.amount
                     FROM unnest($2::int[], $3::uuid[], $4::numeric[]) AS s(position, member_id, amount)`
	_, err = tx.ExecContext(ctx, insertShares, e.ID, pq.Array(positions), pq.Array(memberIDs), pq.Array(amounts))
	if err != nil {
		return fmt.Errorf("inserting participant shares: %w", err)
	}

	ids, totals := totalsByMember(e.ParticipantShares)
	userIDs := make([]string, len(ids))
	debits := make([]string, len(ids))
	for i := range ids {
		userIDs[i] = ids[i].String()
		debits[i] = totals[i].String()
	}

	debitMembers := `UPDATE trip_members m
                     SET spent_amount = m.spent_amount + s.amount, balance = m.balance - s.amount
                     FROM (SELECT unnest($2::uuid[]) AS user_id, unnest($3::numeric[]) AS amount) s
                     WHERE m.trip_id = $1 AND m.user_id = s.user_id`
	res, err := tx.ExecContext(ctx, debitMembers, e.TripID, pq.Array(userIDs), pq.Array(debits))
	if err != nil {
		return fmt.Errorf("debiting participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return ErrInvalidParticipant
	}
	return nil
}

func (r *repository) List(ctx context.Context, tripID uuid.UUID) ([]Entry, error) {
	query := `SELECT e.id, e.trip_id, e.user_id, u.username, e.description, e.amount, e.date, e.split_type, e.created_at
              FROM spending_entries e
              JOIN users u ON u.id = e.user_id
              WHERE e.trip_id = $1
              ORDER BY e.date DESC, e.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TripID, &e.UserID, &e.PayerName, &e.Description, &e.Amount, &e.Date, &e.SplitType, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ParticipantShares = make([]Share, 0)
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sharesQuery := `SELECT s.entry_id, s.member_id, s.amount
                    FROM spending_shares s
                    JOIN spending_entries e ON e.id = s.entry_id
                    WHERE e.trip_id = $1
                    ORDER BY s.entry_id, s.position`

	shareRows, err := r.db.QueryContext(ctx, sharesQuery, tripID)
	if err != nil {
		return nil, err
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var entryID uuid.UUID
		var s Share
		if err := shareRows.Scan(&entryID, &s.MemberID, &s.Amount); err != nil {
			return nil, err
		}
		if i, ok := index[entryID]; ok {
			entries[i].ParticipantShares = append(entries[i].ParticipantShares, s)
		}
	}

	return entries, shareRows.Err()
}

func (r *repository) SumByTrip(ctx context.Context, tripID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM spending_entries WHERE trip_id = $1`, tripID).Scan(&total)
	return total, err
}
