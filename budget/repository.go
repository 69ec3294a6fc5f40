package budget

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/billbatista/acasinha-trips/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

const itemColumns = `id, trip_id, category, description, amount, share_per_member, member_count, created_at`

func (r *repository) AddItem(ctx context.Context, item *Item, totalBudget decimal.Decimal) (*HistoryEntry, error) {
	var entry *HistoryEntry
	err := database.RunSerializable(ctx, r.db, func(tx *sql.Tx) error {
		var members int
		err := tx.QueryRowContext(ctx, `SELECT count(*) FROM trip_members WHERE trip_id = $1`, item.TripID).Scan(&members)
		if err != nil {
			return fmt.Errorf("counting members: %w", err)
		}

		share, err := EqualShare(item.Amount, members)
		if err != nil {
			return err
		}
		item.SharePerMember = share
		item.MemberCount = members

		insertItem := `INSERT INTO budget_items (` + itemColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		_, err = tx.ExecContext(ctx, insertItem,
			item.ID,
			item.TripID,
			item.Category,
			item.Description,
			item.Amount,
			item.SharePerMember,
			item.MemberCount,
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting budget item: %w", err)
		}

		if err := creditMembers(ctx, tx, item); err != nil {
			return err
		}

		entry = newHistoryEntry(item, EntryAdd, totalBudget)
		return insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) RemoveItem(ctx context.Context, tripID, itemID uuid.UUID, totalBudget decimal.Decimal) (*Item, *HistoryEntry, error) {
	var (
		item  *Item
		entry *HistoryEntry
	)
	err := database.RunSerializable(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + itemColumns + ` FROM budget_items WHERE trip_id = $1 AND id = $2 FOR UPDATE`
		var err error
		item, err = scanItem(tx.QueryRowContext(ctx, query, tripID, itemID))
		if err != nil {
			return err
		}
		if item == nil {
			return ErrNotFound
		}

		// Credits go before the item: deleting it cascades to them.
		if err := reverseCredits(ctx, tx, itemID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM budget_items WHERE id = $1`, itemID); err != nil {
			return fmt.Errorf("deleting budget item: %w", err)
		}

		entry = newHistoryEntry(item, EntryRemove, totalBudget)
		return insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return item, entry, nil
}

// creditMembers records the item's share for every current member and adds it
// to their credit and balance.
func creditMembers(ctx context.Context, tx *sql.Tx, item *Item) error {
	record := `INSERT INTO budget_item_credits (item_id, member_id, share)
               SELECT $1, id, $3 FROM trip_members WHERE trip_id = $2`
	if _, err := tx.ExecContext(ctx, record, item.ID, item.TripID, item.SharePerMember); err != nil {
		return fmt.Errorf("recording member credits: %w", err)
	}

	query := `UPDATE trip_members
              SET credit_amount = credit_amount + $2, balance = balance + $2
              WHERE trip_id = $1`
	if _, err := tx.ExecContext(ctx, query, item.TripID, item.SharePerMember); err != nil {
		return fmt.Errorf("adjusting member credit: %w", err)
	}
	return nil
}

// reverseCredits takes back exactly what the item credited. Members who
// joined afterwards have no credit row and are left alone.
func reverseCredits(ctx context.Context, tx *sql.Tx, itemID uuid.UUID) error {
	query := `UPDATE trip_members m
              SET credit_amount = m.credit_amount - c.share, balance = m.balance - c.share
              FROM budget_item_credits c
              WHERE c.item_id = $1 AND c.member_id = m.id`
	if _, err := tx.ExecContext(ctx, query, itemID); err != nil {
		return fmt.Errorf("reversing member credit: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, e *HistoryEntry) error {
	query := `INSERT INTO budget_history (id, trip_id, item_id, type, amount, total_after, category, description, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.ExecContext(ctx, query,
		e.ID,
		e.TripID,
		e.ItemID,
		e.Type,
		e.Amount,
		e.TotalAfter,
		e.Category,
		e.Description,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting budget history: %w", err)
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, tripID uuid.UUID) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM budget_items WHERE trip_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *repository) ListHistory(ctx context.Context, tripID uuid.UUID) ([]HistoryEntry, error) {
	query := `SELECT id, trip_id, item_id, type, amount, total_after, category, description, created_at
              FROM budget_history
              WHERE trip_id = $1
              ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.TripID, &e.ItemID, &e.Type, &e.Amount, &e.TotalAfter, &e.Category, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, e)
	}

	return history, rows.Err()
}

func (r *repository) SumItems(ctx context.Context, tripID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM budget_items WHERE trip_id = $1`, tripID).Scan(&total)
	return total, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.TripID,
		&item.Category,
		&item.Description,
		&item.Amount,
		&item.SharePerMember,
		&item.MemberCount,
		&item.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning budget item: %w", err)
	}
	return &item, nil
}
