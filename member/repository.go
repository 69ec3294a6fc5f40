package member

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

const selectMember = `SELECT m.id, m.trip_id, m.user_id, u.handle, u.username, m.role,
                             m.credit_amount, m.spent_amount, m.balance, m.joined_at
                      FROM trip_members m
                      JOIN users u ON u.id = m.user_id`

func (r *repository) Create(ctx context.Context, m *Member) error {
	query := `INSERT INTO trip_members (id, trip_id, user_id, role, credit_amount, spent_amount, balance, joined_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.TripID,
		m.UserID,
		m.Role,
		m.CreditAmount,
		m.SpentAmount,
		m.Balance,
		m.JoinedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("inserting member: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, tripID, memberID uuid.UUID) (*Member, error) {
	query := selectMember + ` WHERE m.trip_id = $1 AND m.id = $2`
	return scanMember(r.db.QueryRowContext(ctx, query, tripID, memberID))
}

func (r *repository) GetByUser(ctx context.Context, tripID, userID uuid.UUID) (*Member, error) {
	query := selectMember + ` WHERE m.trip_id = $1 AND m.user_id = $2`
	return scanMember(r.db.QueryRowContext(ctx, query, tripID, userID))
}

func (r *repository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]Member, error) {
	query := selectMember + ` WHERE m.trip_id = $1 ORDER BY m.joined_at`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}

	return members, rows.Err()
}

func (r *repository) CountByRole(ctx context.Context, tripID uuid.UUID, role Role) (int, error) {
	var count int
	query := `SELECT count(*) FROM trip_members WHERE trip_id = $1 AND role = $2`
	err := r.db.QueryRowContext(ctx, query, tripID, role).Scan(&count)
	return count, err
}

func (r *repository) UpdateRole(ctx context.Context, tripID, memberID uuid.UUID, role Role) error {
	query := `UPDATE trip_members SET role = $3
              WHERE trip_id = $1 AND id = $2
                AND ($3 = 'organizer'
                     OR role <> 'organizer'
                     OR (SELECT count(*) FROM trip_members WHERE trip_id = $1 AND role = 'organizer') > 1)`

	res, err := r.db.ExecContext(ctx, query, tripID, memberID, role)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLastOrganizer
	}
	return nil
}

func (r *repository) SetAmounts(ctx context.Context, tripID, memberID uuid.UUID, credit, spent decimal.Decimal) error {
	query := `UPDATE trip_members SET credit_amount = $3, spent_amount = $4, balance = $5
              WHERE trip_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, tripID, memberID, credit, spent, credit.Sub(spent))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ReconcileBalances(ctx context.Context) (int64, error) {
	query := `UPDATE trip_members SET balance = credit_amount - spent_amount
              WHERE balance <> credit_amount - spent_amount`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.ID,
		&m.TripID,
		&m.UserID,
		&m.Handle,
		&m.Username,
		&m.Role,
		&m.CreditAmount,
		&m.SpentAmount,
		&m.Balance,
		&m.JoinedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning member: %w", err)
	}
	return &m, nil
}
