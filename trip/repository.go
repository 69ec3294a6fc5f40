package trip

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/billbatista/acasinha-trips/database"
	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

const tripColumns = `id, name, description, location, start_date, number_of_members, total_budget, organizer_id, join_code, status, created_at`

func (r *repository) Create(ctx context.Context, t *Trip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertTrip := `INSERT INTO trips (` + tripColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.ExecContext(
		ctx,
		insertTrip,
		t.ID,
		t.Name,
		t.Description,
		t.Location,
		t.StartDate,
		t.NumberOfMembers,
		t.TotalBudget,
		t.OrganizerID,
		t.JoinCode,
		t.Status,
		t.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrJoinCodeTaken
		}
		return fmt.Errorf("inserting trip: %w", err)
	}

	insertOrganizer := `INSERT INTO trip_members (id, trip_id, user_id, role, joined_at) VALUES ($1, $2, $3, 'organizer', $4)`
	_, err = tx.ExecContext(ctx, insertOrganizer, uuid.New(), t.ID, t.OrganizerID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("seeding organizer: %w", err)
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	return scanTrip(r.db.QueryRowContext(ctx, query, id))
}

func (r *repository) GetByJoinCode(ctx context.Context, code string) (*Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE upper(join_code) = $1`
	return scanTrip(r.db.QueryRowContext(ctx, query, NormalizeJoinCode(code)))
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Trip, error) {
	query := `SELECT t.id, t.name, t.description, t.location, t.start_date, t.number_of_members,
                     t.total_budget, t.organizer_id, t.join_code, t.status, t.created_at
              FROM trips t
              JOIN trip_members m ON m.trip_id = t.id
              WHERE m.user_id = $1
              ORDER BY t.start_date`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := make([]Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}

	return trips, rows.Err()
}

func (r *repository) Update(ctx context.Context, t *Trip) error {
	query := `UPDATE trips
              SET name = $2, description = $3, location = $4, start_date = $5,
                  number_of_members = $6, total_budget = $7
              WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.Description,
		t.Location,
		t.StartDate,
		t.NumberOfMembers,
		t.TotalBudget,
	)
	if err != nil {
		return fmt.Errorf("updating trip: %w", err)
	}
	return expectOne(res)
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE trips SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating trip status: %w", err)
	}
	return expectOne(res)
}

// Delete relies on ON DELETE CASCADE for members, ledgers and notifications.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (*Trip, error) {
	var t Trip
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Location,
		&t.StartDate,
		&t.NumberOfMembers,
		&t.TotalBudget,
		&t.OrganizerID,
		&t.JoinCode,
		&t.Status,
		&t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning trip: %w", err)
	}
	return &t, nil
}
