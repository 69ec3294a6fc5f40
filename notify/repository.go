package notify

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, n *Notification) error {
	query := `INSERT INTO notifications (id, trip_id, user_id, type, title, message, read, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query, n.ID, n.TripID, n.UserID, n.Type, n.Title, n.Message, n.Read, n.CreatedAt)
	return err
}

func (r *repository) CreateForTrip(ctx context.Context, tripID uuid.UUID, kind Type, title, message string) (int64, error) {
	query := `INSERT INTO notifications (id, trip_id, user_id, type, title, message, read, created_at)
              SELECT gen_random_uuid(), trip_id, user_id, $2, $3, $4, false, now()
              FROM trip_members
              WHERE trip_id = $1`

	res, err := r.db.ExecContext(ctx, query, tripID, kind, title, message)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	query := `SELECT id, trip_id, user_id, type, title, message, read, created_at
              FROM notifications
              WHERE user_id = $1
              ORDER BY created_at DESC
              LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.TripID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *repository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
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
