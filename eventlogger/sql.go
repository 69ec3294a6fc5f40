package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

type sqlEventLogger struct {
	db *sql.DB
}

func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	statement := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = el.db.ExecContext(ctx, statement, e.ID, e.Type, jsonData, jsonMetadata, e.CreatedAt)
	return err
}

func (el *sqlEventLogger) GetByTrip(ctx context.Context, tripID uuid.UUID, limit int) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at
              FROM events
              WHERE event_metadata->>'trip_id' = $1
              ORDER BY created_at DESC
              LIMIT $2`
	result, err := el.db.QueryContext(ctx, query, tripID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var event Event
		var jsonData, jsonMetadata []byte
		if err := result.Scan(&event.ID, &event.Type, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, err
		}
		if len(jsonData) > 0 {
			var data any
			if err := json.Unmarshal(jsonData, &data); err != nil {
				return events, err
			}
			event.Data = data
		}
		if len(jsonMetadata) > 0 {
			if err := json.Unmarshal(jsonMetadata, &event.Metadata); err != nil {
				return events, err
			}
		}

		events = append(events, event)
	}

	return events, result.Err()
}
