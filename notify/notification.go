package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Type string

const (
	TypeTripStart      Type = "trip_start"
	TypeMemberJoined   Type = "member_joined"
	TypeBudgetAlert    Type = "budget_alert"
	TypeSpendingAdded  Type = "spending_added"
	TypeTripUpdate     Type = "trip_update"
	TypeRoleUpdated    Type = "role_updated"
	TypeBalanceUpdated Type = "balance_updated"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"tripId"`
	UserID    uuid.UUID `json:"userId"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewNotification(tripID, userID uuid.UUID, kind Type, title, message string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		TripID:    tripID,
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// CreateForTrip stores one notification per current member of the trip
	// and reports how many were written.
	CreateForTrip(ctx context.Context, tripID uuid.UUID, kind Type, title, message string) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}
