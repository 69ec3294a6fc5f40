package trip

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("trip not found")
	ErrEmptyName          = errors.New("name can't be empty")
	ErrEmptyLocation      = errors.New("location can't be empty")
	ErrInvalidBudget      = errors.New("total budget must be positive")
	ErrInvalidMemberCount = errors.New("number of members must be at least 1")
	ErrJoinCodeTaken      = errors.New("join code already in use")
	ErrInvalidStatus      = errors.New("status must be upcoming, current or past")
)

const joinCodeLength = 8

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusCurrent  Status = "current"
	StatusPast     Status = "past"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusCurrent, StatusPast:
		return true
	}
	return false
}

type Trip struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	StartDate       time.Time       `json:"startDate"`
	NumberOfMembers int             `json:"numberOfMembers"`
	TotalBudget     decimal.Decimal `json:"totalBudget"`
	OrganizerID     uuid.UUID       `json:"organizerId"`
	JoinCode        string          `json:"joinCode"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type Repository interface {
	// Create stores the trip and seeds its organizer as a member in one transaction.
	Create(ctx context.Context, t *Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*Trip, error)
	GetByJoinCode(ctx context.Context, code string) (*Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Trip, error)
	// Update writes the editable details of the trip.
	Update(ctx context.Context, t *Trip) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
}

func NewTrip(name, description, location string, startDate time.Time, numberOfMembers int, totalBudget decimal.Decimal, organizerID uuid.UUID) (*Trip, error) {
	t := &Trip{
		ID:          uuid.New(),
		OrganizerID: organizerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := t.Revise(name, description, location, startDate, numberOfMembers, totalBudget); err != nil {
		return nil, err
	}

	code, err := newJoinCode()
	if err != nil {
		return nil, err
	}
	t.JoinCode = code

	t.Status = StatusCurrent
	if t.StartDate.After(t.CreatedAt) {
		t.Status = StatusUpcoming
	}
	return t, nil
}

// Revise validates and replaces the details an organizer may edit. The trip is
// left untouched when validation fails.
func (t *Trip) Revise(name, description, location string, startDate time.Time, numberOfMembers int, totalBudget decimal.Decimal) error {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)

	if name == "" {
		return ErrEmptyName
	}
	if location == "" {
		return ErrEmptyLocation
	}
	if !totalBudget.IsPositive() {
		return ErrInvalidBudget
	}
	if numberOfMembers < 1 {
		return ErrInvalidMemberCount
	}

	t.Name = name
	t.Description = strings.TrimSpace(description)
	t.Location = location
	t.StartDate = startDate.UTC()
	t.NumberOfMembers = numberOfMembers
	t.TotalBudget = totalBudget
	return nil
}

// NormalizeJoinCode makes lookups case-insensitive.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newJoinCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(b)[:joinCodeLength], nil
}
