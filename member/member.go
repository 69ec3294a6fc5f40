package member

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("member not found")
	ErrAlreadyMember    = errors.New("user is already a member of this trip")
	ErrNotMember        = errors.New("you are not a member of this trip")
	ErrNotManager       = errors.New("only organizers and co-organizers can do this")
	ErrNotOrganizer     = errors.New("only organizers can do this")
	ErrInsufficientRole = errors.New("only organizers can promote others to organizer")
	ErrLastOrganizer    = errors.New("trip must have at least one organizer")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidJoinCode  = errors.New("invalid join code")
	ErrNegativeAmount   = errors.New("amounts cannot be negative")
	ErrUserNotFound     = errors.New("user not found")
)

type Role string

const (
	RoleOrganizer   Role = "organizer"
	RoleCoOrganizer Role = "co_organizer"
	RoleMember      Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOrganizer, RoleCoOrganizer, RoleMember:
		return true
	}
	return false
}

// IsManager reports whether the role may manage membership.
func (r Role) IsManager() bool {
	return r == RoleOrganizer || r == RoleCoOrganizer
}

// Member is a user's seat in a trip with its running ledger totals.
// Balance always equals CreditAmount minus SpentAmount.
type Member struct {
	ID           uuid.UUID       `json:"id"`
	TripID       uuid.UUID       `json:"tripId"`
	UserID       uuid.UUID       `json:"userId"`
	Handle       string          `json:"handle,omitempty"`
	Username     string          `json:"username,omitempty"`
	Role         Role            `json:"role"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	SpentAmount  decimal.Decimal `json:"spentAmount"`
	Balance      decimal.Decimal `json:"balance"`
	JoinedAt     time.Time       `json:"joinedAt"`
}

func NewMember(tripID, userID uuid.UUID, role Role) *Member {
	return &Member{
		ID:           uuid.New(),
		TripID:       tripID,
		UserID:       userID,
		Role:         role,
		CreditAmount: decimal.Zero,
		SpentAmount:  decimal.Zero,
		Balance:      decimal.Zero,
		JoinedAt:     time.Now().UTC(),
	}
}

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, tripID, memberID uuid.UUID) (*Member, error)
	GetByUser(ctx context.Context, tripID, userID uuid.UUID) (*Member, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]Member, error)
	CountByRole(ctx context.Context, tripID uuid.UUID, role Role) (int, error)
	// UpdateRole returns ErrLastOrganizer instead of demoting the only organizer.
	UpdateRole(ctx context.Context, tripID, memberID uuid.UUID, role Role) error
	SetAmounts(ctx context.Context, tripID, memberID uuid.UUID, credit, spent decimal.Decimal) error
	// ReconcileBalances rewrites every balance that drifted from credit minus
	// spent and returns how many rows were fixed.
	ReconcileBalances(ctx context.Context) (int64, error)
}
