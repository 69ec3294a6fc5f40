package expense

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidParticipant = errors.New("invalid participant selected")
	ErrSplitMismatch      = errors.New("participant splits must sum to total amount")
	ErrNoParticipants     = errors.New("at least one participant is required")
	ErrEmptyDescription   = errors.New("description can't be empty")
	ErrNegativeAmount     = errors.New("amount can't be negative")
	ErrInvalidSplitType   = errors.New("split type must be equal or custom")
)

// SplitTolerance is how far the shares may sum away from the entry amount.
var SplitTolerance = decimal.NewFromFloat(0.5)

type SplitType string

const (
	SplitEqual  SplitType = "equal"
	SplitCustom SplitType = "custom"
)

// Share assigns part of an expense to a participant, identified by user id.
type Share struct {
	MemberID uuid.UUID       `json:"memberId"`
	Amount   decimal.Decimal `json:"amount"`
}

// Entry is an immutable expense record.
type Entry struct {
	ID                uuid.UUID       `json:"id"`
	TripID            uuid.UUID       `json:"tripId"`
	UserID            uuid.UUID       `json:"userId"`
	PayerName         string          `json:"payerName,omitempty"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"date"`
	SplitType         SplitType       `json:"splitType"`
	ParticipantShares []Share         `json:"participantShares"`
	CreatedAt         time.Time       `json:"createdAt"`
}

type Repository interface {
	// Record stores the entry and its shares and debits every participant's
	// spent amount and balance in one transaction.
	Record(ctx context.Context, e *Entry) error
	// List returns the trip's entries, latest date first.
	List(ctx context.Context, tripID uuid.UUID) ([]Entry, error)
	SumByTrip(ctx context.Context, tripID uuid.UUID) (decimal.Decimal, error)
}

func NewEntry(tripID, payerID uuid.UUID, description string, amount decimal.Decimal, date time.Time, splitType SplitType, shares []Share) (*Entry, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if splitType != SplitEqual && splitType != SplitCustom {
		return nil, ErrInvalidSplitType
	}
	if len(shares) == 0 {
		return nil, ErrNoParticipants
	}
	for _, s := range shares {
		if s.Amount.IsNegative() {
			return nil, ErrNegativeAmount
		}
	}
	if date.IsZero() {
		date = time.Now()
	}

	return &Entry{
		ID:                uuid.New(),
		TripID:            tripID,
		UserID:            payerID,
		Description:       description,
		Amount:            amount,
		Date:              date.UTC(),
		SplitType:         splitType,
		ParticipantShares: shares,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// CheckSplit verifies the shares add up to the amount within SplitTolerance.
func CheckSplit(amount decimal.Decimal, shares []Share) error {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	if sum.Sub(amount).Abs().GreaterThan(SplitTolerance) {
		return ErrSplitMismatch
	}
	return nil
}

// totalsByMember folds repeated participants into one amount each, keeping
// first-seen order.
func totalsByMember(shares []Share) ([]uuid.UUID, []decimal.Decimal) {
	index := make(map[uuid.UUID]int, len(shares))
	ids := make([]uuid.UUID, 0, len(shares))
	amounts := make([]decimal.Decimal, 0, len(shares))
	for _, s := range shares {
		if i, ok := index[s.MemberID]; ok {
			amounts[i] = amounts[i].Add(s.Amount)
			continue
		}
		index[s.MemberID] = len(ids)
		ids = append(ids, s.MemberID)
		amounts = append(amounts, s.Amount)
	}
	return ids, amounts
}

// TotalsByMember exposes the per-participant debit that Record applies.
func TotalsByMember(shares []Share) map[uuid.UUID]decimal.Decimal {
	ids, amounts := totalsByMember(shares)
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for i, id := range ids {
		out[id] = amounts[i]
	}
	return out
}
