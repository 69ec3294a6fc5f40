package budget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("budget item not found")
	ErrNoMembers        = errors.New("trip has no members to share the budget")
	ErrNegativeAmount   = errors.New("amount can't be negative")
	ErrEmptyCategory    = errors.New("category can't be empty")
	ErrEmptyDescription = errors.New("description can't be empty")
)

// shareScale is the number of decimal places kept for per-member shares,
// matching the NUMERIC(14,4) columns.
const shareScale = 4

type EntryType string

const (
	EntryAdd    EntryType = "add"
	EntryRemove EntryType = "remove"
)

// Item is an allocation within the trip's fixed total budget. SharePerMember
// and MemberCount record what the item credited each member when it was added.
type Item struct {
	ID             uuid.UUID       `json:"id"`
	TripID         uuid.UUID       `json:"tripId"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	SharePerMember decimal.Decimal `json:"sharePerMember"`
	MemberCount    int             `json:"memberCount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type HistoryEntry struct {
	ID          uuid.UUID       `json:"id"`
	TripID      uuid.UUID       `json:"tripId"`
	ItemID      uuid.UUID       `json:"itemId"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	TotalAfter  decimal.Decimal `json:"totalAfter"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Overview struct {
	Items       []Item          `json:"items"`
	History     []HistoryEntry  `json:"history"`
	TotalBudget decimal.Decimal `json:"totalBudget"`
}

type Repository interface {
	// AddItem stores the item, credits every current member with an equal
	// share and appends an add entry, all in one transaction. It fills in
	// the item's SharePerMember and MemberCount.
	AddItem(ctx context.Context, item *Item, totalBudget decimal.Decimal) (*HistoryEntry, error)
	// RemoveItem deletes the item, takes its recorded share back from every
	// current member and appends a remove entry, all in one transaction.
	RemoveItem(ctx context.Context, tripID, itemID uuid.UUID, totalBudget decimal.Decimal) (*Item, *HistoryEntry, error)
	ListItems(ctx context.Context, tripID uuid.UUID) ([]Item, error)
	// ListHistory returns the newest entries first.
	ListHistory(ctx context.Context, tripID uuid.UUID) ([]HistoryEntry, error)
	SumItems(ctx context.Context, tripID uuid.UUID) (decimal.Decimal, error)
}

func NewItem(tripID uuid.UUID, category, description string, amount decimal.Decimal) (*Item, error) {
	category = strings.TrimSpace(category)
	description = strings.TrimSpace(description)

	if category == "" {
		return nil, ErrEmptyCategory
	}
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	return &Item{
		ID:          uuid.New(),
		TripID:      tripID,
		Category:    category,
		Description: description,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// EqualShare splits amount across n members.
func EqualShare(amount decimal.Decimal, n int) (decimal.Decimal, error) {
	if n <= 0 {
		return decimal.Zero, ErrNoMembers
	}
	return amount.DivRound(decimal.NewFromInt(int64(n)), shareScale), nil
}

func newHistoryEntry(item *Item, kind EntryType, totalAfter decimal.Decimal) *HistoryEntry {
	return &HistoryEntry{
		ID:          uuid.New(),
		TripID:      item.TripID,
		ItemID:      item.ID,
		Type:        kind,
		Amount:      item.Amount,
		TotalAfter:  totalAfter,
		Category:    item.Category,
		Description: item.Description,
		CreatedAt:   time.Now().UTC(),
	}
}
