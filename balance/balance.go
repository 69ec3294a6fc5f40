package balance

import (
	"context"

	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type MemberBalance struct {
	MemberID     uuid.UUID       `json:"memberId"`
	UserID       uuid.UUID       `json:"userId"`
	Username     string          `json:"username,omitempty"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	SpentAmount  decimal.Decimal `json:"spentAmount"`
	Balance      decimal.Decimal `json:"balance"`
}

// Totals aggregates a trip. Remaining is the part of the total budget not
// yet allocated to budget items.
type Totals struct {
	TotalBudget    decimal.Decimal `json:"totalBudget"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	Remaining      decimal.Decimal `json:"remaining"`
}

type Members interface {
	List(ctx context.Context, tripID, actorID uuid.UUID) ([]member.Member, error)
	AssertMembership(ctx context.Context, tripID, userID uuid.UUID) (*member.Member, error)
}

type TripFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
}

type AllocationTotaler interface {
	SumItems(ctx context.Context, tripID uuid.UUID) (decimal.Decimal, error)
}

type SpendingTotaler interface {
	SumByTrip(ctx context.Context, tripID uuid.UUID) (decimal.Decimal, error)
}

// Service answers balance reads from the running totals kept on member rows.
// The budget and expense ledgers are never replayed here.
type Service struct {
	trips       TripFinder
	members     Members
	allocations AllocationTotaler
	spending    SpendingTotaler
	log         *logrus.Logger
}

func NewService(trips TripFinder, members Members, allocations AllocationTotaler, spending SpendingTotaler, log *logrus.Logger) *Service {
	return &Service{
		trips:       trips,
		members:     members,
		allocations: allocations,
		spending:    spending,
		log:         log,
	}
}

func (s *Service) Balances(ctx context.Context, tripID, actorID uuid.UUID) ([]MemberBalance, error) {
	members, err := s.members.List(ctx, tripID, actorID)
	if err != nil {
		return nil, err
	}

	balances := make([]MemberBalance, 0, len(members))
	for _, m := range members {
		balances = append(balances, MemberBalance{
			MemberID:     m.ID,
			UserID:       m.UserID,
			Username:     m.Username,
			CreditAmount: m.CreditAmount,
			SpentAmount:  m.SpentAmount,
			Balance:      m.Balance,
		})
	}
	return balances, nil
}

func (s *Service) Totals(ctx context.Context, tripID, actorID uuid.UUID) (*Totals, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.AssertMembership(ctx, tripID, actorID); err != nil {
		return nil, err
	}

	allocated, err := s.allocations.SumItems(ctx, tripID)
	if err != nil {
		return nil, err
	}
	spent, err := s.spending.SumByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	return &Totals{
		TotalBudget:    t.TotalBudget,
		TotalAllocated: allocated,
		TotalSpent:     spent,
		Remaining:      t.TotalBudget.Sub(allocated),
	}, nil
}
