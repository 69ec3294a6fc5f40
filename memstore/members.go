package memstore

import (
	"context"

	"github.com/billbatista/acasinha-trips/member"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Members struct{ s *Store }

func (r *Members) Create(_ context.Context, m *member.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.members {
		if existing.TripID == m.TripID && existing.UserID == m.UserID {
			return member.ErrAlreadyMember
		}
	}
	c := *m
	r.s.members = append(r.s.members, &c)
	return nil
}

func (r *Members) GetByID(_ context.Context, tripID, memberID uuid.UUID) (*member.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m := r.find(tripID, memberID); m != nil {
		c := r.s.memberCopy(m)
		return &c, nil
	}
	return nil, nil
}

func (r *Members) GetByUser(_ context.Context, tripID, userID uuid.UUID) (*member.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, m := range r.s.tripMembers(tripID) {
		if m.UserID == userID {
			c := r.s.memberCopy(m)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Members) ListByTrip(_ context.Context, tripID uuid.UUID) ([]member.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	members := make([]member.Member, 0)
	for _, m := range r.s.tripMembers(tripID) {
		members = append(members, r.s.memberCopy(m))
	}
	return members, nil
}

func (r *Members) CountByRole(_ context.Context, tripID uuid.UUID, role member.Role) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.countRole(tripID, role), nil
}

func (r *Members) UpdateRole(_ context.Context, tripID, memberID uuid.UUID, role member.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m := r.find(tripID, memberID)
	if m == nil {
		return member.ErrNotFound
	}
	if m.Role == member.RoleOrganizer && role != member.RoleOrganizer && r.countRole(tripID, member.RoleOrganizer) <= 1 {
		return member.ErrLastOrganizer
	}
	m.Role = role
	return nil
}

func (r *Members) SetAmounts(_ context.Context, tripID, memberID uuid.UUID, credit, spent decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m := r.find(tripID, memberID)
	if m == nil {
		return member.ErrNotFound
	}
	m.CreditAmount = credit
	m.SpentAmount = spent
	m.Balance = credit.Sub(spent)
	return nil
}

func (r *Members) ReconcileBalances(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var fixed int64
	for _, m := range r.s.members {
		want := m.CreditAmount.Sub(m.SpentAmount)
		if !m.Balance.Equal(want) {
			m.Balance = want
			fixed++
		}
	}
	return fixed, nil
}

func (r *Members) find(tripID, memberID uuid.UUID) *member.Member {
	for _, m := range r.s.members {
		if m.TripID == tripID && m.ID == memberID {
			return m
		}
	}
	return nil
}

func (r *Members) countRole(tripID uuid.UUID, role member.Role) int {
	n := 0
	for _, m := range r.s.tripMembers(tripID) {
		if m.Role == role {
			n++
		}
	}
	return n
}
