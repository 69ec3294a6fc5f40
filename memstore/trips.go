package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/expense"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/google/uuid"
)

type Trips struct{ s *Store }

func (r *Trips) Create(_ context.Context, t *trip.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.trips {
		if strings.EqualFold(existing.JoinCode, t.JoinCode) {
			return trip.ErrJoinCodeTaken
		}
	}

	r.s.trips = append(r.s.trips, *t)
	organizer := member.NewMember(t.ID, t.OrganizerID, member.RoleOrganizer)
	organizer.JoinedAt = t.CreatedAt
	r.s.members = append(r.s.members, organizer)
	return nil
}

func (r *Trips) GetByID(_ context.Context, id uuid.UUID) (*trip.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.trips {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *Trips) GetByJoinCode(_ context.Context, code string) (*trip.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code = trip.NormalizeJoinCode(code)
	for _, t := range r.s.trips {
		if strings.ToUpper(t.JoinCode) == code {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *Trips) ListByUser(_ context.Context, userID uuid.UUID) ([]trip.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	joined := make(map[uuid.UUID]bool)
	for _, m := range r.s.members {
		if m.UserID == userID {
			joined[m.TripID] = true
		}
	}

	trips := make([]trip.Trip, 0)
	for _, t := range r.s.trips {
		if joined[t.ID] {
			trips = append(trips, t)
		}
	}
	sort.SliceStable(trips, func(i, j int) bool { return trips[i].StartDate.Before(trips[j].StartDate) })
	return trips, nil
}

func (r *Trips) Update(_ context.Context, t *trip.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.trips {
		if r.s.trips[i].ID == t.ID {
			stored := &r.s.trips[i]
			stored.Name = t.Name
			stored.Description = t.Description
			stored.Location = t.Location
			stored.StartDate = t.StartDate
			stored.NumberOfMembers = t.NumberOfMembers
			stored.TotalBudget = t.TotalBudget
			return nil
		}
	}
	return trip.ErrNotFound
}

func (r *Trips) SetStatus(_ context.Context, id uuid.UUID, status trip.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.trips {
		if r.s.trips[i].ID == id {
			r.s.trips[i].Status = status
			return nil
		}
	}
	return trip.ErrNotFound
}

// Delete cascades to everything the trip owns.
func (r *Trips) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	found := false
	trips := r.s.trips[:0]
	for _, t := range r.s.trips {
		if t.ID == id {
			found = true
			continue
		}
		trips = append(trips, t)
	}
	if !found {
		return trip.ErrNotFound
	}
	r.s.trips = trips

	r.s.members = filter(r.s.members, func(m *member.Member) bool { return m.TripID != id })
	for _, item := range r.s.items {
		if item.TripID == id {
			delete(r.s.credits, item.ID)
		}
	}
	r.s.items = filter(r.s.items, func(i budget.Item) bool { return i.TripID != id })
	r.s.history = filter(r.s.history, func(h budget.HistoryEntry) bool { return h.TripID != id })
	r.s.entries = filter(r.s.entries, func(e expense.Entry) bool { return e.TripID != id })
	r.s.notifications = filter(r.s.notifications, func(n notify.Notification) bool { return n.TripID != id })
	return nil
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
