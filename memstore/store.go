// Package memstore keeps every repository in process memory. It backs the
// service tests and STORAGE=memory runs; all data is lost on restart.
package memstore

import (
	"sync"

	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/expense"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/session"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/billbatista/acasinha-trips/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds all tables behind a single mutex so multi-table operations
// are atomic, like a database transaction.
type Store struct {
	mu            sync.Mutex
	users         []user.User
	sessions      map[string]session.Session
	trips         []trip.Trip
	members       []*member.Member
	items         []budget.Item
	credits       map[uuid.UUID]map[uuid.UUID]decimal.Decimal // item -> member -> share
	history       []budget.HistoryEntry
	entries       []expense.Entry
	notifications []notify.Notification
	events        []eventlogger.Event
}

func New() *Store {
	return &Store{
		sessions: make(map[string]session.Session),
		credits:  make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal),
	}
}

func (s *Store) Users() *Users                 { return &Users{s} }
func (s *Store) Sessions() *Sessions           { return &Sessions{s} }
func (s *Store) Trips() *Trips                 { return &Trips{s} }
func (s *Store) Members() *Members             { return &Members{s} }
func (s *Store) Budget() *Budget               { return &Budget{s} }
func (s *Store) Spending() *Spending           { return &Spending{s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s} }
func (s *Store) Events() *Events               { return &Events{s} }

// Compile-time checks.
var (
	_ user.Repository    = (*Users)(nil)
	_ session.Repository = (*Sessions)(nil)
	_ trip.Repository    = (*Trips)(nil)
	_ member.Repository  = (*Members)(nil)
	_ budget.Repository  = (*Budget)(nil)
	_ expense.Repository = (*Spending)(nil)
	_ notify.Repository  = (*Notifications)(nil)
	_ eventlogger.Store  = (*Events)(nil)
)

// Callers hold s.mu.

func (s *Store) userByID(id uuid.UUID) *user.User {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i]
		}
	}
	return nil
}

func (s *Store) tripMembers(tripID uuid.UUID) []*member.Member {
	var out []*member.Member
	for _, m := range s.members {
		if m.TripID == tripID {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) memberCopy(m *member.Member) member.Member {
	c := *m
	if u := s.userByID(m.UserID); u != nil {
		c.Handle = u.Handle
		c.Username = u.Username
	}
	return c
}
