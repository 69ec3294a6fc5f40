// Package ledgertest wires the trip ledger services over an in-memory store
// for tests.
package ledgertest

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/billbatista/acasinha-trips/balance"
	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/expense"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/memstore"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/billbatista/acasinha-trips/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Recorder keeps audit events in memory instead of queueing them.
type Recorder struct {
	mu     sync.Mutex
	events []eventlogger.Event
}

func (r *Recorder) Log(e eventlogger.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []eventlogger.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventlogger.Event(nil), r.events...)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

type Env struct {
	Store    *memstore.Store
	Hub      *notify.Hub
	Notifier *notify.Notifier
	Events   *Recorder
	Log      *logrus.Logger

	Trips    *trip.Service
	Members  *member.Service
	Budget   *budget.Service
	Spending *expense.Service
	Balances *balance.Service
}

func New() *Env {
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memstore.New()
	hub := notify.NewHub(64, log)
	notifier := notify.NewNotifier(store.Notifications(), hub, log)
	events := &Recorder{}

	trips := trip.NewService(store.Trips(), notifier, events, log)
	members := member.NewService(store.Members(), trips, store.Users(), notifier, events, log)

	return &Env{
		Store:    store,
		Hub:      hub,
		Notifier: notifier,
		Events:   events,
		Log:      log,
		Trips:    trips,
		Members:  members,
		Budget:   budget.NewService(store.Budget(), trips, members, notifier, events, log),
		Spending: expense.NewService(store.Spending(), trips, members, notifier, events, log),
		Balances: balance.NewService(trips, members, store.Budget(), store.Spending(), log),
	}
}

func (e *Env) User(t testing.TB, handle string) *user.User {
	t.Helper()
	u, err := user.NewUser(handle, handle, "secret1")
	require.NoError(t, err)
	require.NoError(t, e.Store.Users().Register(context.Background(), u))
	return u
}

// Trip creates a trip organised by organizerID with the given total budget.
func (e *Env) Trip(t testing.TB, organizerID uuid.UUID, totalBudget string) *trip.Trip {
	t.Helper()
	tr, err := e.Trips.Create(context.Background(), organizerID, trip.CreateInput{
		Name:            "Goa",
		Location:        "Goa, India",
		StartDate:       time.Now().Add(24 * time.Hour),
		NumberOfMembers: 4,
		TotalBudget:     decimal.RequireFromString(totalBudget),
	})
	require.NoError(t, err)
	return tr
}

func (e *Env) Join(t testing.TB, tripID, userID uuid.UUID) *member.Member {
	t.Helper()
	m, err := e.Members.Join(context.Background(), tripID, userID)
	require.NoError(t, err)
	return m
}

// Member reloads the membership of userID in tripID.
func (e *Env) Member(t testing.TB, tripID, userID uuid.UUID) *member.Member {
	t.Helper()
	m, err := e.Store.Members().GetByUser(context.Background(), tripID, userID)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

// RequireConsistent fails unless every member of the trip has
// balance == credit - spent.
func (e *Env) RequireConsistent(t testing.TB, tripID uuid.UUID) {
	t.Helper()
	members, err := e.Store.Members().ListByTrip(context.Background(), tripID)
	require.NoError(t, err)
	for _, m := range members {
		require.Truef(t, m.Balance.Equal(m.CreditAmount.Sub(m.SpentAmount)),
			"member %s: balance %s != credit %s - spent %s", m.UserID, m.Balance, m.CreditAmount, m.SpentAmount)
	}
}
