package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/expense"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Budget struct{ s *Store }

func (r *Budget) AddItem(_ context.Context, item *budget.Item, totalBudget decimal.Decimal) (*budget.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	members := r.s.tripMembers(item.TripID)
	share, err := budget.EqualShare(item.Amount, len(members))
	if err != nil {
		return nil, err
	}
	item.SharePerMember = share
	item.MemberCount = len(members)

	credited := make(map[uuid.UUID]decimal.Decimal, len(members))
	for _, m := range members {
		m.CreditAmount = m.CreditAmount.Add(share)
		m.Balance = m.Balance.Add(share)
		credited[m.ID] = share
	}
	r.s.items = append(r.s.items, *item)
	r.s.credits[item.ID] = credited

	entry := historyEntry(item, budget.EntryAdd, totalBudget)
	r.s.history = append(r.s.history, entry)
	return &entry, nil
}

func (r *Budget) RemoveItem(_ context.Context, tripID, itemID uuid.UUID, totalBudget decimal.Decimal) (*budget.Item, *budget.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := -1
	for i, it := range r.s.items {
		if it.TripID == tripID && it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, budget.ErrNotFound
	}
	item := r.s.items[idx]
	r.s.items = append(r.s.items[:idx], r.s.items[idx+1:]...)

	credited := r.s.credits[itemID]
	for _, m := range r.s.tripMembers(tripID) {
		share, ok := credited[m.ID]
		if !ok {
			continue
		}
		m.CreditAmount = m.CreditAmount.Sub(share)
		m.Balance = m.Balance.Sub(share)
	}
	delete(r.s.credits, itemID)

	entry := historyEntry(&item, budget.EntryRemove, totalBudget)
	r.s.history = append(r.s.history, entry)
	return &item, &entry, nil
}

func (r *Budget) ListItems(_ context.Context, tripID uuid.UUID) ([]budget.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := make([]budget.Item, 0)
	for _, it := range r.s.items {
		if it.TripID == tripID {
			items = append(items, it)
		}
	}
	return items, nil
}

func (r *Budget) ListHistory(_ context.Context, tripID uuid.UUID) ([]budget.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	history := make([]budget.HistoryEntry, 0)
	for i := len(r.s.history) - 1; i >= 0; i-- {
		if r.s.history[i].TripID == tripID {
			history = append(history, r.s.history[i])
		}
	}
	return history, nil
}

func (r *Budget) SumItems(_ context.Context, tripID uuid.UUID) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	total := decimal.Zero
	for _, it := range r.s.items {
		if it.TripID == tripID {
			total = total.Add(it.Amount)
		}
	}
	return total, nil
}

func historyEntry(item *budget.Item, kind budget.EntryType, totalAfter decimal.Decimal) budget.HistoryEntry {
	return budget.HistoryEntry{
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

type Spending struct{ s *Store }

// Record applies nothing unless every participant is a current member.
func (r *Spending) Record(_ context.Context, e *expense.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byUser := make(map[uuid.UUID]int)
	for i, m := range r.s.members {
		if m.TripID == e.TripID {
			byUser[m.UserID] = i
		}
	}

	debits := expense.TotalsByMember(e.ParticipantShares)
	for userID := range debits {
		if _, ok := byUser[userID]; !ok {
			return expense.ErrInvalidParticipant
		}
	}

	for userID, amount := range debits {
		m := r.s.members[byUser[userID]]
		m.SpentAmount = m.SpentAmount.Add(amount)
		m.Balance = m.Balance.Sub(amount)
	}

	c := *e
	c.ParticipantShares = append([]expense.Share(nil), e.ParticipantShares...)
	r.s.entries = append(r.s.entries, c)
	return nil
}

func (r *Spending) List(_ context.Context, tripID uuid.UUID) ([]expense.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries := make([]expense.Entry, 0)
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		e := r.s.entries[i]
		if e.TripID != tripID {
			continue
		}
		e.ParticipantShares = append([]expense.Share(nil), e.ParticipantShares...)
		if u := r.s.userByID(e.UserID); u != nil {
			e.PayerName = u.Username
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	return entries, nil
}

func (r *Spending) SumByTrip(_ context.Context, tripID uuid.UUID) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	total := decimal.Zero
	for _, e := range r.s.entries {
		if e.TripID == tripID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

type Notifications struct{ s *Store }

func (r *Notifications) Create(_ context.Context, n *notify.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r *Notifications) CreateForTrip(_ context.Context, tripID uuid.UUID, kind notify.Type, title, message string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	var n int64
	for _, m := range r.s.tripMembers(tripID) {
		r.s.notifications = append(r.s.notifications, notify.Notification{
			ID:        uuid.New(),
			TripID:    tripID,
			UserID:    m.UserID,
			Type:      kind,
			Title:     title,
			Message:   message,
			CreatedAt: now,
		})
		n++
	}
	return n, nil
}

func (r *Notifications) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]notify.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]notify.Notification, 0)
	for i := len(r.s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.notifications[i].UserID == userID {
			out = append(out, r.s.notifications[i])
		}
	}
	return out, nil
}

func (r *Notifications) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id && r.s.notifications[i].UserID == userID {
			r.s.notifications[i].Read = true
			return nil
		}
	}
	return notify.ErrNotFound
}

type Events struct{ s *Store }

func (r *Events) Save(_ context.Context, e eventlogger.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.events = append(r.s.events, e)
	return nil
}

func (r *Events) GetByTrip(_ context.Context, tripID uuid.UUID, limit int) ([]eventlogger.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id := tripID.String()
	out := make([]eventlogger.Event, 0)
	for i := len(r.s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.events[i].Metadata["trip_id"] == id {
			out = append(out, r.s.events[i])
		}
	}
	return out, nil
}
