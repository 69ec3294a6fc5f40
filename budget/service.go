package budget

import (
	"context"
	"fmt"

	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type MembershipChecker interface {
	AssertMembership(ctx context.Context, tripID, userID uuid.UUID) (*member.Member, error)
}

type TripFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
}

type Notifier interface {
	NotifyMembers(ctx context.Context, tripID uuid.UUID, kind notify.Type, title, message string)
	Broadcast(tripID uuid.UUID, e notify.Event)
}

type EventRecorder interface {
	Log(event eventlogger.Event)
}

type Service struct {
	repo     Repository
	trips    TripFinder
	members  MembershipChecker
	notifier Notifier
	events   EventRecorder
	log      *logrus.Logger
}

func NewService(repo Repository, trips TripFinder, members MembershipChecker, notifier Notifier, events EventRecorder, log *logrus.Logger) *Service {
	return &Service{
		repo:     repo,
		trips:    trips,
		members:  members,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

// AddItem allocates part of the trip budget and credits every current member
// with an equal share of it. The trip's total budget does not change.
func (s *Service) AddItem(ctx context.Context, tripID, actorID uuid.UUID, category, description string, amount decimal.Decimal) (*Item, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.AssertMembership(ctx, tripID, actorID); err != nil {
		return nil, err
	}

	item, err := NewItem(tripID, category, description, amount)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.AddItem(ctx, item, t.TotalBudget)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyMembers(ctx, tripID, notify.TypeBudgetAlert, "Budget updated",
		fmt.Sprintf("%s: %s added (%s for you)", item.Category, item.Amount.StringFixed(2), item.SharePerMember.StringFixed(2)))
	s.notifier.Broadcast(tripID, notify.Event{
		Type:    notify.EventBudgetUpdated,
		Message: fmt.Sprintf("Budget updated: %s (%s)", item.Category, item.Amount.StringFixed(2)),
		Data:    map[string]any{"item": item},
	})

	s.record(entry, actorID, "budget.item_added", item)
	return item, nil
}

// RemoveItem deletes an allocation and takes back the share it credited.
func (s *Service) RemoveItem(ctx context.Context, tripID, actorID, itemID uuid.UUID) error {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return err
	}
	if _, err := s.members.AssertMembership(ctx, tripID, actorID); err != nil {
		return err
	}

	item, entry, err := s.repo.RemoveItem(ctx, tripID, itemID, t.TotalBudget)
	if err != nil {
		return err
	}

	s.notifier.NotifyMembers(ctx, tripID, notify.TypeBudgetAlert, "Budget updated",
		fmt.Sprintf("%s: %s removed (%s from you)", item.Category, item.Amount.StringFixed(2), item.SharePerMember.StringFixed(2)))
	s.notifier.Broadcast(tripID, notify.Event{
		Type:    notify.EventBudgetUpdated,
		Message: fmt.Sprintf("Budget updated: %s removed", item.Category),
		Data:    map[string]any{"itemId": item.ID},
	})

	s.record(entry, actorID, "budget.item_removed", item)
	return nil
}

func (s *Service) Overview(ctx context.Context, tripID, actorID uuid.UUID) (*Overview, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.AssertMembership(ctx, tripID, actorID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, tripID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, tripID)
	if err != nil {
		return nil, err
	}

	return &Overview{Items: items, History: history, TotalBudget: t.TotalBudget}, nil
}

func (s *Service) record(entry *HistoryEntry, actorID uuid.UUID, kind string, item *Item) {
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(kind),
		eventlogger.WithTrip(item.TripID),
		eventlogger.WithData(map[string]string{
			"item_id":          item.ID.String(),
			"history_id":       entry.ID.String(),
			"actor_id":         actorID.String(),
			"category":         item.Category,
			"amount":           item.Amount.String(),
			"share_per_member": item.SharePerMember.String(),
			"member_count":     fmt.Sprint(item.MemberCount),
		}),
	))

	s.log.WithFields(logrus.Fields{
		"trip_id": item.TripID,
		"item_id": item.ID,
		"type":    entry.Type,
		"amount":  item.Amount.String(),
	}).Info("budget ledger updated")
}
