package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxJoinCodeAttempts = 5

type EventRecorder interface {
	Log(event eventlogger.Event)
}

type Notifier interface {
	NotifyMembers(ctx context.Context, tripID uuid.UUID, kind notify.Type, title, message string)
	Broadcast(tripID uuid.UUID, e notify.Event)
}

type Service struct {
	repo     Repository
	notifier Notifier
	events   EventRecorder
	log      *logrus.Logger
}

func NewService(repo Repository, notifier Notifier, events EventRecorder, log *logrus.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, events: events, log: log}
}

type CreateInput struct {
	Name            string
	Description     string
	Location        string
	StartDate       time.Time
	NumberOfMembers int
	TotalBudget     decimal.Decimal
}

// Create builds a trip owned by organizerID. A fresh join code is drawn when
// the generated one collides with an existing trip.
func (s *Service) Create(ctx context.Context, organizerID uuid.UUID, in CreateInput) (*Trip, error) {
	for attempt := 1; ; attempt++ {
		t, err := NewTrip(in.Name, in.Description, in.Location, in.StartDate, in.NumberOfMembers, in.TotalBudget, organizerID)
		if err != nil {
			return nil, err
		}

		err = s.repo.Create(ctx, t)
		if errors.Is(err, ErrJoinCodeTaken) && attempt < maxJoinCodeAttempts {
			s.log.WithField("attempt", attempt).Warn("join code collision, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.events.Log(eventlogger.NewEvent(
			eventlogger.WithType("trip.created"),
			eventlogger.WithTrip(t.ID),
			eventlogger.WithData(map[string]string{
				"trip_id":      t.ID.String(),
				"organizer_id": organizerID.String(),
				"total_budget": t.TotalBudget.String(),
			}),
		))
		return t, nil
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Trip, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) GetByJoinCode(ctx context.Context, code string) (*Trip, error) {
	t, err := s.repo.GetByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Trip, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update replaces the trip's details. Callers check that actorID is an
// organizer.
func (s *Service) Update(ctx context.Context, id, actorID uuid.UUID, in CreateInput) (*Trip, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Revise(in.Name, in.Description, in.Location, in.StartDate, in.NumberOfMembers, in.TotalBudget); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("%s details were updated", t.Name)
	s.notifier.NotifyMembers(ctx, t.ID, notify.TypeTripUpdate, "Trip Updated", message)
	s.notifier.Broadcast(t.ID, notify.Event{
		Type:    notify.EventTripUpdated,
		Message: message,
		Data:    map[string]any{"trip": t},
	})

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("trip.updated"),
		eventlogger.WithTrip(t.ID),
		eventlogger.WithData(map[string]string{
			"actor_id":     actorID.String(),
			"total_budget": t.TotalBudget.String(),
		}),
	))
	return t, nil
}

// SetStatus moves the trip to upcoming, current or past and tells every member.
func (s *Service) SetStatus(ctx context.Context, id, actorID uuid.UUID, status Status) (*Trip, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	previous := t.Status
	t.Status = status

	message := fmt.Sprintf("%s is now %s", t.Name, status)
	s.notifier.NotifyMembers(ctx, t.ID, notify.TypeTripStart, fmt.Sprintf("Trip %s", status), message)
	s.notifier.Broadcast(t.ID, notify.Event{
		Type:    notify.EventStatusUpdate,
		Message: message,
		Data:    map[string]any{"status": status},
	})

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("trip.status_changed"),
		eventlogger.WithTrip(t.ID),
		eventlogger.WithData(map[string]string{
			"actor_id": actorID.String(),
			"from":     string(previous),
			"to":       string(status),
		}),
	))
	return t, nil
}

// Delete removes the trip. Callers check that actorID is an organizer.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("trip.deleted"),
		eventlogger.WithData(map[string]string{
			"trip_id":  id.String(),
			"actor_id": actorID.String(),
		}),
	))
	return nil
}
