package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Members interface {
	AssertMembership(ctx context.Context, tripID, userID uuid.UUID) (*member.Member, error)
	// List fails with member.ErrNotMember when actorID is not in the trip.
	List(ctx context.Context, tripID, actorID uuid.UUID) ([]member.Member, error)
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
	members  Members
	notifier Notifier
	events   EventRecorder
	log      *logrus.Logger
}

func NewService(repo Repository, trips TripFinder, members Members, notifier Notifier, events EventRecorder, log *logrus.Logger) *Service {
	return &Service{
		repo:     repo,
		trips:    trips,
		members:  members,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

type RecordInput struct {
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	SplitType   SplitType
	Shares      []Share
}

// Record stores an expense paid by payerID and debits each participant's
// share. The payer is debited for their own share like anyone else and is
// not credited for what they fronted.
func (s *Service) Record(ctx context.Context, tripID, payerID uuid.UUID, in RecordInput) (*Entry, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}

	members, err := s.members.List(ctx, tripID, payerID)
	if err != nil {
		return nil, err
	}

	entry, err := NewEntry(tripID, payerID, in.Description, in.Amount, in.Date, in.SplitType, in.Shares)
	if err != nil {
		return nil, err
	}

	current := make(map[uuid.UUID]struct{}, len(members))
	var payerName string
	for _, m := range members {
		current[m.UserID] = struct{}{}
		if m.UserID == payerID {
			payerName = m.Username
		}
	}
	for _, share := range entry.ParticipantShares {
		if _, ok := current[share.MemberID]; !ok {
			return nil, ErrInvalidParticipant
		}
	}

	if err := CheckSplit(entry.Amount, entry.ParticipantShares); err != nil {
		return nil, err
	}

	if err := s.repo.Record(ctx, entry); err != nil {
		return nil, err
	}
	entry.PayerName = payerName

	s.notifier.NotifyMembers(ctx, tripID, notify.TypeSpendingAdded, "New expense",
		fmt.Sprintf("%s paid %s for %s", payerName, entry.Amount.StringFixed(2), entry.Description))
	s.notifier.Broadcast(tripID, notify.Event{
		Type:    notify.EventSpendingUpdated,
		Message: fmt.Sprintf("Spending recorded: %s (%s)", entry.Description, entry.Amount.StringFixed(2)),
		Data:    map[string]any{"entry": entry},
	})

	s.alertIfOverBudget(ctx, t)

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("spending.recorded"),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]any{
			"entry_id":     entry.ID.String(),
			"payer_id":     payerID.String(),
			"amount":       entry.Amount.String(),
			"split_type":   entry.SplitType,
			"participants": len(entry.ParticipantShares),
		}),
	))

	s.log.WithFields(logrus.Fields{
		"trip_id":  tripID,
		"entry_id": entry.ID,
		"amount":   entry.Amount.String(),
	}).Info("expense recorded")

	return entry, nil
}

func (s *Service) alertIfOverBudget(ctx context.Context, t *trip.Trip) {
	spent, err := s.repo.SumByTrip(ctx, t.ID)
	if err != nil {
		s.log.WithError(err).WithField("trip_id", t.ID).Warn("failed to total spending")
		return
	}
	if !spent.GreaterThan(t.TotalBudget) {
		return
	}

	s.notifier.NotifyMembers(ctx, t.ID, notify.TypeBudgetAlert, "Budget exceeded",
		fmt.Sprintf("Total spending %s is over the trip budget of %s", spent.StringFixed(2), t.TotalBudget.StringFixed(2)))
}

func (s *Service) List(ctx context.Context, tripID, actorID uuid.UUID) ([]Entry, error) {
	if _, err := s.members.AssertMembership(ctx, tripID, actorID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, tripID)
}
