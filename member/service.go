package member

import (
	"context"
	"errors"
	"fmt"

	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/billbatista/acasinha-trips/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TripFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
	GetByJoinCode(ctx context.Context, code string) (*trip.Trip, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByHandle(ctx context.Context, handle string) (*user.User, error)
}

type Notifier interface {
	NotifyMembers(ctx context.Context, tripID uuid.UUID, kind notify.Type, title, message string)
	NotifyUser(ctx context.Context, tripID, userID uuid.UUID, kind notify.Type, title, message string)
	Broadcast(tripID uuid.UUID, e notify.Event)
}

type EventRecorder interface {
	Log(event eventlogger.Event)
}

type Service struct {
	repo     Repository
	trips    TripFinder
	users    UserFinder
	notifier Notifier
	events   EventRecorder
	log      *logrus.Logger
}

func NewService(repo Repository, trips TripFinder, users UserFinder, notifier Notifier, events EventRecorder, log *logrus.Logger) *Service {
	return &Service{
		repo:     repo,
		trips:    trips,
		users:    users,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

func (s *Service) AssertMembership(ctx context.Context, tripID, userID uuid.UUID) (*Member, error) {
	m, err := s.repo.GetByUser(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	return m, nil
}

func (s *Service) AssertManager(ctx context.Context, tripID, userID uuid.UUID) (*Member, error) {
	m, err := s.AssertMembership(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if !m.Role.IsManager() {
		return nil, ErrNotManager
	}
	return m, nil
}

func (s *Service) AssertOrganizer(ctx context.Context, tripID, userID uuid.UUID) (*Member, error) {
	m, err := s.AssertMembership(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if m.Role != RoleOrganizer {
		return nil, ErrNotOrganizer
	}
	return m, nil
}

func (s *Service) Join(ctx context.Context, tripID, userID uuid.UUID) (*Member, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, t, userID, userID)
}

// JoinByCode looks the trip up by its join code, ignoring case.
func (s *Service) JoinByCode(ctx context.Context, code string, userID uuid.UUID) (*trip.Trip, *Member, error) {
	t, err := s.trips.GetByJoinCode(ctx, code)
	if errors.Is(err, trip.ErrNotFound) {
		return nil, nil, ErrInvalidJoinCode
	}
	if err != nil {
		return nil, nil, err
	}

	m, err := s.join(ctx, t, userID, userID)
	if err != nil {
		return nil, nil, err
	}
	return t, m, nil
}

// AddByOrganizer adds the user with the given handle to the trip.
func (s *Service) AddByOrganizer(ctx context.Context, tripID, actorID uuid.UUID, handle string) (*Member, error) {
	if _, err := s.AssertOrganizer(ctx, tripID, actorID); err != nil {
		return nil, err
	}

	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	return s.join(ctx, t, u.ID, actorID)
}

func (s *Service) join(ctx context.Context, t *trip.Trip, userID, actorID uuid.UUID) (*Member, error) {
	existing, err := s.repo.GetByUser(ctx, t.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	m := NewMember(t.ID, userID, RoleMember)
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	name := "A new member"
	if u, err := s.users.GetByID(ctx, userID); err == nil && u != nil {
		m.Handle = u.Handle
		m.Username = u.Username
		name = u.Username
	}

	message := fmt.Sprintf("%s joined %s", name, t.Name)
	s.notifier.NotifyMembers(ctx, t.ID, notify.TypeMemberJoined, "New Member Joined", message)
	s.notifier.Broadcast(t.ID, notify.Event{
		Type:    notify.EventMemberJoined,
		Message: message,
		Data:    map[string]any{"member": m},
	})

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("member.joined"),
		eventlogger.WithTrip(t.ID),
		eventlogger.WithData(map[string]string{
			"member_id": m.ID.String(),
			"user_id":   userID.String(),
			"actor_id":  actorID.String(),
		}),
	))

	s.log.WithFields(logrus.Fields{
		"trip_id": t.ID,
		"user_id": userID,
	}).Info("member joined trip")

	return m, nil
}

// ChangeRole lets a manager change another member's role. Only organizers may
// promote to organizer and the trip always keeps at least one organizer.
func (s *Service) ChangeRole(ctx context.Context, tripID, actorID, memberID uuid.UUID, role Role) (*Member, error) {
	actor, err := s.AssertManager(ctx, tripID, actorID)
	if err != nil {
		return nil, err
	}

	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	target, err := s.repo.GetByID(ctx, tripID, memberID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}

	if role == RoleOrganizer && actor.Role != RoleOrganizer {
		return nil, ErrInsufficientRole
	}

	if target.Role == RoleOrganizer && role != RoleOrganizer {
		organizers, err := s.repo.CountByRole(ctx, tripID, RoleOrganizer)
		if err != nil {
			return nil, err
		}
		if organizers <= 1 {
			return nil, ErrLastOrganizer
		}
	}

	if err := s.repo.UpdateRole(ctx, tripID, memberID, role); err != nil {
		return nil, err
	}
	previous := target.Role
	target.Role = role

	message := fmt.Sprintf("Member role updated to %s", role)
	s.notifier.NotifyUser(ctx, tripID, target.UserID, notify.TypeRoleUpdated, "Role Updated",
		fmt.Sprintf("Your role was changed to %s", role))
	s.notifier.Broadcast(tripID, notify.Event{
		Type:    notify.EventMemberRoleUpdated,
		Message: message,
		Data:    map[string]any{"member": target},
	})

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("member.role_changed"),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]string{
			"member_id": memberID.String(),
			"actor_id":  actorID.String(),
			"from":      string(previous),
			"to":        string(role),
		}),
	))

	return target, nil
}

func (s *Service) List(ctx context.Context, tripID, actorID uuid.UUID) ([]Member, error) {
	if _, err := s.AssertMembership(ctx, tripID, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListByTrip(ctx, tripID)
}

// SetBalance overwrites a member's credit and spent totals. Organizers only.
func (s *Service) SetBalance(ctx context.Context, tripID, actorID, memberID uuid.UUID, credit, spent decimal.Decimal) (*Member, error) {
	if _, err := s.AssertOrganizer(ctx, tripID, actorID); err != nil {
		return nil, err
	}

	if credit.IsNegative() || spent.IsNegative() {
		return nil, ErrNegativeAmount
	}

	target, err := s.repo.GetByID(ctx, tripID, memberID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}

	if err := s.repo.SetAmounts(ctx, tripID, memberID, credit, spent); err != nil {
		return nil, err
	}
	target.CreditAmount = credit
	target.SpentAmount = spent
	target.Balance = credit.Sub(spent)

	message := fmt.Sprintf("%s's balance updated", target.Username)
	s.notifier.NotifyMembers(ctx, tripID, notify.TypeBalanceUpdated, "Balance Updated", message)
	s.notifier.Broadcast(tripID, notify.Event{
		Type:    notify.EventMemberBalanceUpdated,
		Message: message,
		Data:    map[string]any{"member": target},
	})

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType("member.balance_set"),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]string{
			"member_id": memberID.String(),
			"actor_id":  actorID.String(),
			"credit":    credit.String(),
			"spent":     spent.String(),
		}),
	))

	return target, nil
}
