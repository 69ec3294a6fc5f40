package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const listLimit = 50

type Notifier struct {
	repo Repository
	hub  *Hub
	log  *logrus.Logger
}

func NewNotifier(repo Repository, hub *Hub, log *logrus.Logger) *Notifier {
	return &Notifier{repo: repo, hub: hub, log: log}
}

// NotifyMembers persists a notification for every member of the trip and
// pushes it to live listeners. Failures are logged and never returned.
func (n *Notifier) NotifyMembers(ctx context.Context, tripID uuid.UUID, kind Type, title, message string) {
	count, err := n.repo.CreateForTrip(ctx, tripID, kind, title, message)
	if err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"trip_id": tripID,
			"type":    kind,
		}).Error("failed to create notifications")
	} else {
		n.log.WithFields(logrus.Fields{
			"trip_id": tripID,
			"type":    kind,
			"count":   count,
		}).Debug("notifications created")
	}

	n.hub.Publish(tripID, Event{
		Type:    EventNotification,
		Title:   title,
		Message: message,
		Data:    map[string]any{"notificationType": kind},
	})
}

// NotifyUser persists a notification for a single member. Like NotifyMembers
// it only logs failures.
func (n *Notifier) NotifyUser(ctx context.Context, tripID, userID uuid.UUID, kind Type, title, message string) {
	if err := n.repo.Create(ctx, NewNotification(tripID, userID, kind, title, message)); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"trip_id": tripID,
			"user_id": userID,
			"type":    kind,
		}).Error("failed to create notification")
	}
}

func (n *Notifier) Broadcast(tripID uuid.UUID, e Event) {
	n.hub.Publish(tripID, e)
}

func (n *Notifier) List(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return n.repo.ListByUser(ctx, userID, listLimit)
}

func (n *Notifier) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return n.repo.MarkRead(ctx, id, userID)
}
