package server

import (
	"net/http"

	"github.com/billbatista/acasinha-trips/notify"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.Notifier.List(r.Context(), actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []notify.Notification{}
	}
	respondWithJSON(w, http.StatusOK, notifications)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := s.Notifier.MarkRead(r.Context(), id, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// liveUpdates upgrades to a websocket streaming the trip's events. Only
// members may listen.
func (s *Server) liveUpdates(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "tripId")
	if !ok {
		return
	}
	if _, err := s.Members.AssertMembership(r.Context(), tripID, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}

	notify.ServeWS(w, r, s.upgrader, s.Hub, tripID, s.Log)
}
