package server

import (
	"net/http"

	"github.com/billbatista/acasinha-trips/trip"
	"github.com/shopspring/decimal"
)

type createTripRequest struct {
	Name            string  `json:"name" validate:"required"`
	Description     string  `json:"description"`
	Location        string  `json:"location" validate:"required"`
	StartDate       string  `json:"startDate" validate:"required"`
	NumberOfMembers int     `json:"numberOfMembers" validate:"required,min=1"`
	TotalBudget     float64 `json:"totalBudget" validate:"required,gt=0,max=9999999999"`
}

type tripStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=upcoming current past"`
}

type joinTripRequest struct {
	JoinCode string `json:"joinCode" validate:"required"`
}

func (req createTripRequest) input() (trip.CreateInput, error) {
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return trip.CreateInput{}, err
	}
	return trip.CreateInput{
		Name:            req.Name,
		Description:     req.Description,
		Location:        req.Location,
		StartDate:       startDate,
		NumberOfMembers: req.NumberOfMembers,
		TotalBudget:     decimal.NewFromFloat(req.TotalBudget),
	}, nil
}

func (s *Server) createTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if !s.decode(w, r, &req) {
		return
	}

	in, err := req.input()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid start date")
		return
	}

	t, err := s.Trips.Create(r.Context(), actor(r), in)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, t)
}

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.Trips.ListForUser(r.Context(), actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if trips == nil {
		trips = []trip.Trip{}
	}
	respondWithJSON(w, http.StatusOK, trips)
}

func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	t, err := s.Trips.Get(r.Context(), id)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if _, err := s.Members.AssertMembership(r.Context(), id, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (s *Server) updateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req createTripRequest
	if !s.decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid start date")
		return
	}

	if _, err := s.Trips.Get(r.Context(), id); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if _, err := s.Members.AssertOrganizer(r.Context(), id, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}

	t, err := s.Trips.Update(r.Context(), id, actor(r), in)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (s *Server) setTripStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req tripStatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.Trips.Get(r.Context(), id); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if _, err := s.Members.AssertManager(r.Context(), id, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}

	t, err := s.Trips.SetStatus(r.Context(), id, actor(r), trip.Status(req.Status))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if _, err := s.Trips.Get(r.Context(), id); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if _, err := s.Members.AssertOrganizer(r.Context(), id, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if err := s.Trips.Delete(r.Context(), id, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Trip deleted"})
}

func (s *Server) joinTrip(w http.ResponseWriter, r *http.Request) {
	var req joinTripRequest
	if !s.decode(w, r, &req) {
		return
	}

	t, m, err := s.Members.JoinByCode(r.Context(), req.JoinCode, actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"trip": t, "member": m})
}

const activityLimit = 50

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.Members.AssertMembership(r.Context(), id, actor(r)); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}

	events, err := s.Activity.GetByTrip(r.Context(), id, activityLimit)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}
