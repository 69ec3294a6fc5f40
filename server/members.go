package server

import (
	"net/http"

	"github.com/billbatista/acasinha-trips/member"
	"github.com/shopspring/decimal"
)

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=organizer co_organizer member"`
}

type setBalanceRequest struct {
	CreditAmount *float64 `json:"creditAmount" validate:"required,min=0,max=9999999999"`
	SpentAmount  *float64 `json:"spentAmount" validate:"required,min=0,max=9999999999"`
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	members, err := s.Members.List(r.Context(), tripID, actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if members == nil {
		members = []member.Member{}
	}
	respondWithJSON(w, http.StatusOK, members)
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req addMemberRequest
	if !s.decode(w, r, &req) {
		return
	}

	m, err := s.Members.AddByOrganizer(r.Context(), tripID, actor(r), req.UserID)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

func (s *Server) changeRole(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "memberId")
	if !ok {
		return
	}
	var req changeRoleRequest
	if !s.decode(w, r, &req) {
		return
	}

	m, err := s.Members.ChangeRole(r.Context(), tripID, actor(r), memberID, member.Role(req.Role))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

func (s *Server) setBalance(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "memberId")
	if !ok {
		return
	}
	var req setBalanceRequest
	if !s.decode(w, r, &req) {
		return
	}

	m, err := s.Members.SetBalance(r.Context(), tripID, actor(r), memberID,
		decimal.NewFromFloat(*req.CreditAmount), decimal.NewFromFloat(*req.SpentAmount))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

func (s *Server) balances(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	balances, err := s.Balances.Balances(r.Context(), tripID, actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balances)
}

func (s *Server) totals(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	totals, err := s.Balances.Totals(r.Context(), tripID, actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, totals)
}
