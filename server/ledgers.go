package server

import (
	"net/http"

	"github.com/billbatista/acasinha-trips/expense"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type budgetItemRequest struct {
	Category    string   `json:"category" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Amount      *float64 `json:"amount" validate:"required,min=0,max=9999999999"`
}

type shareRequest struct {
	MemberID string   `json:"memberId" validate:"required,uuid"`
	Amount   *float64 `json:"amount" validate:"required,min=0,max=9999999999"`
}

type spendingRequest struct {
	Description       string         `json:"description" validate:"required"`
	Amount            *float64       `json:"amount" validate:"required,min=0,max=9999999999"`
	Date              string         `json:"date"`
	SplitType         string         `json:"splitType" validate:"required,oneof=equal custom"`
	ParticipantShares []shareRequest `json:"participantShares" validate:"required,min=1,dive"`
}

func (s *Server) budgetOverview(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	overview, err := s.Budget.Overview(r.Context(), tripID, actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, overview)
}

func (s *Server) addBudgetItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req budgetItemRequest
	if !s.decode(w, r, &req) {
		return
	}

	item, err := s.Budget.AddItem(r.Context(), tripID, actor(r), req.Category, req.Description, decimal.NewFromFloat(*req.Amount))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (s *Server) removeBudgetItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemId")
	if !ok {
		return
	}

	if err := s.Budget.RemoveItem(r.Context(), tripID, actor(r), itemID); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Budget item removed"})
}

func (s *Server) listSpending(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	entries, err := s.Spending.List(r.Context(), tripID, actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []expense.Entry{}
	}
	respondWithJSON(w, http.StatusOK, entries)
}

func (s *Server) recordSpending(w http.ResponseWriter, r *http.Request) {
	tripID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req spendingRequest
	if !s.decode(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	shares := make([]expense.Share, 0, len(req.ParticipantShares))
	for _, sh := range req.ParticipantShares {
		memberID, err := uuid.Parse(sh.MemberID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid memberId")
			return
		}
		shares = append(shares, expense.Share{MemberID: memberID, Amount: decimal.NewFromFloat(*sh.Amount)})
	}

	entry, err := s.Spending.Record(r.Context(), tripID, actor(r), expense.RecordInput{
		Description: req.Description,
		Amount:      decimal.NewFromFloat(*req.Amount),
		Date:        date,
		SplitType:   expense.SplitType(req.SplitType),
		Shares:      shares,
	})
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}
