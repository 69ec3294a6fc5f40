package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/database"
	"github.com/billbatista/acasinha-trips/expense"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/billbatista/acasinha-trips/user"
	"github.com/sirupsen/logrus"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"message": message})
}

func respondWithValidationError(fields map[string]string, w http.ResponseWriter) {
	respondWithJSON(w, http.StatusBadRequest, map[string]any{
		"message": "Validation failed",
		"errors":  fields,
	})
}

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusUnauthorized, []error{user.ErrBadCredentials}},
	{http.StatusForbidden, []error{
		member.ErrNotMember,
		member.ErrNotManager,
		member.ErrNotOrganizer,
		member.ErrInsufficientRole,
		member.ErrLastOrganizer,
	}},
	{http.StatusNotFound, []error{
		trip.ErrNotFound,
		member.ErrNotFound,
		member.ErrInvalidJoinCode,
		member.ErrUserNotFound,
		budget.ErrNotFound,
		notify.ErrNotFound,
	}},
	{http.StatusConflict, []error{member.ErrAlreadyMember, user.ErrHandleExists, database.ErrConcurrentUpdate}},
	{http.StatusBadRequest, []error{
		expense.ErrSplitMismatch,
		expense.ErrInvalidParticipant,
		expense.ErrNoParticipants,
		expense.ErrEmptyDescription,
		expense.ErrNegativeAmount,
		expense.ErrInvalidSplitType,
		budget.ErrNoMembers,
		budget.ErrNegativeAmount,
		budget.ErrEmptyCategory,
		budget.ErrEmptyDescription,
		member.ErrInvalidRole,
		member.ErrNegativeAmount,
		trip.ErrEmptyName,
		trip.ErrEmptyLocation,
		trip.ErrInvalidBudget,
		trip.ErrInvalidMemberCount,
		trip.ErrInvalidStatus,
		user.ErrInvalidHandle,
		user.ErrInvalidName,
		user.ErrShortPassword,
	}},
}

func statusFor(err error) int {
	for _, group := range errorStatuses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// respondWithDomainError maps a service error to its HTTP status. Unknown
// errors are logged and hidden from the client.
func (s *Server) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		respondWithError(w, status, "Internal server error")
		return
	}
	respondWithError(w, status, err.Error())
}
