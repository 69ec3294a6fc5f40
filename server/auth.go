package server

import (
	"net/http"
	"strings"

	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/middleware"
	"github.com/billbatista/acasinha-trips/session"
	"github.com/billbatista/acasinha-trips/user"
)

type registerRequest struct {
	UserID   string `json:"userId" validate:"required,min=3"`
	Username string `json:"username" validate:"required,min=2"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	u, err := user.NewUser(req.UserID, req.Username, req.Password)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if err := s.Users.Register(r.Context(), u); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}

	if !s.startSession(w, r, u) {
		return
	}

	s.Events.Log(eventlogger.NewEvent(
		eventlogger.WithType("user.registered"),
		eventlogger.WithData(map[string]string{"user_id": u.ID.String(), "handle": u.Handle}),
	))
	respondWithJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	u, err := user.Authenticate(r.Context(), s.Users, req.UserID, req.Password)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}

	if !s.startSession(w, r, u) {
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u *user.User) bool {
	sess, err := session.NewSession(u.ID)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return false
	}
	if err := s.Sessions.Create(r.Context(), sess); err != nil {
		s.respondWithDomainError(w, r, err)
		return false
	}
	middleware.SetSessionCookie(w, sess, s.SecureCookies)
	return true
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		if err := s.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			s.Log.WithError(err).Warn("deleting session")
		}
	}
	middleware.ClearSessionCookie(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.Users.GetByID(r.Context(), actor(r))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if u == nil {
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

const searchLimit = 10

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondWithJSON(w, http.StatusOK, []user.User{})
		return
	}

	users, err := s.Users.Search(r.Context(), q, searchLimit)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	respondWithJSON(w, http.StatusOK, users)
}
