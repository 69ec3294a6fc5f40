package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/billbatista/acasinha-trips/balance"
	"github.com/billbatista/acasinha-trips/budget"
	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/expense"
	"github.com/billbatista/acasinha-trips/member"
	"github.com/billbatista/acasinha-trips/middleware"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/billbatista/acasinha-trips/session"
	"github.com/billbatista/acasinha-trips/trip"
	"github.com/billbatista/acasinha-trips/user"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type EventRecorder interface {
	Log(event eventlogger.Event)
}

type ActivityReader interface {
	GetByTrip(ctx context.Context, tripID uuid.UUID, limit int) ([]eventlogger.Event, error)
}

type Deps struct {
	Users    user.Repository
	Sessions session.Repository
	Trips    *trip.Service
	Members  *member.Service
	Budget   *budget.Service
	Spending *expense.Service
	Balances *balance.Service
	Notifier *notify.Notifier
	Hub      *notify.Hub
	Activity ActivityReader
	Events   EventRecorder
	Log      *logrus.Logger

	SecureCookies  bool
	AllowedOrigins []string
}

type Server struct {
	Deps
	validate   *validator.Validate
	translator ut.Translator
	upgrader   *websocket.Upgrader
}

func New(deps Deps) *Server {
	v, trans := newValidator(deps.Log)
	return &Server{
		Deps:       deps,
		validate:   v,
		translator: trans,
		upgrader:   notify.NewUpgrader(deps.AllowedOrigins),
	}
}

func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.AuthMiddleware(s.Sessions, s.Log))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s.Events.Log(eventlogger.NewEvent(
			eventlogger.WithType("health_request"),
			eventlogger.WithData(map[string]string{
				"message":     "ok",
				"http_status": strconv.Itoa(http.StatusOK),
			}),
		))
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/auth/logout", s.logout)
			r.Get("/auth/me", s.me)
			r.Get("/users/search", s.searchUsers)

			r.Get("/trips", s.listTrips)
			r.Post("/trips", s.createTrip)
			r.Post("/trips/join", s.joinTrip)

			r.Route("/trips/{id}", func(r chi.Router) {
				r.Get("/", s.getTrip)
				r.Put("/", s.updateTrip)
				r.Put("/status", s.setTripStatus)
				r.Delete("/", s.deleteTrip)

				r.Get("/members", s.listMembers)
				r.Post("/members/add", s.addMember)
				r.Put("/members/{memberId}/role", s.changeRole)
				r.Put("/members/{memberId}/balance", s.setBalance)

				r.Get("/budget", s.budgetOverview)
				r.Post("/budget", s.addBudgetItem)
				r.Delete("/budget/{itemId}", s.removeBudgetItem)

				r.Get("/spending", s.listSpending)
				r.Post("/spending", s.recordSpending)

				r.Get("/balances", s.balances)
				r.Get("/totals", s.totals)
				r.Get("/activity", s.activity)
			})

			r.Get("/notifications", s.listNotifications)
			r.Put("/notifications/{id}/read", s.markNotificationRead)

			r.Get("/ws/{tripId}", s.liveUpdates)
		})
	})

	return router
}

// actor returns the authenticated user. RequireAuth guarantees it is set.
func actor(r *http.Request) uuid.UUID {
	id, _ := middleware.GetUserID(r.Context())
	return id
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
