package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestHub_PublishOrder(t *testing.T) {
	hub := NewHub(16, quietLogger())
	tripID := uuid.New()
	a := hub.Subscribe(tripID)
	b := hub.Subscribe(tripID)

	for _, kind := range []string{"one", "two", "three"} {
		hub.Publish(tripID, Event{Type: kind})
	}

	for _, l := range []*Listener{a, b} {
		for _, want := range []string{"one", "two", "three"} {
			got := <-l.Events()
			assert.Equal(t, want, got.Type)
		}
	}
}

func TestHub_IsolatesTrips(t *testing.T) {
	hub := NewHub(4, quietLogger())
	mine := hub.Subscribe(uuid.New())

	hub.Publish(uuid.New(), Event{Type: "elsewhere"})

	assert.Len(t, mine.Events(), 0)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(4, quietLogger())
	tripID := uuid.New()
	l := hub.Subscribe(tripID)
	require.Equal(t, 1, hub.ListenerCount(tripID))

	hub.Unsubscribe(l)
	hub.Unsubscribe(l)

	assert.Equal(t, 0, hub.ListenerCount(tripID))
	_, open := <-l.Events()
	assert.False(t, open)

	hub.Publish(tripID, Event{Type: "after"})
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1, quietLogger())
	tripID := uuid.New()
	l := hub.Subscribe(tripID)

	hub.Publish(tripID, Event{Type: "first"})
	hub.Publish(tripID, Event{Type: "second"})

	assert.Equal(t, "first", (<-l.Events()).Type)
	assert.Len(t, l.Events(), 0)
}

func TestEvent_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(Event{
		Type:    EventBudgetUpdated,
		Message: "Budget item added",
		Data:    map[string]any{"amount": 200, "type": "ignored"},
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "budget_updated", got["type"])
	assert.Equal(t, "Budget item added", got["message"])
	assert.Equal(t, float64(200), got["amount"])
	assert.NotContains(t, got, "title")
}

type fakeRepo struct {
	Repository
	err     error
	calls   int
	created []*Notification
}

func (f *fakeRepo) Create(_ context.Context, n *Notification) error {
	f.calls++
	f.created = append(f.created, n)
	return f.err
}

func (f *fakeRepo) CreateForTrip(context.Context, uuid.UUID, Type, string, string) (int64, error) {
	f.calls++
	return 2, f.err
}

func TestNotifier_NotifyMembersSwallowsErrors(t *testing.T) {
	hub := NewHub(4, quietLogger())
	tripID := uuid.New()
	l := hub.Subscribe(tripID)
	repo := &fakeRepo{err: errors.New("insert failed")}

	n := NewNotifier(repo, hub, quietLogger())
	n.NotifyMembers(context.Background(), tripID, TypeSpendingAdded, "New expense", "Lunch: 200")

	assert.Equal(t, 1, repo.calls)
	e := <-l.Events()
	assert.Equal(t, EventNotification, e.Type)
	assert.Equal(t, TypeSpendingAdded, e.Data["notificationType"])
}

func TestNotifier_NotifyUser(t *testing.T) {
	hub := NewHub(4, quietLogger())
	tripID, userID := uuid.New(), uuid.New()
	l := hub.Subscribe(tripID)

	repo := &fakeRepo{}
	NewNotifier(repo, hub, quietLogger()).NotifyUser(context.Background(), tripID, userID, TypeRoleUpdated, "Role Updated", "You are now co_organizer")

	require.Len(t, repo.created, 1)
	got := repo.created[0]
	assert.Equal(t, tripID, got.TripID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, TypeRoleUpdated, got.Type)
	assert.False(t, got.Read)
	assert.Len(t, l.Events(), 0)

	failing := &fakeRepo{err: errors.New("insert failed")}
	NewNotifier(failing, hub, quietLogger()).NotifyUser(context.Background(), tripID, userID, TypeRoleUpdated, "Role Updated", "again")
	assert.Equal(t, 1, failing.calls)
}

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n := NewNotification(uuid.New(), uuid.New(), TypeRoleUpdated, "Role Updated", "You are now member")
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO notifications`)).
		WithArgs(n.ID, n.TripID, n.UserID, TypeRoleUpdated, "Role Updated", "You are now member", false, n.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewRepository(db).Create(context.Background(), n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateForTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tripID := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO notifications`)).
		WithArgs(tripID, TypeBudgetAlert, "Budget Updated", "Food: Lunch added").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewRepository(db).CreateForTrip(context.Background(), tripID, TypeBudgetAlert, "Budget Updated", "Food: Lunch added")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id, userID := uuid.New(), uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET read = true`)).
		WithArgs(id, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRepository(db).MarkRead(context.Background(), id, userID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServeWS(t *testing.T) {
	hub := NewHub(8, quietLogger())
	tripID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, NewUpgrader(nil), hub, tripID, quietLogger())
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ListenerCount(tripID) == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(tripID, Event{Type: EventSpendingUpdated, Message: "New expense"})

	var got map[string]any
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "spending_updated", got["type"])

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ListenerCount(tripID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	upgrader := NewUpgrader([]string{"https://trips.example.com/"})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://api.example.com:5000", true},
		{"allowed", "https://TRIPS.example.com", true},
		{"other site", "https://evil.example.net", false},
		{"allowed host other scheme", "http://trips.example.com", false},
		{"garbage", "://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://api.example.com:5000/api/ws/x", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, upgrader.CheckOrigin(r))
		})
	}
}

func TestServeWS_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(8, quietLogger())
	tripID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, NewUpgrader([]string{"https://trips.example.com"}), hub, tripID, quietLogger())
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example.net"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.ListenerCount(tripID))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://trips.example.com"}})
	require.NoError(t, err)
	conn.Close()
}
