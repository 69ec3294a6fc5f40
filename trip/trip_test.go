package trip

import (
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/billbatista/acasinha-trips/eventlogger"
	"github.com/billbatista/acasinha-trips/notify"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrip(t *testing.T) {
	start := time.Now().Add(48 * time.Hour)
	budget := decimal.NewFromInt(5000)

	tests := []struct {
		name     string
		tripName string
		location string
		members  int
		budget   decimal.Decimal
		wantErr  error
	}{
		{"valid", "Goa", "Goa, India", 4, budget, nil},
		{"blank name", "  ", "Goa, India", 4, budget, ErrEmptyName},
		{"blank location", "Goa", "", 4, budget, ErrEmptyLocation},
		{"zero budget", "Goa", "Goa, India", 4, decimal.Zero, ErrInvalidBudget},
		{"no members planned", "Goa", "Goa, India", 0, budget, ErrInvalidMemberCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTrip(tt.tripName, "", tt.location, start, tt.members, tt.budget, uuid.New())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tr.JoinCode, joinCodeLength)
			assert.Equal(t, NormalizeJoinCode(tr.JoinCode), tr.JoinCode)
		})
	}
}

func TestNewTrip_InitialStatus(t *testing.T) {
	budget := decimal.NewFromInt(1000)

	later, err := NewTrip("Goa", "", "Goa, India", time.Now().Add(time.Hour), 2, budget, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, later.Status)

	started, err := NewTrip("Goa", "", "Goa, India", time.Now().Add(-time.Hour), 2, budget, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusCurrent, started.Status)
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPast.Valid())
	assert.False(t, Status("cancelled").Valid())
	assert.False(t, Status("").Valid())
}

func TestNormalizeJoinCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeJoinCode(" ab12cd34 "))
}

type stubRepo struct {
	Repository
	collisions int
	created    []*Trip
	stored     *Trip
	updated    []*Trip
	statuses   []Status
}

func (s *stubRepo) Create(_ context.Context, t *Trip) error {
	if s.collisions > 0 {
		s.collisions--
		return ErrJoinCodeTaken
	}
	s.created = append(s.created, t)
	return nil
}

func (s *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*Trip, error) {
	if s.stored == nil || s.stored.ID != id {
		return nil, nil
	}
	copied := *s.stored
	return &copied, nil
}

func (s *stubRepo) Update(_ context.Context, t *Trip) error {
	s.updated = append(s.updated, t)
	return nil
}

func (s *stubRepo) SetStatus(_ context.Context, _ uuid.UUID, status Status) error {
	s.statuses = append(s.statuses, status)
	return nil
}

type events []eventlogger.Event

func (e *events) Log(evt eventlogger.Event) { *e = append(*e, evt) }

type sent struct {
	kind  notify.Type
	title string
}

type stubNotifier struct {
	sent      []sent
	broadcast []notify.Event
}

func (n *stubNotifier) NotifyMembers(_ context.Context, _ uuid.UUID, kind notify.Type, title, _ string) {
	n.sent = append(n.sent, sent{kind: kind, title: title})
}

func (n *stubNotifier) Broadcast(_ uuid.UUID, e notify.Event) {
	n.broadcast = append(n.broadcast, e)
}

func newTestService(repo Repository) (*Service, *events) {
	svc, rec, _ := newNotifyingService(repo)
	return svc, rec
}

func newNotifyingService(repo Repository) (*Service, *events, *stubNotifier) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	rec := &events{}
	n := &stubNotifier{}
	return NewService(repo, n, rec, log), rec, n
}

func TestService_Create(t *testing.T) {
	in := CreateInput{
		Name:            "Goa",
		Location:        "Goa, India",
		StartDate:       time.Now(),
		NumberOfMembers: 3,
		TotalBudget:     decimal.NewFromInt(900),
	}

	t.Run("retries join code collisions", func(t *testing.T) {
		repo := &stubRepo{collisions: 2}
		svc, rec := newTestService(repo)

		tr, err := svc.Create(context.Background(), uuid.New(), in)
		require.NoError(t, err)
		require.Len(t, repo.created, 1)
		assert.Equal(t, tr.ID, repo.created[0].ID)
		require.Len(t, *rec, 1)
		assert.Equal(t, "trip.created", (*rec)[0].Type)
		assert.Equal(t, tr.ID.String(), (*rec)[0].Metadata["trip_id"])
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		repo := &stubRepo{collisions: maxJoinCodeAttempts}
		svc, rec := newTestService(repo)

		_, err := svc.Create(context.Background(), uuid.New(), in)
		assert.ErrorIs(t, err, ErrJoinCodeTaken)
		assert.Empty(t, *rec)
	})
}

func TestService_GetMissing(t *testing.T) {
	svc, _ := newTestService(&stubRepo{})

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Update(t *testing.T) {
	existing, err := NewTrip("Goa", "", "Goa, India", time.Now().Add(time.Hour), 4, decimal.NewFromInt(5000), uuid.New())
	require.NoError(t, err)

	t.Run("revises details and tells members", func(t *testing.T) {
		repo := &stubRepo{stored: existing}
		svc, rec, n := newNotifyingService(repo)

		tr, err := svc.Update(context.Background(), existing.ID, existing.OrganizerID, CreateInput{
			Name:            "Goa again",
			Location:        "Panaji",
			StartDate:       existing.StartDate,
			NumberOfMembers: 6,
			TotalBudget:     decimal.NewFromInt(7500),
		})
		require.NoError(t, err)
		assert.Equal(t, "Goa again", tr.Name)
		assert.Equal(t, existing.JoinCode, tr.JoinCode)
		require.Len(t, repo.updated, 1)
		assert.True(t, repo.updated[0].TotalBudget.Equal(decimal.NewFromInt(7500)))

		require.Len(t, n.sent, 1)
		assert.Equal(t, notify.TypeTripUpdate, n.sent[0].kind)
		require.Len(t, n.broadcast, 1)
		assert.Equal(t, notify.EventTripUpdated, n.broadcast[0].Type)
		require.Len(t, *rec, 1)
		assert.Equal(t, "trip.updated", (*rec)[0].Type)
	})

	t.Run("rejects invalid details", func(t *testing.T) {
		repo := &stubRepo{stored: existing}
		svc, rec, n := newNotifyingService(repo)

		_, err := svc.Update(context.Background(), existing.ID, existing.OrganizerID, CreateInput{
			Name:            "Goa",
			Location:        "Goa, India",
			NumberOfMembers: 4,
			TotalBudget:     decimal.Zero,
		})
		assert.ErrorIs(t, err, ErrInvalidBudget)
		assert.Empty(t, repo.updated)
		assert.Empty(t, n.sent)
		assert.Empty(t, *rec)
	})

	t.Run("missing trip", func(t *testing.T) {
		svc, _, _ := newNotifyingService(&stubRepo{})

		_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), CreateInput{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_SetStatus(t *testing.T) {
	existing, err := NewTrip("Goa", "", "Goa, India", time.Now().Add(time.Hour), 4, decimal.NewFromInt(5000), uuid.New())
	require.NoError(t, err)

	t.Run("notifies members of the start", func(t *testing.T) {
		repo := &stubRepo{stored: existing}
		svc, rec, n := newNotifyingService(repo)

		tr, err := svc.SetStatus(context.Background(), existing.ID, existing.OrganizerID, StatusCurrent)
		require.NoError(t, err)
		assert.Equal(t, StatusCurrent, tr.Status)
		assert.Equal(t, []Status{StatusCurrent}, repo.statuses)

		require.Len(t, n.sent, 1)
		assert.Equal(t, notify.TypeTripStart, n.sent[0].kind)
		assert.Equal(t, "Trip current", n.sent[0].title)
		require.Len(t, n.broadcast, 1)
		assert.Equal(t, notify.EventStatusUpdate, n.broadcast[0].Type)
		assert.Equal(t, StatusCurrent, n.broadcast[0].Data["status"])

		require.Len(t, *rec, 1)
		assert.Equal(t, "trip.status_changed", (*rec)[0].Type)
		data := (*rec)[0].Data.(map[string]string)
		assert.Equal(t, "upcoming", data["from"])
		assert.Equal(t, "current", data["to"])
	})

	t.Run("unknown status", func(t *testing.T) {
		repo := &stubRepo{stored: existing}
		svc, _, n := newNotifyingService(repo)

		_, err := svc.SetStatus(context.Background(), existing.ID, existing.OrganizerID, Status("cancelled"))
		assert.ErrorIs(t, err, ErrInvalidStatus)
		assert.Empty(t, repo.statuses)
		assert.Empty(t, n.sent)
	})
}

func TestRepository_Create(t *testing.T) {
	tr, err := NewTrip("Goa", "beach", "Goa, India", time.Now(), 4, decimal.NewFromInt(5000), uuid.New())
	require.NoError(t, err)

	t.Run("seeds organizer", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO trips`)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO trip_members`)).
			WithArgs(sqlmock.AnyArg(), tr.ID, tr.OrganizerID, tr.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewRepository(db).Create(context.Background(), tr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("join code collision", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO trips`)).WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err = NewRepository(db).Create(context.Background(), tr)
		assert.ErrorIs(t, err, ErrJoinCodeTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetByJoinCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id, organizer := uuid.New(), uuid.New()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "location", "start_date", "number_of_members", "total_budget", "organizer_id", "join_code", "status", "created_at"}).
		AddRow(id.String(), "Goa", "", "Goa, India", time.Now(), 4, "5000.0000", organizer.String(), "AB12CD34", "current", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE upper(join_code) = $1`)).
		WithArgs("AB12CD34").
		WillReturnRows(rows)

	tr, err := NewRepository(db).GetByJoinCode(context.Background(), "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, id, tr.ID)
	assert.Equal(t, organizer, tr.OrganizerID)
	assert.True(t, tr.TotalBudget.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, StatusCurrent, tr.Status)
}

func TestRepository_SetStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trips SET status = $2 WHERE id = $1`)).
		WithArgs(id, "past").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trips SET status = $2 WHERE id = $1`)).
		WithArgs(id, "current").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRepository(db)
	require.NoError(t, repo.SetStatus(context.Background(), id, StatusPast))
	assert.ErrorIs(t, repo.SetStatus(context.Background(), id, StatusCurrent), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM trips WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRepository(db).Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}
