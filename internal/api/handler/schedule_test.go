package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feedline/feedline/internal/api/request"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/store"
)

type scheduleFixture struct {
	db        *mockDB
	scheduler *fakeScheduler
	runner    *fakeRunner
	handler   *Schedule
}

func newScheduleFixture() *scheduleFixture {
	db := &mockDB{}
	sched := &fakeScheduler{}
	runner := newFakeRunner()
	return &scheduleFixture{
		db:        db,
		scheduler: sched,
		runner:    runner,
		handler:   NewSchedule(store.NewStores(db), sched, runner, zerolog.Nop()),
	}
}

func testStoredSchedule() *model.Schedule {
	return &model.Schedule{
		ID:            "sch-1",
		UserID:        "user-1",
		SourceID:      "src-1",
		DestinationID: "dest-1",
		Frequency:     model.FrequencyDaily,
		TimeOfDay:     "08:00",
		Active:        true,
		CreatedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func expectScheduleReferences(db *mockDB) {
	db.On("QueryRow", mock.Anything, sqlContains("FROM sources"), mock.Anything).
		Return(sourceRow(&model.Source{ID: "src-1", UserID: "user-1", Name: "Main Shop", Type: model.SourceShopify}), nil)
	db.On("QueryRow", mock.Anything, sqlContains("FROM destinations"), mock.Anything).
		Return(destinationRow(&model.Destination{ID: "dest-1", UserID: "user-1", Type: model.DestinationSFTP}), nil)
}

func TestScheduleCreate(t *testing.T) {
	f := newScheduleFixture()
	expectScheduleReferences(f.db)
	f.db.On("Exec", mock.Anything, sqlContains("INSERT INTO schedules"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)

	rec := httptest.NewRecorder()
	f.handler.Create(rec, newRequest(http.MethodPost, "/schedules", request.CreateSchedule{
		UserID:        "user-1",
		SourceID:      "src-1",
		DestinationID: "dest-1",
		Frequency:     model.FrequencyDaily,
		TimeOfDay:     "08:00",
	}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, f.scheduler.upserted, 1)
	created := f.scheduler.upserted[0]
	assert.True(t, created.Active)
	assert.Equal(t, "src-1", created.SourceID)
	assert.NotEmpty(t, created.ID)
}

func TestScheduleCreateWeeklyRequiresDayOfWeek(t *testing.T) {
	f := newScheduleFixture()

	rec := httptest.NewRecorder()
	f.handler.Create(rec, newRequest(http.MethodPost, "/schedules", request.CreateSchedule{
		UserID:        "user-1",
		SourceID:      "src-1",
		DestinationID: "dest-1",
		Frequency:     model.FrequencyWeekly,
		TimeOfDay:     "08:00",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "day_of_week")
	f.db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.scheduler.upserted)
}

func TestScheduleCreateUnknownSource(t *testing.T) {
	f := newScheduleFixture()
	f.db.On("QueryRow", mock.Anything, sqlContains("FROM sources"), mock.Anything).
		Return(&mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}, nil)

	rec := httptest.NewRecorder()
	f.handler.Create(rec, newRequest(http.MethodPost, "/schedules", request.CreateSchedule{
		UserID:        "user-1",
		SourceID:      "src-missing",
		DestinationID: "dest-1",
		Frequency:     model.FrequencyDaily,
		TimeOfDay:     "08:00",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "unknown source")
}

func TestScheduleGetNotFound(t *testing.T) {
	f := newScheduleFixture()
	f.db.On("QueryRow", mock.Anything, sqlContains("FROM schedules"), mock.Anything).
		Return(&mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}, nil)

	rec := httptest.NewRecorder()
	f.handler.Get(rec, withChiURLParam(newRequest(http.MethodGet, "/schedules/missing", nil), "scheduleID", "missing"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleListRequiresUserID(t *testing.T) {
	f := newScheduleFixture()

	rec := httptest.NewRecorder()
	f.handler.List(rec, newRequest(http.MethodGet, "/schedules", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "user_id")
}

func TestScheduleList(t *testing.T) {
	f := newScheduleFixture()
	sched := testStoredSchedule()
	f.db.On("Query", mock.Anything, sqlContains("FROM schedules"), mock.Anything).
		Return(&mockRows{scanFuncs: []func(...any) error{scheduleRow(sched).scanFunc}}, nil)

	rec := httptest.NewRecorder()
	f.handler.List(rec, newRequest(http.MethodGet, "/schedules?user_id=user-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sch-1"`)
	assert.Contains(t, rec.Body.String(), `"has_more":false`)
}

func TestScheduleDeactivateDisarmsTimer(t *testing.T) {
	f := newScheduleFixture()
	f.db.On("QueryRow", mock.Anything, sqlContains("FROM schedules"), mock.Anything).
		Return(scheduleRow(testStoredSchedule()), nil)
	f.db.On("Exec", mock.Anything, sqlContains("SET active = false"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)

	rec := httptest.NewRecorder()
	f.handler.Deactivate(rec, withChiURLParam(newRequest(http.MethodPost, "/schedules/sch-1/deactivate", nil), "scheduleID", "sch-1"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// Upsert with Active=false removes the timer inside the scheduler.
	require.Len(t, f.scheduler.upserted, 1)
	assert.False(t, f.scheduler.upserted[0].Active)
}

func TestScheduleRunNowIsAsync(t *testing.T) {
	f := newScheduleFixture()
	f.db.On("QueryRow", mock.Anything, sqlContains("FROM schedules"), mock.Anything).
		Return(scheduleRow(testStoredSchedule()), nil)

	rec := httptest.NewRecorder()
	f.handler.Run(rec, withChiURLParam(newRequest(http.MethodPost, "/schedules/sch-1/run", nil), "scheduleID", "sch-1"))

	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case ran := <-f.runner.ran:
		assert.Equal(t, "sch-1", ran.ID)
	case <-time.After(time.Second):
		t.Fatal("runner was not invoked")
	}
}

func TestScheduleUpdateRearmsTimer(t *testing.T) {
	f := newScheduleFixture()
	f.db.On("QueryRow", mock.Anything, sqlContains("FROM schedules"), mock.Anything).
		Return(scheduleRow(testStoredSchedule()), nil)
	f.db.On("Exec", mock.Anything, sqlContains("UPDATE schedules SET"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)

	dow := 3
	freq := model.FrequencyWeekly
	rec := httptest.NewRecorder()
	f.handler.Update(rec, withChiURLParam(
		newRequest(http.MethodPut, "/schedules/sch-1", request.UpdateSchedule{Frequency: &freq, DayOfWeek: &dow}),
		"scheduleID", "sch-1"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.scheduler.upserted, 1)
	assert.Equal(t, model.FrequencyWeekly, f.scheduler.upserted[0].Frequency)
}
