package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/feedline/feedline/internal/model"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

func sqlContains(substr string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, substr) })
}

// scheduleRow scans a schedule into the store's column order.
func scheduleRow(s *model.Schedule) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = s.ID
		*(dest[1].(*string)) = s.UserID
		*(dest[2].(*string)) = s.SourceID
		*(dest[3].(**string)) = s.TransformationID
		*(dest[4].(*string)) = s.DestinationID
		*(dest[5].(*string)) = s.Frequency
		*(dest[6].(*string)) = s.TimeOfDay
		*(dest[7].(**int)) = s.DayOfWeek
		*(dest[8].(**int)) = s.DayOfMonth
		*(dest[9].(*bool)) = s.Active
		*(dest[10].(**time.Time)) = s.LastRun
		*(dest[11].(**time.Time)) = s.NextRun
		*(dest[12].(*time.Time)) = s.CreatedAt
		*(dest[13].(*time.Time)) = s.UpdatedAt
		return nil
	}}
}

// sourceRow scans a source into the store's column order.
func sourceRow(src *model.Source) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = src.ID
		*(dest[1].(*string)) = src.UserID
		*(dest[2].(*string)) = src.Name
		*(dest[3].(*string)) = src.Type
		*(dest[4].(*string)) = src.BaseURL
		*(dest[5].(*string)) = src.APIKey
		*(dest[6].(*map[string][]string)) = src.Endpoints
		*(dest[7].(*time.Time)) = src.CreatedAt
		*(dest[8].(*time.Time)) = src.UpdatedAt
		return nil
	}}
}

// destinationRow scans a destination into the store's column order.
func destinationRow(d *model.Destination) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = d.ID
		*(dest[1].(*string)) = d.UserID
		*(dest[2].(*string)) = d.Name
		*(dest[3].(*string)) = d.Type
		*(dest[4].(*string)) = d.FileFormat
		*(dest[5].(*string)) = d.Provider
		*(dest[6].(*map[string]string)) = d.PublicConfig
		*(dest[7].(**string)) = d.EncryptedAccessToken
		*(dest[8].(**string)) = d.EncryptedRefreshToken
		*(dest[9].(**string)) = d.EncryptedClientSecret
		*(dest[10].(*string)) = d.CredentialState
		*(dest[11].(**time.Time)) = d.TokenExpiresAt
		*(dest[12].(*time.Time)) = d.CreatedAt
		*(dest[13].(*time.Time)) = d.UpdatedAt
		return nil
	}}
}

// fakeScheduler records Upsert and Remove calls.
type fakeScheduler struct {
	upserted []*model.Schedule
	removed  []string
	err      error
}

func (f *fakeScheduler) Upsert(_ context.Context, sched *model.Schedule) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, sched)
	return nil
}

func (f *fakeScheduler) Remove(id string) {
	f.removed = append(f.removed, id)
}

// fakeRunner records Run calls and signals completion.
type fakeRunner struct {
	ran  chan *model.Schedule
	err  error
	exec *model.JobExecution
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ran: make(chan *model.Schedule, 1)}
}

func (f *fakeRunner) Run(_ context.Context, sched *model.Schedule) (*model.JobExecution, error) {
	f.ran <- sched
	return f.exec, f.err
}

// fakeManager implements CredentialManager with canned results.
type fakeManager struct {
	authURL     string
	authErr     error
	callbackErr error
	refreshed   *model.Destination
	refreshErr  error
	revokeErr   error

	callbackCode  string
	callbackState string
	revokedID     string
}

func (f *fakeManager) AuthorizationURL(_ context.Context, _, _ string) (string, error) {
	return f.authURL, f.authErr
}

func (f *fakeManager) HandleCallback(_ context.Context, code, state string) error {
	f.callbackCode = code
	f.callbackState = state
	return f.callbackErr
}

func (f *fakeManager) Refresh(_ context.Context, _ string) (*model.Destination, error) {
	return f.refreshed, f.refreshErr
}

func (f *fakeManager) Revoke(_ context.Context, destinationID string) error {
	f.revokedID = destinationID
	return f.revokeErr
}
