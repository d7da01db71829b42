package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lebroads/pothole-map/internal/boundary"
	"github.com/lebroads/pothole-map/internal/cache"
	"github.com/lebroads/pothole-map/internal/identity"
	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/internal/render"
	"github.com/lebroads/pothole-map/internal/repository"
	"github.com/lebroads/pothole-map/internal/service"
)

const square = `{"type":"Polygon","coordinates":[[[0,0],[0,10],[10,10],[10,0],[0,0]]]}`

// memStore stands in for the report and vote repositories
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	reports map[int64]models.Report
	votes   map[int64]map[string]int
}

func newMemStore() *memStore {
	return &memStore{reports: map[int64]models.Report{}, votes: map[int64]map[string]int{}}
}

func (m *memStore) Create(ctx context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reports {
		if existing.Position == r.Position && existing.RoadSide == r.RoadSide &&
			existing.Descriptor == r.Descriptor && existing.Intensity == r.Intensity {
			return repository.ErrDuplicateReport
		}
	}
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now().UTC()
	m.reports[r.ID] = *r
	return nil
}

func (m *memStore) Upsert(ctx context.Context, v *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[v.ReportID]; !ok {
		return repository.ErrReportNotFound
	}
	if m.votes[v.ReportID] == nil {
		m.votes[v.ReportID] = map[string]int{}
	}
	m.votes[v.ReportID][v.VoterID] = v.Value
	return nil
}

func (m *memStore) GetAggregates(ctx context.Context, id int64) (models.VoteAggregates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var agg models.VoteAggregates
	for _, v := range m.votes[id] {
		if v > 0 {
			agg.Upvotes++
		} else {
			agg.Downvotes++
		}
		agg.Score += v
	}
	return agg, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	m.mu.Lock()
	r, ok := m.reports[id]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	agg, _ := m.GetAggregates(ctx, id)
	r.VoteAggregates = agg
	return &r, nil
}

func (m *memStore) Get(ctx context.Context, reportID int64, voterID string) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.votes[reportID][voterID]
	if !ok {
		return nil, repository.ErrVoteNotFound
	}
	return &models.Vote{ReportID: reportID, VoterID: voterID, Value: value}, nil
}

type testServer struct {
	mux      *http.ServeMux
	store    *memStore
	cache    *cache.Cache
	identity *identity.Store
	boundary *boundary.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	b := boundary.NewService(boundary.BytesSource{Name: "square", Data: []byte(square)})
	require.NoError(t, b.Load(context.Background()))

	store := newMemStore()
	c := cache.New(b, nil)
	ids := identity.NewStore(nil)

	drafts := NewDraftHandler(service.NewDraftSession(b, store, c, nil), ids)
	votes := NewVoteHandler(service.NewVoteService(store, store, c, nil), store, ids)
	reports := NewReportHandler(c, store)
	bounds := NewBoundaryHandler(b)
	idh := NewIdentityHandler(ids)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/reports", reports.ListReports)
	mux.HandleFunc("GET /api/v1/reports/{id}", reports.GetReport)
	mux.HandleFunc("POST /api/v1/reports/{id}/votes", votes.CastVote)
	mux.HandleFunc("GET /api/v1/reports/{id}/votes/controls", votes.GetVoteControls)
	mux.HandleFunc("GET /api/v1/draft", drafts.GetDraft)
	mux.HandleFunc("PATCH /api/v1/draft", drafts.Update)
	mux.HandleFunc("POST /api/v1/draft/arm", drafts.Arm)
	mux.HandleFunc("POST /api/v1/draft/place", drafts.Place)
	mux.HandleFunc("POST /api/v1/draft/save", drafts.Save)
	mux.HandleFunc("POST /api/v1/draft/cancel", drafts.Cancel)
	mux.HandleFunc("GET /api/v1/boundary", bounds.GetBoundary)
	mux.HandleFunc("GET /api/v1/boundary/contains", bounds.Contains)
	mux.HandleFunc("GET /api/v1/identity", idh.GetIdentity)
	mux.HandleFunc("POST /api/v1/identity/safety-notice", idh.AcknowledgeSafetyNotice)

	return &testServer{mux: mux, store: store, cache: c, identity: ids, boundary: b}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestDraftFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decode[DraftResponse](t, rec).State)

	rec = s.do(t, http.MethodPost, "/api/v1/draft/place", map[string]float64{"lat": 5, "lng": 5})
	assert.Equal(t, http.StatusConflict, rec.Code, "placing requires arming first")

	rec = s.do(t, http.MethodPost, "/api/v1/draft/arm", nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/draft/arm", ArmRequest{AcknowledgeSafetyNotice: true, Remember: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "armed", decode[DraftResponse](t, rec).State)
	assert.True(t, s.identity.Acknowledged(identity.KeySafetyNotice))

	rec = s.do(t, http.MethodPost, "/api/v1/draft/place", map[string]float64{"lat": -1, "lng": 5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/draft/place", map[string]float64{"lat": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/draft/place", map[string]float64{"lat": 5, "lng": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	placed := decode[DraftResponse](t, rec)
	assert.Equal(t, "placed", placed.State)
	require.NotNil(t, placed.Draft)
	assert.Equal(t, "5.000000, 5.000000", placed.Draft.Coordinates)
	assert.Equal(t, "Middle", placed.Draft.RoadSide)
	assert.Equal(t, 3, placed.Draft.Severity.Intensity)

	rec = s.do(t, http.MethodPatch, "/api/v1/draft", map[string]int{"intensity": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/draft", map[string]string{"road_side": "Shoulder"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/draft", map[string]any{"road_side": "left", "descriptor": " near the roundabout ", "intensity": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	edited := decode[DraftResponse](t, rec)
	assert.Equal(t, "Left", edited.Draft.RoadSide)
	assert.Equal(t, "★★★★☆ (4/5)", edited.Draft.Severity.Label)

	rec = s.do(t, http.MethodPost, "/api/v1/draft/save", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	popup := decode[render.Popup](t, rec)
	assert.Equal(t, "near the roundabout", popup.Descriptor)
	assert.Equal(t, "5.00000, 5.00000", popup.Coordinates)
	assert.Equal(t, 1, s.cache.Len())

	rec = s.do(t, http.MethodGet, "/api/v1/draft", nil)
	assert.Equal(t, "idle", decode[DraftResponse](t, rec).State)

	// the remembered acknowledgment skips the notice
	rec = s.do(t, http.MethodPost, "/api/v1/draft/arm", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s.do(t, http.MethodPost, "/api/v1/draft/place", map[string]float64{"lat": 5, "lng": 5})
	s.do(t, http.MethodPatch, "/api/v1/draft", map[string]any{"road_side": "Left", "descriptor": "near the roundabout", "intensity": 4})
	rec = s.do(t, http.MethodPost, "/api/v1/draft/save", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "identical")
	assert.Equal(t, "placed", decode[DraftResponse](t, s.do(t, http.MethodGet, "/api/v1/draft", nil)).State)

	rec = s.do(t, http.MethodPost, "/api/v1/draft/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decode[DraftResponse](t, rec).State)
}

func TestDraftRejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/draft/arm", map[string]any{"acknowledge": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoteHandler(t *testing.T) {
	s := newTestServer(t)
	const voter = "3f2b8c1e-7d4a-4e0b-9a61-2c5d8e9f0a1b"

	s.do(t, http.MethodPost, "/api/v1/draft/arm", ArmRequest{AcknowledgeSafetyNotice: true})
	s.do(t, http.MethodPost, "/api/v1/draft/place", map[string]float64{"lat": 2, "lng": 3})
	rec := s.do(t, http.MethodPost, "/api/v1/draft/save", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[render.Popup](t, rec).ReportID

	path := "/api/v1/reports/" + strconv.FormatInt(id, 10) + "/votes"

	rec = s.do(t, http.MethodPost, path, CastVoteRequest{Value: 0}, VoterIDHeader, voter)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, path, CastVoteRequest{Value: 1}, VoterIDHeader, "bad id!")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, path, CastVoteRequest{Value: 1}, VoterIDHeader, voter)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, VoteResponse{ReportID: id, VoteAggregates: models.VoteAggregates{Upvotes: 1, Score: 1}}, decode[VoteResponse](t, rec))

	// same voter again: no double count
	rec = s.do(t, http.MethodPost, path, CastVoteRequest{Value: 1}, VoterIDHeader, voter)
	assert.Equal(t, 1, decode[VoteResponse](t, rec).Score)

	// device identity votes separately
	rec = s.do(t, http.MethodPost, path, CastVoteRequest{Value: -1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.VoteAggregates{Upvotes: 1, Downvotes: 1, Score: 0}, decode[VoteResponse](t, rec).VoteAggregates)

	cached, ok := s.cache.Get(id)
	require.True(t, ok)
	assert.Equal(t, 0, cached.Score)

	rec = s.do(t, http.MethodPost, "/api/v1/reports/999/votes", CastVoteRequest{Value: 1}, VoterIDHeader, voter)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/reports/abc/votes", CastVoteRequest{Value: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, path+"/controls", nil, VoterIDHeader, voter)
	require.Equal(t, http.StatusOK, rec.Code)
	controls := decode[VoteControlsResponse](t, rec)
	assert.True(t, controls.Enabled)
	assert.Equal(t, 1, controls.MyVote)

	rec = s.do(t, http.MethodGet, path+"/controls", nil, VoterIDHeader, "9a0c4d2e-1b3f-4a5c-8d7e-6f5a4b3c2d1e")
	assert.Equal(t, 0, decode[VoteControlsResponse](t, rec).MyVote)
}

func TestReportHandler(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	now := time.Now()
	s.cache.BulkLoad([]models.Report{
		{ID: 1, Position: models.Position{Lat: 1, Lng: 1}, RoadSide: models.RoadSideLeft, Intensity: 1, CreatedAt: now.Add(-time.Hour)},
		{ID: 2, Position: models.Position{Lat: 2, Lng: 2}, RoadSide: models.RoadSideRight, Descriptor: `<script>alert("x")</script>`, Intensity: 5, CreatedAt: now},
		{ID: 3, Position: models.Position{Lat: 20, Lng: 20}, RoadSide: models.RoadSideMiddle, Intensity: 3, CreatedAt: now},
	})

	rec = s.do(t, http.MethodGet, "/api/v1/reports", nil)
	popups := decode[[]render.Popup](t, rec)
	require.Len(t, popups, 2)
	assert.Equal(t, int64(2), popups[0].ReportID)
	assert.Equal(t, "&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;", popups[0].Descriptor)
	assert.NotContains(t, popups[0].HTML, "<script>")

	rec = s.do(t, http.MethodGet, "/api/v1/reports/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "★☆☆☆☆", decode[render.Popup](t, rec).Severity.Stars)

	rec = s.do(t, http.MethodGet, "/api/v1/reports/3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandlerReadsThroughToStore(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// saved by another process, not yet in this cache
	inside := &models.Report{Position: models.Position{Lat: 4, Lng: 4}, RoadSide: models.RoadSideLeft, Intensity: 2}
	require.NoError(t, s.store.Create(ctx, inside))
	outside := &models.Report{Position: models.Position{Lat: 40, Lng: 40}, RoadSide: models.RoadSideLeft, Intensity: 2}
	require.NoError(t, s.store.Create(ctx, outside))

	rec := s.do(t, http.MethodGet, "/api/v1/reports/"+strconv.FormatInt(inside.ID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, inside.ID, decode[render.Popup](t, rec).ReportID)
	assert.True(t, s.cache.Has(inside.ID))

	rec = s.do(t, http.MethodGet, "/api/v1/reports/"+strconv.FormatInt(outside.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, s.cache.Has(outside.ID))

	rec = s.do(t, http.MethodGet, "/api/v1/reports/777", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBoundaryHandler(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/boundary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[BoundaryResponse](t, rec)
	assert.Equal(t, "ready", resp.State)
	require.NotNil(t, resp.Bounds)
	assert.Equal(t, BoundsResponse{South: 0, West: 0, North: 10, East: 10}, *resp.Bounds)

	rec = s.do(t, http.MethodGet, "/api/v1/boundary/contains?lat=5&lng=5", nil)
	assert.True(t, decode[ContainsResponse](t, rec).Inside)

	rec = s.do(t, http.MethodGet, "/api/v1/boundary/contains?lat=11&lng=5", nil)
	assert.False(t, decode[ContainsResponse](t, rec).Inside)

	rec = s.do(t, http.MethodGet, "/api/v1/boundary/contains?lat=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pending := NewBoundaryHandler(boundary.NewService(boundary.BytesSource{Name: "square", Data: []byte(square)}))
	rec = httptest.NewRecorder()
	pending.GetBoundary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/boundary", nil))
	resp = decode[BoundaryResponse](t, rec)
	assert.Equal(t, "pending", resp.State)
	assert.Nil(t, resp.Bounds)
}

func TestIdentityHandler(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/identity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[IdentityResponse](t, rec)
	assert.NotEmpty(t, first.VoterID)
	assert.False(t, first.SafetyNoticeAcknowledged)

	rec = s.do(t, http.MethodPost, "/api/v1/identity/safety-notice", nil)
	second := decode[IdentityResponse](t, rec)
	assert.Equal(t, first.VoterID, second.VoterID)
	assert.True(t, second.SafetyNoticeAcknowledged)
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

type fixedState boundary.State

func (s fixedState) State() boundary.State { return boundary.State(s) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		db         error
		boundary   boundary.State
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, boundary.StateReady, http.StatusOK, "healthy"},
		{"boundary failed", nil, boundary.StateFailed, http.StatusOK, "degraded"},
		{"database down", errors.New("connection refused"), boundary.StateReady, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakeChecker{err: tt.db}, fixedState(tt.boundary), "1.2.3")
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decode[HealthResponse](t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
		})
	}
}

type fakeRealtime struct {
	connected  bool
	reconnects int64
}

func (f fakeRealtime) IsConnected() bool { return f.connected }
func (f fakeRealtime) Reconnects() int64 { return f.reconnects }

func TestHealthHandlerRealtime(t *testing.T) {
	h := NewHealthHandler(fakeChecker{}, fixedState(boundary.StateReady), "1.2.3")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotContains(t, rec.Body.String(), "realtime")

	h.SetRealtime(fakeRealtime{connected: true, reconnects: 2})
	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Realtime)
	assert.Equal(t, int64(2), resp.Reconnects)

	h.SetRealtime(fakeRealtime{})
	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	resp = decode[HealthResponse](t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "disconnected", resp.Realtime)
}

func TestNormalizeSlices(t *testing.T) {
	type inner struct {
		Tags []string `json:"tags"`
	}
	type outer struct {
		Items []inner  `json:"items"`
		Ptr   *inner   `json:"ptr"`
		Names []string `json:"names"`
	}

	rec := httptest.NewRecorder()
	respondWithJSON(rec, http.StatusOK, outer{Items: []inner{{}}, Ptr: &inner{}})
	assert.JSONEq(t, `{"items":[{"tags":[]}],"ptr":{"tags":[]},"names":[]}`, rec.Body.String())
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"out of bounds", &service.OutOfBoundsError{Lat: 1, Lng: 2}, http.StatusUnprocessableEntity, ErrMsgOutOfBounds},
		{"duplicate", &service.SaveFailedError{Kind: service.SaveFailedDuplicate}, http.StatusConflict, ErrMsgDuplicateReport},
		{"generic save", &service.SaveFailedError{Kind: service.SaveFailedGeneric, Err: errors.New("boom")}, http.StatusInternalServerError, ErrMsgSaveFailed},
		{"cancelled draft", service.ErrDraftCancelled, http.StatusConflict, ErrMsgDraftCancelled},
		{"save in progress", service.ErrSaveInProgress, http.StatusConflict, ErrMsgSaveInProgress},
		{"consent", service.ErrConsentDeclined, http.StatusPreconditionRequired, ErrMsgSafetyNotice},
		{"unknown report", &service.VoteError{ReportID: 1, Err: repository.ErrReportNotFound}, http.StatusNotFound, ErrMsgReportNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tt.err)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decode[map[string]string](t, rec)["error"])
		})
	}
}
