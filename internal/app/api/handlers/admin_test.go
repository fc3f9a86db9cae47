package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/backfill"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/statistics"
	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/response"
	"github.com/fatflowers/donorsync/pkg/types"
)

type stubSource struct{}

func (stubSource) GetDonation(_ context.Context, id int64) (*types.DonationEvent, error) {
	if id == 404 {
		return nil, givewp.ErrDonationNotFound
	}
	return &types.DonationEvent{ID: id, Email: "a@x.com", Amount: decimal.NewFromInt(25), Kind: types.DonationKindOneTime}, nil
}

type stubEngine struct{ synced []int64 }

func (s *stubEngine) SyncDonation(_ context.Context, ev *types.DonationEvent) *reconcile.Result {
	s.synced = append(s.synced, ev.ID)
	gift := int64(7001)
	return &reconcile.Result{DonationID: ev.ID, Status: types.SyncStatusSuccess, Kind: ev.Kind, GiftID: &gift}
}

type stubBackfill struct{ last backfill.Request }

func (s *stubBackfill) Run(_ context.Context, req backfill.Request) (*backfill.Response, error) {
	s.last = req
	if req.Offset < 0 {
		return nil, reconcile.ErrNotConfigured
	}
	return &backfill.Response{DryRun: req.DryRun, BatchSize: req.BatchSize, Offset: req.Offset}, nil
}

type stubJob struct{ running bool }

func (s *stubJob) Start(batchSize int) (backfill.JobStatus, error) {
	if s.running {
		return backfill.JobStatus{}, backfill.ErrAlreadyRunning
	}
	s.running = true
	return backfill.JobStatus{Running: true, BatchSize: batchSize}, nil
}

func (s *stubJob) Stop() bool {
	was := s.running
	s.running = false
	return was
}

func (s *stubJob) Status() backfill.JobStatus { return backfill.JobStatus{Running: s.running} }

type stubLedger struct{}

func (stubLedger) ListEntries(_ context.Context, req *sync_log.ListEntriesRequest) (*sync_log.ListEntriesResponse, error) {
	if len(req.Filters) > 0 {
		return nil, sync_log.ErrInvalidFilter
	}
	return &sync_log.ListEntriesResponse{Total: 3}, nil
}

type stubStats struct{ err error }

func (s stubStats) GetSyncStats(context.Context) (*statistics.SyncStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &statistics.SyncStats{Total: 9, Success: 7}, nil
}

type envelope struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    json.RawMessage          `json:"data"`
}

func newAdminRouter(s *AdminServices) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAdminRoutes(r.Group("/api/v1/admin"), s)
	return r
}

func call(t *testing.T, r *gin.Engine, method, path string, body any) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func testServices() (*AdminServices, *stubEngine, *stubBackfill, *stubJob) {
	eng, bf, job := &stubEngine{}, &stubBackfill{}, &stubJob{}
	return &AdminServices{
		Source:   stubSource{},
		Engine:   eng,
		Backfill: bf,
		Job:      job,
		Ledger:   stubLedger{},
		Stats:    stubStats{},
		Logger:   zap.NewNop().Sugar(),
	}, eng, bf, job
}

func TestRegisterAdminRoutes_RegistersEndpoints(t *testing.T) {
	s, _, _, _ := testServices()
	routes := newAdminRouter(s).Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}
	for _, want := range []string{
		"POST /api/v1/admin/sync_donation",
		"POST /api/v1/admin/backfill/preview",
		"POST /api/v1/admin/backfill/run",
		"POST /api/v1/admin/backfill/start",
		"POST /api/v1/admin/backfill/stop",
		"GET /api/v1/admin/backfill/status",
		"GET /api/v1/admin/match_report",
		"GET /api/v1/admin/test_connection",
		"GET /api/v1/admin/test_codes",
		"POST /api/v1/admin/list_sync_log",
		"GET /api/v1/admin/sync_stats",
	} {
		require.True(t, contains(want), want)
	}
}

func TestApiSyncDonation(t *testing.T) {
	s, eng, _, _ := testServices()
	r := newAdminRouter(s)

	env := call(t, r, http.MethodPost, "/api/v1/admin/sync_donation", SyncDonationRequest{DonationID: 12})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	var res reconcile.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, types.SyncStatusSuccess, res.Status)
	require.Equal(t, int64(7001), *res.GiftID)
	require.Equal(t, []int64{12}, eng.synced)

	env = call(t, r, http.MethodPost, "/api/v1/admin/sync_donation", SyncDonationRequest{DonationID: 404})
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	require.JSONEq(t, `"donation not found"`, string(env.Data))

	env = call(t, r, http.MethodPost, "/api/v1/admin/sync_donation", SyncDonationRequest{})
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	require.Len(t, eng.synced, 1)
}

func TestApiBackfill(t *testing.T) {
	s, _, bf, _ := testServices()
	r := newAdminRouter(s)

	env := call(t, r, http.MethodPost, "/api/v1/admin/backfill/preview", BackfillRequest{BatchSize: 50, Offset: 100})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, backfill.Request{DryRun: true, BatchSize: 50, Offset: 100}, bf.last)

	env = call(t, r, http.MethodPost, "/api/v1/admin/backfill/run", nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.False(t, bf.last.DryRun)

	env = call(t, r, http.MethodPost, "/api/v1/admin/backfill/run", BackfillRequest{Offset: -1})
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

func TestApiBackfillJob(t *testing.T) {
	s, _, _, _ := testServices()
	r := newAdminRouter(s)

	env := call(t, r, http.MethodPost, "/api/v1/admin/backfill/start", BackfillRequest{BatchSize: 20})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	env = call(t, r, http.MethodPost, "/api/v1/admin/backfill/start", nil)
	require.Equal(t, response.APIResponseCodeConflict, env.Code)

	env = call(t, r, http.MethodGet, "/api/v1/admin/backfill/status", nil)
	var st backfill.JobStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	require.True(t, st.Running)

	require.Equal(t, response.APIResponseCodeOK, call(t, r, http.MethodPost, "/api/v1/admin/backfill/stop", nil).Code)
	require.Equal(t, response.APIResponseCodeBadRequest, call(t, r, http.MethodPost, "/api/v1/admin/backfill/stop", nil).Code)
}

func TestApiListSyncLogAndStats(t *testing.T) {
	s, _, _, _ := testServices()
	r := newAdminRouter(s)

	env := call(t, r, http.MethodPost, "/api/v1/admin/list_sync_log", map[string]any{"from": 0, "size": 10})
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	env = call(t, r, http.MethodPost, "/api/v1/admin/list_sync_log", map[string]any{
		"filters": []map[string]any{{"field": "password", "operator": "eq", "values": []any{"x"}}},
	})
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	env = call(t, r, http.MethodGet, "/api/v1/admin/sync_stats", nil)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	var stats statistics.SyncStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Equal(t, int64(9), stats.Total)

	s.Stats = stubStats{err: errors.New("db down")}
	env = call(t, newAdminRouter(s), http.MethodGet, "/api/v1/admin/sync_stats", nil)
	require.Equal(t, response.APIResponseCodeError, env.Code)
}
