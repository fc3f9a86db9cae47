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
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dh "github.com/fatflowers/donorsync/internal/app/service/donation_handler"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/response"
	"github.com/fatflowers/donorsync/pkg/types"
)

type recordingSyncer struct{ ids []int64 }

func (r *recordingSyncer) SyncDonation(_ context.Context, ev *types.DonationEvent) *reconcile.Result {
	r.ids = append(r.ids, ev.ID)
	return &reconcile.Result{DonationID: ev.ID, Status: types.SyncStatusError, Error: "failed to create gift: boom", Err: errors.New("boom")}
}

func postWebhook(t *testing.T, r *gin.Engine, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/donation/webhook/givewp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newWebhookRouter(enabled bool, syncer dh.Syncer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{Sync: config.SyncConfig{Enabled: enabled}}
	RegisterDonationWebhookRoutes(r.Group("/api/v2/donation"), dh.NewDonationHandler(cfg, syncer, zap.NewNop().Sugar()))
	return r
}

const webhookPayload = `{"id":321,"donorId":9,"email":"a@x.com","firstName":"Ann","lastName":"Lee","amount":"10.00",
"createdAt":"2024-03-05 10:00:00","gatewayId":"stripe","type":"single","status":"publish","formTitle":"Spring"}`

func TestApiGiveWPWebhook_SyncFailureStillAnswersOK(t *testing.T) {
	syncer := &recordingSyncer{}
	env := postWebhook(t, newWebhookRouter(true, syncer), webhookPayload)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, []int64{321}, syncer.ids)

	var out dh.Outcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Equal(t, types.SyncStatusError, out.Result.Status)
}

func TestApiGiveWPWebhook_Disabled(t *testing.T) {
	syncer := &recordingSyncer{}
	env := postWebhook(t, newWebhookRouter(false, syncer), webhookPayload)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Empty(t, syncer.ids)
	require.Contains(t, string(env.Data), dh.IgnoredSyncDisabled)
}

func TestApiGiveWPWebhook_InvalidPayload(t *testing.T) {
	env := postWebhook(t, newWebhookRouter(true, &recordingSyncer{}), `{"id":`)
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}
