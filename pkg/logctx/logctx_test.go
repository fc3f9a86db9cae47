package logctx

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromCtx_EnrichesTraceID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core).Sugar()

	ctx := WithTraceID(context.Background(), "t-1")
	FromCtx(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "t-1", logs.All()[0].ContextMap()["trace_id"])
}

func TestForDonation_StacksOnRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core).Sugar()

	ctx := WithLogger(context.Background(), base.With("trace_id", "req-9"))
	ctx, l := ForDonation(ctx, base, 77)
	l.Info("direct")
	FromCtx(ctx, base).Info("via ctx")

	require.Equal(t, 2, logs.Len())
	for _, e := range logs.All() {
		require.Equal(t, "req-9", e.ContextMap()["trace_id"])
		require.Equal(t, int64(77), e.ContextMap()["donation_id"])
	}
}

func TestFromGin_FallsBackToBase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base := zap.NewNop().Sugar()
	require.Same(t, base, FromGin(nil, base))

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	require.Same(t, base, FromGin(c, base))

	scoped := base.With("k", "v")
	c.Set("logger", scoped)
	require.Same(t, scoped, FromGin(c, base))
}
