package diagnostics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/pkg/config"
)

type fakeCRM struct {
	configured bool
	queries    []string
	queryErr   map[string]error
	codes      map[string]bool
	created    []donorperfect.CodeInput
}

func (f *fakeCRM) Configured() bool { return f.configured }

func (f *fakeCRM) Query(_ context.Context, sql string) (*donorperfect.Result, error) {
	f.queries = append(f.queries, sql)
	if err := f.queryErr[sql]; err != nil {
		return nil, err
	}
	return &donorperfect.Result{Records: []donorperfect.Record{{Fields: []donorperfect.Field{{Name: "total", Value: "1234"}}}}}, nil
}

func (f *fakeCRM) CodeExists(_ context.Context, field, code string) (bool, error) {
	if code == "BROKEN" {
		return false, errors.New("rejected")
	}
	return f.codes[field+"/"+code], nil
}

func (f *fakeCRM) CreateCode(_ context.Context, in donorperfect.CodeInput) error {
	f.created = append(f.created, in)
	return nil
}

func newService(crm *fakeCRM, sync config.SyncConfig) *Service {
	return New(&config.Config{Sync: sync}, crm, zap.NewNop().Sugar())
}

func TestTestConnection(t *testing.T) {
	crm := &fakeCRM{configured: true}
	conn, err := newService(crm, config.SyncConfig{}).TestConnection(context.Background())
	require.NoError(t, err)
	require.Equal(t, "connected", conn.Status)
	require.Equal(t, int64(1234), conn.Donors)
	require.Equal(t, "API connected successfully. 1234 donors in DonorPerfect.", conn.Message)
	require.Len(t, crm.queries, 2)
}

func TestTestConnection_Failure(t *testing.T) {
	crm := &fakeCRM{configured: true, queryErr: map[string]error{
		"SELECT TOP 1 donor_id FROM dp WHERE donor_id > 0": donorperfect.ErrTransport,
	}}
	_, err := newService(crm, config.SyncConfig{}).TestConnection(context.Background())
	require.ErrorIs(t, err, donorperfect.ErrTransport)
	require.Contains(t, err.Error(), "API connection failed")
}

func TestTestConnection_CountFailureStillConnected(t *testing.T) {
	crm := &fakeCRM{configured: true, queryErr: map[string]error{
		"SELECT COUNT(*) AS total FROM dp WHERE donor_id > 0": errors.New("boom"),
	}}
	conn, err := newService(crm, config.SyncConfig{}).TestConnection(context.Background())
	require.NoError(t, err)
	require.Zero(t, conn.Donors)
}

func TestTestCodes(t *testing.T) {
	crm := &fakeCRM{configured: true, codes: map[string]bool{
		"GL_CODE/UN":                 true,
		"SUB_SOLICIT_CODE/ONETIME":   true,
		"SUB_SOLICIT_CODE/RECURRING": false,
	}}
	report, err := newService(crm, config.SyncConfig{}).TestCodes(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 3)
	require.True(t, report["gl_code"].Valid)
	require.True(t, report["onetime"].Valid)
	require.False(t, report["recurring"].Valid)
	_, hasCampaign := report["campaign"]
	require.False(t, hasCampaign)
}

func TestTestCodes_CampaignAndErrors(t *testing.T) {
	crm := &fakeCRM{configured: true, codes: map[string]bool{"CAMPAIGN/SPRING": true}}
	report, err := newService(crm, config.SyncConfig{DefaultGLCode: "BROKEN", DefaultCampaign: "SPRING"}).TestCodes(context.Background())
	require.NoError(t, err)
	require.True(t, report["campaign"].Valid)
	require.False(t, report["gl_code"].Valid)
	require.Equal(t, "rejected", report["gl_code"].Error)
}

func TestCreateCode(t *testing.T) {
	crm := &fakeCRM{configured: true}
	s := newService(crm, config.SyncConfig{})

	require.NoError(t, s.CreateCode(context.Background(), donorperfect.CodeInput{FieldName: " sub_solicit_code", Code: "ONETIME "}))
	require.Equal(t, donorperfect.CodeInput{FieldName: "SUB_SOLICIT_CODE", Code: "ONETIME", Description: "ONETIME"}, crm.created[0])

	require.Error(t, s.CreateCode(context.Background(), donorperfect.CodeInput{FieldName: "GL_CODE"}))
}

func TestNotConfigured(t *testing.T) {
	s := newService(&fakeCRM{}, config.SyncConfig{})
	_, err := s.TestConnection(context.Background())
	require.ErrorIs(t, err, reconcile.ErrNotConfigured)
	_, err = s.TestCodes(context.Background())
	require.ErrorIs(t, err, reconcile.ErrNotConfigured)
	require.ErrorIs(t, s.CreateCode(context.Background(), donorperfect.CodeInput{}), reconcile.ErrNotConfigured)
}
