package match_report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
)

type donorList []givewp.Donor

func (d donorList) ListDonors(context.Context) ([]givewp.Donor, error) { return d, nil }

type directory struct {
	configured bool
	ids        map[string]int64
	broken     map[string]bool
}

func (d *directory) Configured() bool { return d.configured }

func (d *directory) FindDonorByEmail(_ context.Context, email string) (int64, bool, error) {
	if d.broken[email] {
		return 0, false, errors.New("timeout")
	}
	id, ok := d.ids[email]
	return id, ok, nil
}

func TestGenerate(t *testing.T) {
	donors := donorList{
		{ID: 1, Email: "a@x.com", Name: "Ann Lee"},
		{ID: 2, Email: "b@x.com", Name: "Bo Park"},
		{ID: 3, Email: "", Name: "No Mail"},
		{ID: 4, Email: "c@x.com", Name: "Cy Diaz"},
	}
	crm := &directory{configured: true, ids: map[string]int64{"a@x.com": 55}, broken: map[string]bool{"c@x.com": true}}

	r, err := New(donors, crm, zap.NewNop().Sugar()).Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, r.Total)
	require.Equal(t, 1, r.Matched)
	require.Equal(t, 1, r.New)
	require.Equal(t, 1, r.Failed)

	require.Equal(t, int64(55), *r.Donors[0].DPDonorID)
	require.Equal(t, "Will match to DP #55", r.Donors[0].Action)
	require.Nil(t, r.Donors[1].DPDonorID)
	require.Equal(t, "Will create new donor", r.Donors[1].Action)
	require.Equal(t, "timeout", r.Donors[2].Error)
}

func TestGenerate_NotConfigured(t *testing.T) {
	_, err := New(donorList{}, &directory{}, zap.NewNop().Sugar()).Generate(context.Background())
	require.ErrorIs(t, err, reconcile.ErrNotConfigured)
}
