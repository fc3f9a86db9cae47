package match_report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/logctx"
)

type DonorLister interface {
	ListDonors(ctx context.Context) ([]givewp.Donor, error)
}

type DonorFinder interface {
	Configured() bool
	FindDonorByEmail(ctx context.Context, email string) (int64, bool, error)
}

type DonorMatch struct {
	GiveDonorID int64  `json:"give_donor_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	DPDonorID   *int64 `json:"dp_donor_id"`
	Action      string `json:"action"`
	Error       string `json:"error,omitempty"`
}

type Report struct {
	Total   int          `json:"total"`
	Matched int          `json:"matched"`
	New     int          `json:"new"`
	Failed  int          `json:"failed"`
	Donors  []DonorMatch `json:"donors"`
}

// Service previews how every GiveWP donor would resolve against DonorPerfect.
// It never writes to either system.
type Service struct {
	donors DonorLister
	crm    DonorFinder
	log    *zap.SugaredLogger
}

func New(donors DonorLister, crm DonorFinder, log *zap.SugaredLogger) *Service {
	return &Service{donors: donors, crm: crm, log: log}
}

func (s *Service) Generate(ctx context.Context) (*Report, error) {
	if !s.crm.Configured() {
		return nil, reconcile.ErrNotConfigured
	}
	donors, err := s.donors.ListDonors(ctx)
	if err != nil {
		return nil, err
	}
	log := logctx.FromCtx(ctx, s.log)

	report := &Report{Donors: make([]DonorMatch, 0, len(donors))}
	for _, d := range donors {
		if d.Email == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := DonorMatch{GiveDonorID: d.ID, Name: d.Name, Email: d.Email}
		id, found, err := s.crm.FindDonorByEmail(ctx, d.Email)
		switch {
		case err != nil:
			log.Warnw("match report lookup failed", "give_donor_id", d.ID, "error", err)
			m.Action = "Lookup failed"
			m.Error = err.Error()
			report.Failed++
		case found:
			m.DPDonorID = &id
			m.Action = fmt.Sprintf("Will match to DP #%d", id)
			report.Matched++
		default:
			m.Action = "Will create new donor"
			report.New++
		}
		report.Donors = append(report.Donors, m)
	}
	report.Total = len(report.Donors)
	log.Infow("match report generated", "total", report.Total, "matched", report.Matched, "new", report.New, "failed", report.Failed)
	return report, nil
}
