package diagnostics

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/types"
)

const (
	FieldGLCode     = "GL_CODE"
	FieldCampaign   = "CAMPAIGN"
	FieldSubSolicit = "SUB_SOLICIT_CODE"
)

type CRM interface {
	Configured() bool
	Query(ctx context.Context, sql string) (*donorperfect.Result, error)
	CodeExists(ctx context.Context, fieldName, code string) (bool, error)
	CreateCode(ctx context.Context, in donorperfect.CodeInput) error
}

type Connection struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Donors  int64  `json:"donors"`
}

type CodeCheck struct {
	FieldName string `json:"field_name"`
	Code      string `json:"code"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
}

// CodeReport is keyed by check name: gl_code, campaign, onetime, recurring.
type CodeReport map[string]CodeCheck

type Service struct {
	cfg *config.Config
	crm CRM
	log *zap.SugaredLogger
}

func New(cfg *config.Config, crm CRM, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, crm: crm, log: log}
}

// TestConnection runs a trivial SELECT and then counts donors. A failing count
// still reports the connection as up.
func (s *Service) TestConnection(ctx context.Context) (*Connection, error) {
	if !s.crm.Configured() {
		return nil, reconcile.ErrNotConfigured
	}
	if _, err := s.crm.Query(ctx, "SELECT TOP 1 donor_id FROM dp WHERE donor_id > 0"); err != nil {
		return nil, fmt.Errorf("API connection failed: %w", err)
	}

	var total int64
	res, err := s.crm.Query(ctx, "SELECT COUNT(*) AS total FROM dp WHERE donor_id > 0")
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("donor count failed", "error", err)
	} else if res.HasRecords() {
		if v, ok := res.Records[0].Get("total"); ok {
			total, _ = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		}
	}
	return &Connection{
		Status:  "connected",
		Message: fmt.Sprintf("API connected successfully. %d donors in DonorPerfect.", total),
		Donors:  total,
	}, nil
}

// TestCodes checks that the codes gifts are tagged with exist in DPCODES.
// The campaign check is skipped when no default campaign is configured.
func (s *Service) TestCodes(ctx context.Context) (CodeReport, error) {
	if !s.crm.Configured() {
		return nil, reconcile.ErrNotConfigured
	}
	report := CodeReport{}
	sc := s.cfg.Sync
	report["gl_code"] = s.check(ctx, FieldGLCode, lo.CoalesceOrEmpty(sc.DefaultGLCode, "UN"))
	if sc.DefaultCampaign != "" {
		report["campaign"] = s.check(ctx, FieldCampaign, sc.DefaultCampaign)
	}
	report["onetime"] = s.check(ctx, FieldSubSolicit, types.SubSolicitOneTime)
	report["recurring"] = s.check(ctx, FieldSubSolicit, types.SubSolicitRecurring)
	return report, nil
}

func (s *Service) check(ctx context.Context, field, code string) CodeCheck {
	c := CodeCheck{FieldName: field, Code: code}
	ok, err := s.crm.CodeExists(ctx, field, code)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	c.Valid = ok
	return c
}

func (s *Service) CreateCode(ctx context.Context, in donorperfect.CodeInput) error {
	if !s.crm.Configured() {
		return reconcile.ErrNotConfigured
	}
	in.FieldName = strings.ToUpper(strings.TrimSpace(in.FieldName))
	in.Code = strings.TrimSpace(in.Code)
	if in.FieldName == "" || in.Code == "" {
		return fmt.Errorf("field_name and code are required")
	}
	if in.Description == "" {
		in.Description = in.Code
	}
	if err := s.crm.CreateCode(ctx, in); err != nil {
		return err
	}
	logctx.FromCtx(ctx, s.log).Infow("created DonorPerfect code", "field_name", in.FieldName, "code", in.Code)
	return nil
}
