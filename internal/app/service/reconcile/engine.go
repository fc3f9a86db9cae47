package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/models"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/metrics"
	"github.com/fatflowers/donorsync/pkg/types"
)

const defaultGLCode = "UN"

// CRM is the subset of the DonorPerfect client the engine drives.
type CRM interface {
	Configured() bool
	FindDonorByEmail(ctx context.Context, email string) (int64, bool, error)
	CreateDonor(ctx context.Context, in donorperfect.DonorInput) (int64, error)
	CreatePledge(ctx context.Context, in donorperfect.PledgeInput) (int64, error)
	CreateGift(ctx context.Context, in donorperfect.GiftInput) (int64, error)
}

// Ledger is the subset of the sync log service the engine reads and writes.
type Ledger interface {
	IsSynced(ctx context.Context, donationID int64) (bool, error)
	GetEntry(ctx context.Context, donationID int64) (*models.SyncLog, error)
	RecordAttempt(ctx context.Context, entry *models.SyncLog) error
	FindPledgeMapping(ctx context.Context, subscriptionID int64) (*models.PledgeMap, error)
	SavePledgeMapping(ctx context.Context, m *models.PledgeMap) error
}

// Engine maps one donation to the CRM operations it needs and records the outcome.
type Engine struct {
	crm      CRM
	ledger   Ledger
	cfg      config.SyncConfig
	log      *zap.SugaredLogger
	inflight *inflight
}

func New(cfg *config.Config, crm CRM, ledger Ledger, log *zap.SugaredLogger) *Engine {
	return &Engine{
		crm:      crm,
		ledger:   ledger,
		cfg:      cfg.Sync,
		log:      log,
		inflight: newInflight(),
	}
}

// attempt accumulates state while one donation moves through the engine.
type attempt struct {
	ev       *types.DonationEvent
	dryRun   bool
	giftType string
	log      *zap.SugaredLogger
	res      *Result
}

// SyncDonation is the guarded entry point for real-time and manual triggers.
// A donation that already has a success row is not sent to the CRM again, and
// a donation being synced by another trigger in this process is left to it.
func (e *Engine) SyncDonation(ctx context.Context, ev *types.DonationEvent) *Result {
	if !e.inflight.acquire(ev.ID) {
		logctx.FromCtx(ctx, e.log).Infow("donation sync already in progress", "donation_id", ev.ID)
		return &Result{DonationID: ev.ID, Kind: ev.Kind, Status: types.SyncStatusInProgress}
	}
	defer e.inflight.release(ev.ID)

	synced, err := e.ledger.IsSynced(ctx, ev.ID)
	if err != nil {
		logctx.FromCtx(ctx, e.log).Errorw("failed to check sync state", "donation_id", ev.ID, "error", err)
		err = fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		return &Result{DonationID: ev.ID, Kind: ev.Kind, Status: types.SyncStatusError, Error: err.Error(), Err: err, Retryable: true}
	}
	if synced {
		return &Result{DonationID: ev.ID, Kind: ev.Kind, Status: types.SyncStatusAlreadySynced}
	}
	return e.Reconcile(ctx, ev, false)
}

// Reconcile runs the donation through donor resolution, pledge handling and gift
// creation. Every failure is returned as a Result; outside dry run exactly one
// ledger row is written per call, except when the CRM is not configured.
func (e *Engine) Reconcile(ctx context.Context, ev *types.DonationEvent, dryRun bool) *Result {
	ctx, log := logctx.ForDonation(ctx, e.log, ev.ID)
	a := &attempt{
		ev:       ev,
		dryRun:   dryRun,
		giftType: e.cfg.GiftTypeForGateway(ev.GatewayID),
		log:      log.With("kind", ev.Kind),
		res:      &Result{DonationID: ev.ID, Kind: ev.Kind},
	}
	res := e.reconcile(ctx, a)
	metrics.ObserveSync(string(res.Status), string(ev.Kind))
	return res
}

func (e *Engine) reconcile(ctx context.Context, a *attempt) *Result {
	if !e.crm.Configured() {
		a.log.Warnw("sync skipped, api key missing")
		a.res.Status = types.SyncStatusError
		a.res.Error = ErrNotConfigured.Error()
		a.res.Err = ErrNotConfigured
		return a.res
	}

	if strings.TrimSpace(a.ev.Email) == "" {
		a.log.Infow("donation has no email, skipping")
		a.res.Status = types.SyncStatusSkipped
		a.res.Error = ErrNoEmail.Error()
		a.res.Err = ErrNoEmail
		return e.finish(ctx, a)
	}

	donorID, found, err := e.crm.FindDonorByEmail(ctx, a.ev.Email)
	if err != nil {
		a.log.Warnw("lookup failed", "email", a.ev.Email, "error", err)
		if e.cfg.StrictDonorLookup {
			return e.fail(ctx, a, "failed to look up donor", err)
		}
		found = false
	}

	if a.dryRun {
		return e.preview(ctx, a, donorID, found)
	}

	if found {
		a.res.DonorAction = types.DonorActionMatched
		a.log.Infow("matched existing donor", "dp_donor_id", donorID)
	} else {
		donorID, err = e.crm.CreateDonor(ctx, donorperfect.DonorInput{
			FirstName: a.ev.FirstName,
			LastName:  a.ev.LastName,
			Email:     a.ev.Email,
			Country:   "US",
		})
		if err != nil {
			return e.fail(ctx, a, "failed to create donor", err)
		}
		a.res.DonorAction = types.DonorActionCreated
		a.log.Infow("created donor", "dp_donor_id", donorID)
	}
	a.res.DonorID = lo.ToPtr(donorID)

	var subSolicit string
	var pledgeID *int64
	switch a.ev.Kind {
	case types.DonationKindOneTime:
		subSolicit = types.SubSolicitOneTime
	case types.DonationKindFirstRecurring:
		subSolicit = types.SubSolicitRecurring
		if pledgeID, err = e.ensurePledge(ctx, a, donorID); err != nil {
			return e.fail(ctx, a, "failed to create pledge", err)
		}
	case types.DonationKindRenewal:
		subSolicit = types.SubSolicitRecurring
		if pledgeID, err = e.linkedPledge(ctx, a); err != nil {
			return e.fail(ctx, a, "failed to load pledge mapping", err)
		}
	default:
		return e.fail(ctx, a, "failed to map donation", fmt.Errorf("%w: unsupported kind %q", ErrInvalidDonation, a.ev.Kind))
	}
	a.res.PledgeID = pledgeID

	giftID, err := e.crm.CreateGift(ctx, donorperfect.GiftInput{
		DonorID:        donorID,
		GiftDate:       a.ev.CreatedAt,
		Amount:         a.ev.Amount,
		GLCode:         e.glCode(),
		SolicitCode:    e.cfg.DefaultSolicitCode,
		SubSolicitCode: subSolicit,
		Campaign:       e.cfg.DefaultCampaign,
		GiftType:       a.giftType,
		Reference:      fmt.Sprintf("GIVEWP-%d", a.ev.ID),
		Narrative:      giftNarrative(a.ev),
		PledgeID:       pledgeID,
	})
	if err != nil {
		return e.fail(ctx, a, "failed to create gift", err)
	}
	a.res.GiftID = lo.ToPtr(giftID)
	a.res.Status = types.SyncStatusSuccess
	a.log.Infow("donation synced", "dp_donor_id", donorID, "dp_gift_id", giftID, "dp_pledge_id", lo.FromPtr(pledgeID))
	return e.finish(ctx, a)
}

// ensurePledge returns the pledge of the donation's subscription, creating it and
// its mapping when the subscription has none yet. A retried first payment reuses
// the pledge of an earlier failed attempt, whether or not its mapping was saved.
func (e *Engine) ensurePledge(ctx context.Context, a *attempt, donorID int64) (*int64, error) {
	subID, err := subscriptionOf(a.ev)
	if err != nil {
		return nil, err
	}
	existing, err := e.ledger.FindPledgeMapping(ctx, subID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		a.log.Infow("reusing pledge of subscription", "subscription_id", subID, "dp_pledge_id", existing.DPPledgeID)
		return lo.ToPtr(existing.DPPledgeID), nil
	}

	period := a.ev.EffectivePeriod()
	prior, err := e.ledger.GetEntry(ctx, a.ev.ID)
	if err != nil {
		return nil, err
	}
	if prior != nil && prior.DPPledgeID != nil {
		pledgeID := *prior.DPPledgeID
		a.log.Infow("reusing pledge of earlier attempt", "subscription_id", subID, "dp_pledge_id", pledgeID)
		a.res.PledgeID = lo.ToPtr(pledgeID)
		return e.mapPledge(ctx, a, subID, donorID, pledgeID, period)
	}

	pledgeID, err := e.crm.CreatePledge(ctx, donorperfect.PledgeInput{
		DonorID:        donorID,
		StartDate:      a.ev.CreatedAt,
		Bill:           a.ev.Amount,
		Frequency:      period.PledgeFrequency(),
		GLCode:         e.glCode(),
		SolicitCode:    e.cfg.DefaultSolicitCode,
		SubSolicitCode: types.SubSolicitRecurring,
		Campaign:       e.cfg.DefaultCampaign,
		Narrative:      pledgeNarrative(a.ev),
	})
	if err != nil {
		return nil, err
	}
	a.log.Infow("created pledge", "dp_pledge_id", pledgeID, "frequency", period.PledgeFrequency())
	a.res.PledgeID = lo.ToPtr(pledgeID)
	return e.mapPledge(ctx, a, subID, donorID, pledgeID, period)
}

func (e *Engine) mapPledge(ctx context.Context, a *attempt, subID, donorID, pledgeID int64, period types.BillingPeriod) (*int64, error) {
	err := e.ledger.SavePledgeMapping(ctx, &models.PledgeMap{
		SubscriptionID: subID,
		SourceDonorID:  a.ev.SourceDonorID,
		DPDonorID:      donorID,
		DPPledgeID:     pledgeID,
		Amount:         a.ev.Amount,
		Frequency:      period,
	})
	if err != nil {
		return nil, fmt.Errorf("pledge %d created but mapping not saved: %w", pledgeID, err)
	}
	return lo.ToPtr(pledgeID), nil
}

// linkedPledge looks up the pledge a renewal pays against. A renewal without a
// mapping is synced as a standalone gift.
func (e *Engine) linkedPledge(ctx context.Context, a *attempt) (*int64, error) {
	subID, err := subscriptionOf(a.ev)
	if err != nil {
		return nil, err
	}
	m, err := e.ledger.FindPledgeMapping(ctx, subID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		a.log.Warnw("no pledge mapping for renewal, creating standalone gift", "subscription_id", subID)
		return nil, nil
	}
	return lo.ToPtr(m.DPPledgeID), nil
}

func (e *Engine) preview(ctx context.Context, a *attempt, donorID int64, found bool) *Result {
	p := &Preview{
		Name:         a.ev.FullName(),
		Email:        a.ev.Email,
		Amount:       a.ev.DisplayAmount(),
		Date:         a.ev.CreatedAt.Format(time.DateOnly),
		Kind:         a.ev.Kind.Label(),
		DonorAction:  types.PreviewDonorCreate,
		PledgeAction: PledgeActionNone,
	}
	if found {
		p.DonorAction = types.PreviewDonorMatch
		p.DPDonorID = lo.ToPtr(donorID)
	}
	switch a.ev.Kind {
	case types.DonationKindFirstRecurring:
		p.PledgeAction = PledgeActionCreate
	case types.DonationKindRenewal:
		pledgeID, err := e.linkedPledge(ctx, a)
		if err != nil {
			return e.fail(ctx, a, "failed to load pledge mapping", err)
		}
		if pledgeID != nil {
			p.PledgeAction = pledgeActionLink(*pledgeID)
		} else {
			p.PledgeAction = PledgeActionGiftOnly
		}
	}
	a.res.Status = types.SyncStatusPreview
	a.res.Preview = p
	return a.res
}

func (e *Engine) fail(ctx context.Context, a *attempt, prefix string, err error) *Result {
	a.res.Status = types.SyncStatusError
	a.res.Error = fmt.Sprintf("%s: %s", prefix, reasonOf(err))
	a.res.Err = err
	a.res.Retryable = Retryable(err)
	a.log.Errorw(prefix, "error", err, "retryable", a.res.Retryable,
		"dp_donor_id", lo.FromPtr(a.res.DonorID), "dp_pledge_id", lo.FromPtr(a.res.PledgeID))
	return e.finish(ctx, a)
}

// finish writes the ledger row for a, unless it is a dry run.
func (e *Engine) finish(ctx context.Context, a *attempt) *Result {
	if a.dryRun {
		return a.res
	}
	err := e.ledger.RecordAttempt(ctx, e.ledgerEntry(ctx, a))
	switch {
	case err == nil:
	case errors.Is(err, sync_log.ErrAlreadySynced):
		// another writer recorded success first; its row wins
		a.log.Warnw("donation was synced concurrently", "status", a.res.Status, "dp_gift_id", lo.FromPtr(a.res.GiftID))
		a.res.Status = types.SyncStatusAlreadySynced
	default:
		a.log.Errorw("failed to record sync attempt", "status", a.res.Status, "error", err)
		if a.res.Err == nil {
			a.res.Err = err
		}
	}
	return a.res
}

func (e *Engine) ledgerEntry(ctx context.Context, a *attempt) *models.SyncLog {
	entry := &models.SyncLog{
		DonationID:   a.ev.ID,
		DPDonorID:    a.res.DonorID,
		DPGiftID:     a.res.GiftID,
		DPPledgeID:   a.res.PledgeID,
		DonationKind: a.ev.Kind,
		Amount:       a.ev.Amount,
		Status:       a.res.Status,
		Detail: datatypes.NewJSONType(&models.SyncLogDetail{
			Donation:  a.ev,
			GiftType:  a.giftType,
			Retryable: a.res.Retryable,
			TraceID:   logctx.TraceID(ctx),
		}),
	}
	if a.ev.SourceDonorID > 0 {
		entry.SourceDonorID = lo.ToPtr(a.ev.SourceDonorID)
	}
	if a.ev.Kind.IsRecurring() {
		entry.SubscriptionID = a.ev.SubscriptionID
	}
	if a.res.DonorAction != "" {
		entry.DonorAction = lo.ToPtr(a.res.DonorAction)
	}
	if a.res.Error != "" {
		entry.ErrorMessage = lo.ToPtr(a.res.Error)
	}
	return entry
}

func (e *Engine) glCode() string {
	if e.cfg.DefaultGLCode == "" {
		return defaultGLCode
	}
	return e.cfg.DefaultGLCode
}

func subscriptionOf(ev *types.DonationEvent) (int64, error) {
	if ev.SubscriptionID == nil || *ev.SubscriptionID <= 0 {
		return 0, fmt.Errorf("%w: %s donation without subscription id", ErrInvalidDonation, ev.Kind)
	}
	return *ev.SubscriptionID, nil
}

func giftNarrative(ev *types.DonationEvent) string {
	return fmt.Sprintf("GiveWP #%d - %s (%s $%s)", ev.ID, ev.FormTitle, ev.Kind.Label(), ev.DisplayAmount())
}

func pledgeNarrative(ev *types.DonationEvent) string {
	return fmt.Sprintf("GiveWP Recurring - %s ($%s/%s)", ev.FormTitle, ev.DisplayAmount(), ev.EffectivePeriod())
}
