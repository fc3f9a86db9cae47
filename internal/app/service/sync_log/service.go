package sync_log

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/donorsync/internal/models"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/tool"
	"github.com/fatflowers/donorsync/pkg/types"
)

// ErrAlreadySynced is returned by RecordAttempt when a success row already exists
// for the donation. The existing row is left untouched.
var ErrAlreadySynced = errors.New("donation already synced")

// ErrInvalidFilter wraps list filter validation failures.
var ErrInvalidFilter = errors.New("invalid filter")

// FilterableFields are the ledger columns ListEntries accepts filters on.
var FilterableFields = []string{
	"donation_id", "source_donor_id", "subscription_id", "dp_donor_id", "dp_gift_id", "dp_pledge_id",
	"donor_action", "donation_kind", "amount", "status", "synced_at",
}

// attemptColumns are rewritten when a new attempt replaces a non-success row.
var attemptColumns = []string{
	"id", "source_donor_id", "subscription_id", "dp_donor_id", "dp_gift_id", "dp_pledge_id",
	"donor_action", "donation_kind", "amount", "status", "error_message", "detail",
	"synced_at", "created_at", "updated_at",
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// RecordAttempt persists the outcome of one sync attempt. The donation keeps a
// single row: a new attempt replaces a previous error or skipped row, a success
// row is never replaced. The write is a single upsert so concurrent writers for
// the same donation cannot produce two rows.
func (s *Service) RecordAttempt(ctx context.Context, entry *models.SyncLog) error {
	if entry == nil {
		return fmt.Errorf("nil sync log entry")
	}
	if entry.DonationID <= 0 {
		return fmt.Errorf("invalid donation id %d", entry.DonationID)
	}
	if entry.Status == types.SyncStatusPreview || entry.Status == types.SyncStatusAlreadySynced {
		return fmt.Errorf("status %s is not persisted", entry.Status)
	}
	now := s.now()
	entry.ID = tool.GenerateUUIDV7()
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = now
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Detail.Data() == nil {
		entry.Detail = datatypes.NewJSONType(&models.SyncLogDetail{})
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "donation_id"}},
		DoUpdates: clause.AssignmentColumns(attemptColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: clause.Column{Table: models.SyncLog{}.TableName(), Name: "status"}, Value: types.SyncStatusSuccess},
		}},
	}).Create(entry)
	if res.Error != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to record sync attempt", "donation_id", entry.DonationID, "status", entry.Status, "error", res.Error)
		return fmt.Errorf("record sync attempt for donation %d: %w", entry.DonationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadySynced
	}
	return nil
}

func (s *Service) IsSynced(ctx context.Context, donationID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.SyncLog{}).
		Where("donation_id = ? AND status = ?", donationID, types.SyncStatusSuccess).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check sync state of donation %d: %w", donationID, err)
	}
	return n > 0, nil
}

// SyncedDonationIDs returns the set of donation ids with a success row.
func (s *Service) SyncedDonationIDs(ctx context.Context) (map[int64]struct{}, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.SyncLog{}).
		Where("status = ?", types.SyncStatusSuccess).
		Pluck("donation_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list synced donations: %w", err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// GetEntry returns the ledger row of a donation, or nil when it was never attempted.
func (s *Service) GetEntry(ctx context.Context, donationID int64) (*models.SyncLog, error) {
	var rows []*models.SyncLog
	if err := s.db.WithContext(ctx).Where("donation_id = ?", donationID).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load sync log of donation %d: %w", donationID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

type ListEntriesRequest struct {
	Status  types.SyncStatus      `json:"status"`
	Filters []*types.CommonFilter `json:"filters"`
	From    int                   `json:"from"`
	Size    int                   `json:"size"`
}

type ListEntriesResponse struct {
	Items []*models.SyncLog `json:"items"`
	Total int64             `json:"total"`
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ListEntries pages through the ledger, newest first.
func (s *Service) ListEntries(ctx context.Context, req *ListEntriesRequest) (*ListEntriesResponse, error) {
	if req == nil {
		req = &ListEntriesRequest{}
	}
	if req.Size <= 0 {
		req.Size = 100
	}
	if req.From < 0 {
		req.From = 0
	}
	for _, f := range req.Filters {
		if err := f.Validate(FilterableFields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}

	tx := s.db.WithContext(ctx).Model(&models.SyncLog{})
	if req.Status != "" {
		tx = tx.Where("status = ?", req.Status)
	}
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count sync log: %w", err)
	}
	var items []*models.SyncLog
	err := tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "synced_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "donation_id"}, Desc: true}).
		Offset(req.From).Limit(req.Size).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list sync log: %w", err)
	}
	return &ListEntriesResponse{Items: items, Total: total}, nil
}

// FindPledgeMapping returns the pledge mapping of a subscription, or nil when none exists.
func (s *Service) FindPledgeMapping(ctx context.Context, subscriptionID int64) (*models.PledgeMap, error) {
	var rows []*models.PledgeMap
	if err := s.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load pledge mapping of subscription %d: %w", subscriptionID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// SavePledgeMapping upserts by subscription id. The pledge id of an existing
// mapping is never changed.
func (s *Service) SavePledgeMapping(ctx context.Context, m *models.PledgeMap) error {
	if m == nil || m.SubscriptionID <= 0 || m.DPPledgeID <= 0 {
		return fmt.Errorf("invalid pledge mapping")
	}
	if m.ID == "" {
		m.ID = tool.GenerateUUIDV7()
	}
	if m.Frequency == "" {
		m.Frequency = types.BillingPeriodMonth
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_donor_id", "dp_donor_id", "amount", "frequency"}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("save pledge mapping of subscription %d: %w", m.SubscriptionID, err)
	}
	return nil
}
