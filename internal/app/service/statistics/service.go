package statistics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/donorsync/internal/models"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/types"
)

type StatisticType string

const (
	StatisticTypeStatusCounts    StatisticType = "status_counts"
	StatisticTypeKindCounts      StatisticType = "kind_counts"
	StatisticTypeDonorsCreated   StatisticType = "donors_created"
	StatisticTypeDonorsMatched   StatisticType = "donors_matched"
	StatisticTypePledgesCreated  StatisticType = "pledges_created"
	StatisticTypeRecurringGifts  StatisticType = "recurring_gifts"
	StatisticTypeOneTimeGifts    StatisticType = "onetime_gifts"
	StatisticTypeLastSync        StatisticType = "last_sync"
	StatisticTypeSourceDonations StatisticType = "source_donations"
)

// SyncStats aggregates the ledger. Donor, pledge and gift counts only include
// success rows.
type SyncStats struct {
	Total          int64                        `json:"total"`
	Success        int64                        `json:"success"`
	Error          int64                        `json:"error"`
	Skipped        int64                        `json:"skipped"`
	ByKind         map[types.DonationKind]int64 `json:"by_kind"`
	DonorsCreated  int64                        `json:"donors_created"`
	DonorsMatched  int64                        `json:"donors_matched"`
	PledgesCreated int64                        `json:"pledges_created"`
	RecurringGifts int64                        `json:"recurring_gifts"`
	OneTimeGifts   int64                        `json:"onetime_gifts"`
	LastSync       *time.Time                   `json:"last_sync"`
	// SourceDonations and Remaining are only set when the source database is reachable.
	SourceDonations *int64 `json:"source_donations,omitempty"`
	Remaining       *int64 `json:"remaining,omitempty"`
}

type DonationCounter interface {
	CountDonations(ctx context.Context) (int64, error)
}

// Service provides read-only aggregation over the sync ledger.
type Service struct {
	db     *gorm.DB
	source DonationCounter
	log    *zap.SugaredLogger
}

func New(db *gorm.DB, source DonationCounter, log *zap.SugaredLogger) *Service {
	return &Service{db: db, source: source, log: log}
}

type groupCount struct {
	GroupKey string
	Count    int64
}

func (s *Service) ledger(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.SyncLog{})
}

func (s *Service) success(ctx context.Context) *gorm.DB {
	return s.ledger(ctx).Where("status = ?", types.SyncStatusSuccess)
}

func (s *Service) countGroups(ctx context.Context, column string) (map[string]int64, error) {
	var rows []groupCount
	err := s.ledger(ctx).
		Select(fmt.Sprintf("%s AS group_key, count(*) AS count", column)).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(rows, func(r groupCount) (string, int64) { return r.GroupKey, r.Count }), nil
}

func count(q *gorm.DB) (int64, error) {
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (s *Service) getLastSync(ctx context.Context) (*time.Time, error) {
	var rows []models.SyncLog
	err := s.success(ctx).Select("synced_at").Order("synced_at DESC").Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return lo.ToPtr(rows[0].SyncedAt), nil
}

func (s *Service) getStatistic(ctx context.Context, st StatisticType) (any, error) {
	switch st {
	case StatisticTypeStatusCounts:
		return s.countGroups(ctx, "status")
	case StatisticTypeKindCounts:
		return s.countGroups(ctx, "donation_kind")
	case StatisticTypeDonorsCreated:
		return count(s.success(ctx).Where("donor_action = ?", types.DonorActionCreated))
	case StatisticTypeDonorsMatched:
		return count(s.success(ctx).Where("donor_action = ?", types.DonorActionMatched))
	case StatisticTypePledgesCreated:
		return count(s.success(ctx).Where("dp_pledge_id IS NOT NULL AND donation_kind = ?", types.DonationKindFirstRecurring))
	case StatisticTypeRecurringGifts:
		return count(s.success(ctx).Where("donation_kind IN ?", []types.DonationKind{types.DonationKindFirstRecurring, types.DonationKindRenewal}))
	case StatisticTypeOneTimeGifts:
		return count(s.success(ctx).Where("donation_kind = ?", types.DonationKindOneTime))
	case StatisticTypeLastSync:
		return s.getLastSync(ctx)
	case StatisticTypeSourceDonations:
		if s.source == nil {
			return nil, givewp.ErrSourceDisabled
		}
		return s.source.CountDonations(ctx)
	default:
		return nil, fmt.Errorf("invalid statistic type: %s", st)
	}
}

var allStatistics = []StatisticType{
	StatisticTypeStatusCounts,
	StatisticTypeKindCounts,
	StatisticTypeDonorsCreated,
	StatisticTypeDonorsMatched,
	StatisticTypePledgesCreated,
	StatisticTypeRecurringGifts,
	StatisticTypeOneTimeGifts,
	StatisticTypeLastSync,
	StatisticTypeSourceDonations,
}

// GetSyncStats runs every aggregation concurrently. An unreachable source
// database only drops the source counts.
func (s *Service) GetSyncStats(ctx context.Context) (*SyncStats, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(allStatistics))
	resChan := make(chan lo.Entry[StatisticType, any], len(allStatistics))

	for _, st := range allStatistics {
		wg.Add(1)
		go func(st StatisticType) {
			defer wg.Done()
			v, err := s.getStatistic(ctx, st)
			if err != nil {
				if st == StatisticTypeSourceDonations {
					if !errors.Is(err, givewp.ErrSourceDisabled) {
						s.log.Warnw("failed to count source donations", "error", err)
					}
					return
				}
				errChan <- fmt.Errorf("%s: %w", st, err)
				return
			}
			resChan <- lo.Entry[StatisticType, any]{Key: st, Value: v}
		}(st)
	}
	wg.Wait()
	close(errChan)
	close(resChan)

	if err, ok := <-errChan; ok {
		return nil, err
	}

	stats := &SyncStats{ByKind: map[types.DonationKind]int64{}}
	for entry := range resChan {
		switch entry.Key {
		case StatisticTypeStatusCounts:
			byStatus := entry.Value.(map[string]int64)
			stats.Success = byStatus[string(types.SyncStatusSuccess)]
			stats.Error = byStatus[string(types.SyncStatusError)]
			stats.Skipped = byStatus[string(types.SyncStatusSkipped)]
			stats.Total = lo.Sum(lo.Values(byStatus))
		case StatisticTypeKindCounts:
			for k, v := range entry.Value.(map[string]int64) {
				stats.ByKind[types.DonationKind(k)] = v
			}
		case StatisticTypeDonorsCreated:
			stats.DonorsCreated = entry.Value.(int64)
		case StatisticTypeDonorsMatched:
			stats.DonorsMatched = entry.Value.(int64)
		case StatisticTypePledgesCreated:
			stats.PledgesCreated = entry.Value.(int64)
		case StatisticTypeRecurringGifts:
			stats.RecurringGifts = entry.Value.(int64)
		case StatisticTypeOneTimeGifts:
			stats.OneTimeGifts = entry.Value.(int64)
		case StatisticTypeLastSync:
			stats.LastSync = entry.Value.(*time.Time)
		case StatisticTypeSourceDonations:
			stats.SourceDonations = lo.ToPtr(entry.Value.(int64))
		}
	}
	if stats.SourceDonations != nil {
		stats.Remaining = lo.ToPtr(max(0, *stats.SourceDonations-stats.Success))
	}
	return stats, nil
}
