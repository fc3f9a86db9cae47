package givewp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fatflowers/donorsync/pkg/config"
	gormzap "github.com/fatflowers/donorsync/pkg/gormlog"
	"github.com/fatflowers/donorsync/pkg/types"
)

var (
	ErrDonationNotFound = errors.New("donation not found")
	ErrSourceDisabled   = errors.New("givewp source database is not configured")
)

const (
	postTypePayment = "give_payment"
	defaultFormName = "Donation"

	metaTotal            = "_give_payment_total"
	metaEmail            = "_give_payment_donor_email"
	metaFirstName        = "_give_donor_billing_first_name"
	metaLastName         = "_give_donor_billing_last_name"
	metaGateway          = "_give_payment_gateway"
	metaDonorID          = "_give_payment_donor_id"
	metaFormTitle        = "_give_payment_form_title"
	metaSubscriptionID   = "subscription_id"
	metaSubscriptionIDV2 = "_give_subscription_id"
	metaIsSubscription   = "_give_subscription_payment"
)

// Source reads donations straight from the WordPress tables GiveWP writes to.
type Source struct {
	db     *gorm.DB
	prefix string
	log    *zap.SugaredLogger
}

// Donor is a GiveWP donor record.
type Donor struct {
	ID    int64  `gorm:"column:id" json:"id"`
	Email string `gorm:"column:email" json:"email"`
	Name  string `gorm:"column:name" json:"name"`
}

func New(db *gorm.DB, prefix string, log *zap.SugaredLogger) *Source {
	return &Source{db: db, prefix: prefix, log: log}
}

// Open connects to the WordPress MySQL database. An empty DSN yields a Source
// whose methods fail with ErrSourceDisabled so the API can still start.
func Open(cfg *config.Config, log *zap.SugaredLogger) (*Source, error) {
	if cfg.Source.DSN == "" {
		log.Warnw("givewp source DSN is empty, source reads are disabled")
		return New(nil, cfg.Source.TablePrefix, log), nil
	}
	db, err := gorm.Open(mysql.Open(cfg.Source.DSN), &gorm.Config{
		Logger: gormzap.New(log, gormzap.WithSource("givewp"), gormzap.WithLevel(gormlogger.Warn)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect givewp mysql: %w", err)
	}
	log.Infow("connected to givewp mysql via DSN", "table_prefix", cfg.Source.TablePrefix)
	return New(db, cfg.Source.TablePrefix, log), nil
}

func (s *Source) DB() *gorm.DB { return s.db }

func (s *Source) table(name string) string { return s.prefix + name }

func (s *Source) ready() error {
	if s == nil || s.db == nil {
		return ErrSourceDisabled
	}
	return nil
}

func (s *Source) eligible(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table("posts")).
		Where("post_type = ?", postTypePayment).
		Where("post_status IN ?", types.SyncableDonationStatuses)
}

// EligibleDonationIDs lists every completed donation id in ascending order.
func (s *Source) EligibleDonationIDs(ctx context.Context) ([]int64, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var ids []int64
	if err := s.eligible(ctx).Order("ID ASC").Pluck("ID", &ids).Error; err != nil {
		return nil, fmt.Errorf("list eligible donations: %w", err)
	}
	return ids, nil
}

func (s *Source) CountDonations(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Table(s.table("posts")).Where("post_type = ?", postTypePayment).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count donations: %w", err)
	}
	return n, nil
}

type postRow struct {
	ID         int64     `gorm:"column:ID"`
	PostStatus string    `gorm:"column:post_status"`
	PostDate   time.Time `gorm:"column:post_date"`
	PostParent int64     `gorm:"column:post_parent"`
}

type metaRow struct {
	MetaKey   string `gorm:"column:meta_key"`
	MetaValue string `gorm:"column:meta_value"`
}

type subscriptionRow struct {
	ID     int64  `gorm:"column:id"`
	Period string `gorm:"column:period"`
}

// GetDonation loads a donation and normalizes it into a DonationEvent.
func (s *Source) GetDonation(ctx context.Context, id int64) (*types.DonationEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var posts []postRow
	err := s.db.WithContext(ctx).Table(s.table("posts")).
		Select("ID, post_status, post_date, post_parent").
		Where("ID = ? AND post_type = ?", id, postTypePayment).
		Limit(1).Scan(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("load donation %d: %w", id, err)
	}
	if len(posts) == 0 {
		return nil, ErrDonationNotFound
	}
	post := posts[0]

	var metas []metaRow
	err = s.db.WithContext(ctx).Table(s.table("give_donationmeta")).
		Select("meta_key, meta_value").
		Where("donation_id = ?", id).
		Scan(&metas).Error
	if err != nil {
		return nil, fmt.Errorf("load donation meta %d: %w", id, err)
	}
	meta := make(map[string]string, len(metas))
	for _, m := range metas {
		meta[m.MetaKey] = m.MetaValue
	}

	ev := &types.DonationEvent{
		ID:            post.ID,
		SourceDonorID: parseInt(meta[metaDonorID]),
		Email:         strings.TrimSpace(meta[metaEmail]),
		FirstName:     meta[metaFirstName],
		LastName:      meta[metaLastName],
		Amount:        parseAmount(meta[metaTotal]),
		CreatedAt:     post.PostDate,
		GatewayID:     meta[metaGateway],
		FormTitle:     meta[metaFormTitle],
		Status:        post.PostStatus,
		Kind:          kindOf(post.PostStatus, meta[metaIsSubscription]),
	}
	if ev.FormTitle == "" {
		ev.FormTitle = defaultFormName
	}
	if ev.GatewayID == "" {
		ev.GatewayID = "unknown"
	}
	if !ev.Kind.IsRecurring() {
		return ev, nil
	}

	sub, err := s.findSubscription(ctx, post, meta)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		ev.SubscriptionID = &sub.ID
		ev.Period = types.BillingPeriod(sub.Period)
	}
	ev.Period = ev.EffectivePeriod()
	return ev, nil
}

func (s *Source) findSubscription(ctx context.Context, post postRow, meta map[string]string) (*subscriptionRow, error) {
	q := s.db.WithContext(ctx).Table(s.table("give_subscriptions")).Select("id, period")
	subID := parseInt(meta[metaSubscriptionID])
	if subID == 0 {
		subID = parseInt(meta[metaSubscriptionIDV2])
	}
	if subID > 0 {
		q = q.Where("id = ?", subID)
	} else {
		// Renewals point at the initial payment through post_parent.
		parents := []int64{post.ID}
		if post.PostParent > 0 {
			parents = append(parents, post.PostParent)
		}
		q = q.Where("parent_payment_id IN ?", parents)
	}
	var rows []subscriptionRow
	if err := q.Order("id ASC").Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load subscription of donation %d: %w", post.ID, err)
	}
	if len(rows) == 0 {
		if subID > 0 {
			return &subscriptionRow{ID: subID}, nil
		}
		return nil, nil
	}
	return &rows[0], nil
}

// ListDonors returns every donor with an email address, ordered by id.
func (s *Source) ListDonors(ctx context.Context) ([]Donor, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var donors []Donor
	err := s.db.WithContext(ctx).Table(s.table("give_donors")).
		Select("id, email, name").
		Where("email <> ''").
		Order("id ASC").
		Scan(&donors).Error
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	return donors, nil
}

func kindOf(status, subscriptionFlag string) types.DonationKind {
	switch {
	case status == types.DonationStatusSubscription:
		return types.DonationKindRenewal
	case subscriptionFlag == "1" || strings.EqualFold(subscriptionFlag, "true"):
		return types.DonationKindFirstRecurring
	default:
		return types.DonationKindOneTime
	}
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}
