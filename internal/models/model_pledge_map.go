package models

import (
	"time"

	"github.com/fatflowers/donorsync/pkg/types"
	"github.com/shopspring/decimal"
)

// PledgeMap links a recurring subscription to the open-ended pledge created for its first payment.
type PledgeMap struct {
	ID             string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID int64               `gorm:"column:subscription_id;not null;uniqueIndex:unique_pledge_map_subscription_id" json:"subscription_id"`
	SourceDonorID  int64               `gorm:"column:source_donor_id;not null" json:"source_donor_id"`
	DPDonorID      int64               `gorm:"column:dp_donor_id;not null" json:"dp_donor_id"`
	DPPledgeID     int64               `gorm:"column:dp_pledge_id;not null;index" json:"dp_pledge_id"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:decimal(10,2)" json:"amount"`
	Frequency      types.BillingPeriod `gorm:"column:frequency;type:varchar(10);default:'month'" json:"frequency"`
	CreatedAt      time.Time           `json:"created_at"`
}

func (PledgeMap) TableName() string { return "pledge_map" }
