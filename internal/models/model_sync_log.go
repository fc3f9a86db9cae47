package models

import (
	"time"

	"github.com/fatflowers/donorsync/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SyncLogDetail struct {
	// Donation snapshot as seen at the time of the attempt
	Donation *types.DonationEvent `json:"donation,omitempty"`
	GiftType string               `json:"gift_type,omitempty"`
	// Retryable is set on error rows whose cause was transient
	Retryable bool   `json:"retryable,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// SyncLog is the single ledger row of a donation. A success row is never replaced.
type SyncLog struct {
	ID             string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	DonationID     int64              `gorm:"column:donation_id;not null;uniqueIndex:unique_sync_log_donation_id" json:"donation_id"`
	SourceDonorID  *int64             `gorm:"column:source_donor_id" json:"source_donor_id"`
	SubscriptionID *int64             `gorm:"column:subscription_id;index" json:"subscription_id"`
	DPDonorID      *int64             `gorm:"column:dp_donor_id;index" json:"dp_donor_id"`
	DPGiftID       *int64             `gorm:"column:dp_gift_id" json:"dp_gift_id"`
	DPPledgeID     *int64             `gorm:"column:dp_pledge_id" json:"dp_pledge_id"`
	DonorAction    *types.DonorAction `gorm:"column:donor_action;type:varchar(20)" json:"donor_action"`
	DonationKind   types.DonationKind `gorm:"column:donation_kind;type:varchar(20)" json:"donation_kind"`
	Amount         decimal.Decimal    `gorm:"column:amount;type:decimal(10,2)" json:"amount"`
	Status         types.SyncStatus   `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	ErrorMessage   *string            `gorm:"column:error_message;type:text" json:"error_message"`

	Detail    datatypes.JSONType[*SyncLogDetail] `gorm:"column:detail;type:jsonb;default:'{}'" json:"detail"`
	SyncedAt  time.Time                          `gorm:"column:synced_at;index" json:"synced_at"`
	CreatedAt time.Time                          `json:"created_at"`
	UpdatedAt time.Time                          `json:"updated_at"`
}

func (SyncLog) TableName() string { return "sync_log" }

func (l *SyncLog) IsSuccess() bool {
	return l != nil && l.Status == types.SyncStatusSuccess
}

func (l *SyncLog) GetDonationSnapshot() *types.DonationEvent {
	if l == nil || l.Detail.Data() == nil {
		return nil
	}
	return l.Detail.Data().Donation
}
