package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type DonationKind string

const (
	DonationKindOneTime        DonationKind = "single"
	DonationKindFirstRecurring DonationKind = "subscription"
	DonationKindRenewal        DonationKind = "renewal"
)

func (k DonationKind) IsRecurring() bool {
	return k == DonationKindFirstRecurring || k == DonationKindRenewal
}

// Label is the human readable kind used in gift narratives.
func (k DonationKind) Label() string {
	switch k {
	case DonationKindOneTime:
		return "One-Time"
	case DonationKindFirstRecurring:
		return "Recurring - Initial"
	case DonationKindRenewal:
		return "Recurring - Renewal"
	default:
		return string(k)
	}
}

type BillingPeriod string

const (
	BillingPeriodDay     BillingPeriod = "day"
	BillingPeriodWeek    BillingPeriod = "week"
	BillingPeriodMonth   BillingPeriod = "month"
	BillingPeriodQuarter BillingPeriod = "quarter"
	BillingPeriodYear    BillingPeriod = "year"
)

// PledgeFrequency maps a billing period to the CRM pledge frequency code.
// The CRM has no daily or weekly frequency, both collapse to monthly.
func (p BillingPeriod) PledgeFrequency() string {
	switch p {
	case BillingPeriodQuarter:
		return "Q"
	case BillingPeriodYear:
		return "A"
	default:
		return "M"
	}
}

// Donation statuses reported by the source platform that are eligible for sync.
const (
	DonationStatusPublish      = "publish"
	DonationStatusSubscription = "give_subscription"
)

var SyncableDonationStatuses = []string{DonationStatusPublish, DonationStatusSubscription}

// DonationEvent is the normalized view of a completed donation.
type DonationEvent struct {
	ID             int64           `json:"id"`
	SourceDonorID  int64           `json:"source_donor_id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
	GatewayID      string          `json:"gateway_id"`
	FormTitle      string          `json:"form_title"`
	Status         string          `json:"status"`
	Kind           DonationKind    `json:"kind"`
	SubscriptionID *int64          `json:"subscription_id,omitempty"`
	Period         BillingPeriod   `json:"period,omitempty"`
}

func (e *DonationEvent) FullName() string {
	return fmt.Sprintf("%s %s", e.FirstName, e.LastName)
}

// DisplayAmount renders the amount with exactly two decimals.
func (e *DonationEvent) DisplayAmount() string {
	return e.Amount.StringFixed(2)
}

func (e *DonationEvent) EffectivePeriod() BillingPeriod {
	if e.Period == "" {
		return BillingPeriodMonth
	}
	return e.Period
}
