package reconcile

import (
	"fmt"

	"github.com/fatflowers/donorsync/pkg/types"
)

// Pledge actions reported by dry runs.
const (
	PledgeActionCreate   = "create_pledge"
	PledgeActionGiftOnly = "gift_only (no pledge found)"
	PledgeActionNone     = "none"
)

func pledgeActionLink(pledgeID int64) string {
	return fmt.Sprintf("link_to_pledge #%d", pledgeID)
}

// Preview describes what a real run would do. Only dry runs fill it.
type Preview struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Kind         string `json:"kind"`
	DonorAction  string `json:"donor_action"`
	DPDonorID    *int64 `json:"dp_donor_id,omitempty"`
	PledgeAction string `json:"pledge_action"`
}

// Result is the outcome of one engine invocation. Err keeps the cause for
// callers, Error is the text written to the ledger.
type Result struct {
	DonationID  int64              `json:"donation_id"`
	Status      types.SyncStatus   `json:"status"`
	Kind        types.DonationKind `json:"kind,omitempty"`
	DonorAction types.DonorAction  `json:"donor_action,omitempty"`
	DonorID     *int64             `json:"donor_id,omitempty"`
	GiftID      *int64             `json:"gift_id,omitempty"`
	PledgeID    *int64             `json:"pledge_id,omitempty"`
	Error       string             `json:"error,omitempty"`
	Retryable   bool               `json:"retryable,omitempty"`
	Preview     *Preview           `json:"preview,omitempty"`

	Err error `json:"-"`
}

func (r *Result) Succeeded() bool {
	return r != nil && r.Status == types.SyncStatusSuccess
}
