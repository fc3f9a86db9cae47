package reconcile

import (
	"errors"

	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
)

var (
	// ErrNotConfigured means no CRM credential is set. Nothing is written to the ledger.
	ErrNotConfigured = errors.New("DonorPerfect API not configured")
	// ErrNoEmail is the permanent skip reason for donations without a donor email.
	ErrNoEmail = errors.New("no email")
	// ErrInvalidDonation covers events the engine cannot map, e.g. a recurring
	// donation without subscription id.
	ErrInvalidDonation = errors.New("invalid donation")
	// ErrLedgerUnavailable means the sync state could not be read, so the donation
	// was not attempted.
	ErrLedgerUnavailable = errors.New("sync ledger unavailable")
)

// Retryable reports whether rerunning the donation later may succeed.
// Transport and protocol failures are transient, remote rejections need an
// operator to fix configuration first.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrNoEmail) || errors.Is(err, ErrInvalidDonation) {
		return false
	}
	return donorperfect.Retryable(err)
}

func reasonOf(err error) string {
	var apiErr *donorperfect.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
