package givewp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/donorsync/pkg/types"
)

// DonationPayload is the JSON snapshot GiveWP posts on donation updates and
// publishes to the donation topic.
type DonationPayload struct {
	ID             int64           `json:"id"`
	DonorID        int64           `json:"donorId"`
	Email          string          `json:"email"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      string          `json:"createdAt"`
	GatewayID      string          `json:"gatewayId"`
	Type           string          `json:"type"`
	SubscriptionID int64           `json:"subscriptionId"`
	Period         string          `json:"period"`
	Status         string          `json:"status"`
	FormTitle      string          `json:"formTitle"`
}

var createdAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func ParseDonationPayload(data []byte) (*types.DonationEvent, error) {
	var p DonationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode donation payload: %w", err)
	}
	return p.ToEvent()
}

// ToEvent normalizes the payload. Missing timestamps default to now, missing
// gateways to "unknown" and a missing form title to "Donation".
func (p *DonationPayload) ToEvent() (*types.DonationEvent, error) {
	if p.ID <= 0 {
		return nil, fmt.Errorf("invalid donation id %d", p.ID)
	}
	kind, err := parseKind(p.Type)
	if err != nil {
		return nil, err
	}
	created, err := parseCreatedAt(p.CreatedAt)
	if err != nil {
		return nil, err
	}
	ev := &types.DonationEvent{
		ID:            p.ID,
		SourceDonorID: p.DonorID,
		Email:         strings.TrimSpace(p.Email),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Amount:        p.Amount.Round(2),
		CreatedAt:     created,
		GatewayID:     p.GatewayID,
		FormTitle:     p.FormTitle,
		Status:        p.Status,
		Kind:          kind,
	}
	if ev.GatewayID == "" {
		ev.GatewayID = "unknown"
	}
	if ev.FormTitle == "" {
		ev.FormTitle = defaultFormName
	}
	if kind.IsRecurring() {
		if p.SubscriptionID > 0 {
			sub := p.SubscriptionID
			ev.SubscriptionID = &sub
		}
		ev.Period = types.BillingPeriod(strings.ToLower(p.Period))
		ev.Period = ev.EffectivePeriod()
	}
	return ev, nil
}

func parseKind(s string) (types.DonationKind, error) {
	switch types.DonationKind(strings.ToLower(s)) {
	case "", types.DonationKindOneTime:
		return types.DonationKindOneTime, nil
	case types.DonationKindFirstRecurring:
		return types.DonationKindFirstRecurring, nil
	case types.DonationKindRenewal:
		return types.DonationKindRenewal, nil
	default:
		return "", fmt.Errorf("unknown donation type %q", s)
	}
}

func parseCreatedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid createdAt %q", s)
}
