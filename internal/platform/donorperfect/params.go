package donorperfect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the m/d/Y format the stored procedures expect.
const DateLayout = "01/02/2006"

// Param is a single named stored procedure argument.
type Param struct {
	Name  string
	Value any
}

// Params keeps argument order. The procedures accept named arguments but the
// encoded order is kept stable so requests are reproducible.
type Params []Param

// Set overrides an existing argument in place or appends a new one.
func (p Params) Set(name string, value any) Params {
	for i := range p {
		if p[i].Name == name {
			p[i].Value = value
			return p
		}
	}
	return append(p, Param{Name: name, Value: value})
}

func (p Params) Get(name string) (any, bool) {
	for _, it := range p {
		if it.Name == name {
			return it.Value, true
		}
	}
	return nil, false
}

// Encode renders @name=value pairs joined by commas.
func (p Params) Encode() string {
	parts := make([]string, 0, len(p))
	for _, it := range p {
		parts = append(parts, "@"+it.Name+"="+EncodeValue(it.Value))
	}
	return strings.Join(parts, ",")
}

// EncodeValue renders nil as null, numbers unquoted and anything else as a
// single-quoted string with embedded quotes doubled.
func EncodeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case *int64:
		if x == nil {
			return "null"
		}
		return strconv.FormatInt(*x, 10)
	case *string:
		if x == nil {
			return "null"
		}
		return quote(*x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.StringFixed(2)
	case time.Time:
		return quote(x.Format(DateLayout))
	case string:
		return quote(x)
	default:
		return quote(fmt.Sprint(x))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// nullable maps empty optional codes to SQL null.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func donorDefaults(userID string) Params {
	return Params{
		{"donor_id", 0},
		{"first_name", nil},
		{"last_name", nil},
		{"middle_name", nil},
		{"suffix", nil},
		{"title", nil},
		{"salutation", nil},
		{"prof_title", nil},
		{"opt_line", nil},
		{"address", nil},
		{"address2", nil},
		{"city", nil},
		{"state", nil},
		{"zip", nil},
		{"country", nil},
		{"address_type", nil},
		{"home_phone", nil},
		{"business_phone", nil},
		{"fax_phone", nil},
		{"mobile_phone", nil},
		{"email", nil},
		{"org_rec", "N"},
		{"donor_type", "IN"},
		{"nomail", "N"},
		{"nomail_reason", nil},
		{"narrative", nil},
		{"donor_rcpt_type", "I"},
		{"user_id", userID},
	}
}

func giftDefaults(userID string) Params {
	return Params{
		{"gift_id", 0},
		{"donor_id", 0},
		{"record_type", "G"},
		{"gift_date", nil},
		{"amount", 0},
		{"gl_code", "UN"},
		{"solicit_code", nil},
		{"sub_solicit_code", nil},
		{"campaign", nil},
		{"gift_type", "CC"},
		{"split_gift", "N"},
		{"pledge_payment", "N"},
		{"reference", nil},
		{"transaction_id", nil},
		{"memory_honor", nil},
		{"gfname", nil},
		{"glname", nil},
		{"fmv", 0},
		{"batch_no", 0},
		{"gift_narrative", nil},
		{"ty_letter_no", nil},
		{"glink", nil},
		{"plink", nil},
		{"nocalc", "N"},
		{"receipt", "N"},
		{"old_amount", nil},
		{"user_id", userID},
		{"gift_aid_date", nil},
		{"gift_aid_amt", nil},
		{"gift_aid_eligible_g", nil},
		{"currency", "USD"},
		{"first_gift", "N"},
	}
}

func pledgeDefaults(userID string) Params {
	return Params{
		{"gift_id", 0},
		{"donor_id", 0},
		{"gift_date", nil},
		{"start_date", nil},
		{"total", 0},
		{"bill", 0},
		{"frequency", "M"},
		{"reminder", "N"},
		{"gl_code", "UN"},
		{"solicit_code", nil},
		{"initial_payment", "Y"},
		{"sub_solicit_code", nil},
		{"writeoff_amount", 0},
		{"writeoff_date", nil},
		{"user_id", userID},
		{"campaign", nil},
		{"membership_type", nil},
		{"membership_level", nil},
		{"membership_enr_date", nil},
		{"membership_exp_date", nil},
		{"membership_link_ID", nil},
		{"address_id", nil},
		{"gift_narrative", nil},
		{"ty_letter_no", nil},
		{"vault_id", nil},
		{"receipt_delivery_g", nil},
		{"contact_id", nil},
	}
}

func codeDefaults(userID string) Params {
	return Params{
		{"field_name", nil},
		{"code", nil},
		{"description", nil},
		{"original_code", nil},
		{"code_date", nil},
		{"mcat_hi", nil},
		{"mcat_lo", nil},
		{"mcat_gl", nil},
		{"reciprocal", nil},
		{"mailed", nil},
		{"printing", nil},
		{"other", nil},
		{"goal", nil},
		{"acct_num", nil},
		{"campaign", nil},
		{"solicit_code", nil},
		{"overwrite", nil},
		{"inactive", "N"},
		{"client_id", nil},
		{"available_for_sol", nil},
		{"user_id", userID},
		{"cashact", nil},
		{"membership_type", nil},
		{"leeway_days", nil},
		{"comments", nil},
		{"begin_date", nil},
		{"end_date", nil},
		{"ty_prioritize", nil},
		{"ty_filter_id", nil},
		{"ty_gift_option", nil},
		{"ty_amount_option", nil},
		{"ty_from_amount", nil},
		{"ty_to_amount", nil},
		{"ty_alternate", nil},
		{"ty_priority", nil},
	}
}

type DonorInput struct {
	FirstName string
	LastName  string
	Email     string
	Country   string
}

func (in DonorInput) params(userID string) Params {
	return donorDefaults(userID).
		Set("first_name", in.FirstName).
		Set("last_name", in.LastName).
		Set("email", in.Email).
		Set("country", nullable(in.Country))
}

type GiftInput struct {
	DonorID        int64
	GiftDate       time.Time
	Amount         decimal.Decimal
	GLCode         string
	SolicitCode    string
	SubSolicitCode string
	Campaign       string
	GiftType       string
	Reference      string
	Narrative      string
	// PledgeID links the gift to a pledge as a pledge payment.
	PledgeID *int64
}

func (in GiftInput) params(userID string) Params {
	p := giftDefaults(userID).
		Set("donor_id", in.DonorID).
		Set("gift_date", in.GiftDate).
		Set("amount", in.Amount).
		Set("gl_code", in.GLCode).
		Set("solicit_code", nullable(in.SolicitCode)).
		Set("sub_solicit_code", nullable(in.SubSolicitCode)).
		Set("campaign", nullable(in.Campaign)).
		Set("gift_type", in.GiftType).
		Set("reference", nullable(in.Reference)).
		Set("gift_narrative", nullable(in.Narrative))
	if in.PledgeID != nil {
		p = p.Set("pledge_payment", "Y").Set("plink", *in.PledgeID)
	}
	return p
}

// PledgeInput describes an open-ended pledge: total is always 0 and Bill is the
// per-period amount.
type PledgeInput struct {
	DonorID        int64
	StartDate      time.Time
	Bill           decimal.Decimal
	Frequency      string
	GLCode         string
	SolicitCode    string
	SubSolicitCode string
	Campaign       string
	Narrative      string
}

func (in PledgeInput) params(userID string) Params {
	return pledgeDefaults(userID).
		Set("donor_id", in.DonorID).
		Set("gift_date", in.StartDate).
		Set("start_date", in.StartDate).
		Set("total", 0).
		Set("bill", in.Bill).
		Set("frequency", in.Frequency).
		Set("gl_code", in.GLCode).
		Set("solicit_code", nullable(in.SolicitCode)).
		Set("sub_solicit_code", nullable(in.SubSolicitCode)).
		Set("campaign", nullable(in.Campaign)).
		Set("initial_payment", "Y").
		Set("gift_narrative", nullable(in.Narrative))
}

type CodeInput struct {
	FieldName   string
	Code        string
	Description string
}

func (in CodeInput) params(userID string) Params {
	return codeDefaults(userID).
		Set("field_name", in.FieldName).
		Set("code", in.Code).
		Set("description", in.Description)
}
