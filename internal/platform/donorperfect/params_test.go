package donorperfect

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

var giftDate = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

func TestEncodeValue(t *testing.T) {
	var nilID *int64
	id := int64(42)
	cases := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{nilID, "null"},
		{&id, "42"},
		{0, "0"},
		{int64(900), "900"},
		{12.5, "12.5"},
		{decimal.RequireFromString("25.5"), "25.50"},
		{"N", "'N'"},
		{"O'Brien", "'O''Brien'"},
		{"it''s", "'it''''s'"},
		{giftDate, "'03/05/2024'"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, EncodeValue(c.in))
	}
}

func TestParams_SetOverridesInPlace(t *testing.T) {
	p := Params{{"a", 1}, {"b", nil}}
	p = p.Set("b", "x").Set("c", 3)

	require.Equal(t, "@a=1,@b='x',@c=3", p.Encode())
	v, ok := p.Get("b")
	require.True(t, ok)
	require.Equal(t, "x", v)
	_, ok = p.Get("missing")
	require.False(t, ok)
}

func TestDonorParams_Golden(t *testing.T) {
	in := DonorInput{FirstName: "Siobhan", LastName: "O'Brien", Email: "siobhan@example.org", Country: "US"}
	newGoldie(t).Assert(t, "savedonor", []byte(in.params("GiveWP_Sync").Encode()))
}

func TestGiftParams_Golden(t *testing.T) {
	pledgeID := int64(900)
	in := GiftInput{
		DonorID:        501,
		GiftDate:       giftDate,
		Amount:         decimal.RequireFromString("25.5"),
		GLCode:         "UN",
		SubSolicitCode: "RECURRING",
		Campaign:       "SPRING",
		GiftType:       "PAYPAL",
		Reference:      "GIVEWP-1001",
		Narrative:      "GiveWP #1001 - Kids' Fund (Recurring - Renewal $25.50)",
		PledgeID:       &pledgeID,
	}
	newGoldie(t).Assert(t, "savegift", []byte(in.params("GiveWP_Sync").Encode()))
}

func TestGiftParams_WithoutPledgeKeepsDefaults(t *testing.T) {
	in := GiftInput{DonorID: 1, GiftDate: giftDate, Amount: decimal.NewFromInt(10), GLCode: "UN", GiftType: "CC"}
	p := in.params("GiveWP_Sync")

	v, _ := p.Get("pledge_payment")
	require.Equal(t, "N", v)
	v, _ = p.Get("plink")
	require.Nil(t, v)
	v, _ = p.Get("campaign")
	require.Nil(t, v)
}

func TestPledgeParams_Golden(t *testing.T) {
	in := PledgeInput{
		DonorID:        501,
		StartDate:      giftDate,
		Bill:           decimal.RequireFromString("25.50"),
		Frequency:      "Q",
		GLCode:         "UN",
		SolicitCode:    "WEB",
		SubSolicitCode: "RECURRING",
		Narrative:      "GiveWP Recurring - Kids' Fund ($25.50/quarter)",
	}
	newGoldie(t).Assert(t, "savepledge", []byte(in.params("GiveWP_Sync").Encode()))
}

func TestCodeParams_Golden(t *testing.T) {
	in := CodeInput{FieldName: "SUB_SOLICIT_CODE", Code: "RECURRING", Description: "Recurring gift"}
	newGoldie(t).Assert(t, "savecode", []byte(in.params("GiveWP_Sync").Encode()))
}
