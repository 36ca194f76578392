package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPhone(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"08012345678", "+2348012345678"},
		{"8012345678", "+2348012345678"},
		{"+234 801 234 5678", "+2348012345678"},
		{"2348012345678", "+2348012345678"},
		{"002348012345678", "+2348012345678"},
		{"+234 0801-234-5678", "+2348012345678"},
		{"(0801) 234.5678", "+2348012345678"},
		{"2345678901", "+2342345678901"},
		{"123", ""},
		{"", ""},
		{"080123456789", ""},
		{"0801234567", ""},
		{"phone", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanonicalPhone(tc.raw, "234"), "raw=%q", tc.raw)
	}
}

func TestCanonicalPhone_AlwaysTenNationalDigits(t *testing.T) {
	inputs := []string{"0", "00", "07", "0701234567", "07012345678", "070123456789", "234", "2347012345678", "99999999999999"}
	for _, in := range inputs {
		out := CanonicalPhone(in, "234")
		if out == "" {
			continue
		}
		require.True(t, strings.HasPrefix(out, "+234"), out)
		assert.Len(t, strings.TrimPrefix(out, "+234"), NationalNumberLength)
	}
}

func TestNormalize_CleansAndKeys(t *testing.T) {
	n := NewNormalizer("+234")

	v, reason := n.Normalize(CandidateRecord{
		Row: 2, State: "  Lagos ", LGA: "Ikeja", Ward: "Ward \t A", PollingUnit: "PU  1",
		PollingUnitCode: " PU1-01 ", PhoneNumber: "0801 234 5678",
		FullName: "  Ada   Obi ", EmailAddress: " Ada@Example.COM ", Gender: "",
	})

	require.Empty(t, reason)
	assert.Equal(t, "Lagos", v.State)
	assert.Equal(t, "Ward A", v.Ward)
	assert.Equal(t, "PU 1", v.PollingUnit)
	assert.Equal(t, "PU1-01", v.PollingUnitCode)
	assert.Equal(t, "+2348012345678", v.PhoneNumber)
	assert.Equal(t, "Ada Obi", *v.FullName)
	assert.Equal(t, "ada@example.com", *v.EmailAddress)
	assert.Nil(t, v.Gender)
	assert.Equal(t, v.Territory().Key(), v.TerritoryKey)
	assert.Equal(t, 2, v.SourceRow)
}

func TestNormalizeAll_RejectsWithReasons(t *testing.T) {
	n := NewNormalizer("234")
	res := n.NormalizeAll([]CandidateRecord{
		{Row: 2, State: "Lagos", LGA: "Ikeja", Ward: "A", PollingUnit: "1", PhoneNumber: "08012345678"},
		{Row: 3, State: "Lagos", LGA: "Ikeja", Ward: "A", PollingUnit: "1", PhoneNumber: "123"},
		{Row: 4, State: "Lagos", LGA: " ", Ward: "", PollingUnit: "1", PhoneNumber: "08012345678"},
		{Row: 5, State: "Lagos", LGA: "Ikeja", Ward: "A", PollingUnit: "1"},
	})

	assert.Equal(t, 4, res.TotalRows)
	assert.Len(t, res.Accepted, 1)
	require.Len(t, res.Rejected, 3)
	assert.Equal(t, 3, res.Rejected[0].Row)
	assert.Contains(t, res.Rejected[0].Reason, "invalid phone number 123")
	assert.Equal(t, 4, res.Rejected[1].Row)
	assert.Equal(t, "missing lga, ward", res.Rejected[1].Reason)
	assert.Equal(t, "missing phone number", res.Rejected[2].Reason)
}
