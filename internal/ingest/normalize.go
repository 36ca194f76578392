package ingest

import (
	"strings"

	"voter-outreach/internal/domain"
)

// Normalizer cleans candidate records and decides which ones are loadable.
type Normalizer struct {
	countryCode string
}

// NewNormalizer countryCode is the dialing prefix without "+", e.g. "234".
func NewNormalizer(countryCode string) *Normalizer {
	return &Normalizer{countryCode: strings.TrimPrefix(strings.TrimSpace(countryCode), "+")}
}

// NormalizeResult accepted records plus row-level rejections.
type NormalizeResult struct {
	Accepted  []*domain.VoterRecord
	Rejected  []domain.RowRejection
	TotalRows int
}

// Normalize cleans one record. A non-empty reason means the row is rejected.
func (n *Normalizer) Normalize(c CandidateRecord) (*domain.VoterRecord, string) {
	t := domain.Territory{
		State:           c.State,
		LGA:             c.LGA,
		Ward:            c.Ward,
		PollingUnit:     c.PollingUnit,
		PollingUnitCode: c.PollingUnitCode,
	}.Clean()

	var problems []string
	rawPhone := domain.CollapseSpace(c.PhoneNumber)
	phone := CanonicalPhone(rawPhone, n.countryCode)
	switch {
	case rawPhone == "":
		problems = append(problems, "missing phone number")
	case phone == "":
		problems = append(problems, "invalid phone number "+rawPhone)
	}

	var missing []string
	if t.State == "" {
		missing = append(missing, "state")
	}
	if t.LGA == "" {
		missing = append(missing, "lga")
	}
	if t.Ward == "" {
		missing = append(missing, "ward")
	}
	if t.PollingUnit == "" {
		missing = append(missing, "pollingUnit")
	}
	if len(missing) > 0 {
		problems = append(problems, "missing "+strings.Join(missing, ", "))
	}
	if len(problems) > 0 {
		return nil, strings.Join(problems, "; ")
	}

	return &domain.VoterRecord{
		State:           t.State,
		LGA:             t.LGA,
		Ward:            t.Ward,
		PollingUnit:     t.PollingUnit,
		PollingUnitCode: t.PollingUnitCode,
		TerritoryKey:    t.Key(),
		PhoneNumber:     phone,
		FullName:        optional(c.FullName),
		EmailAddress:    optional(strings.ToLower(c.EmailAddress)),
		Gender:          optional(c.Gender),
		AgeGroup:        optional(c.AgeGroup),
		SourceRow:       c.Row,
	}, ""
}

// NormalizeAll never aborts; bad rows are collected with their row number.
func (n *Normalizer) NormalizeAll(cands []CandidateRecord) NormalizeResult {
	res := NormalizeResult{
		Accepted:  make([]*domain.VoterRecord, 0, len(cands)),
		Rejected:  make([]domain.RowRejection, 0),
		TotalRows: len(cands),
	}
	for _, c := range cands {
		v, reason := n.Normalize(c)
		if reason != "" {
			res.Rejected = append(res.Rejected, domain.RowRejection{Row: c.Row, Reason: reason})
			continue
		}
		res.Accepted = append(res.Accepted, v)
	}
	return res
}

func optional(s string) *string {
	s = domain.CollapseSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
