package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Territory is the (state, lga, ward, polling unit) tuple a caller is assigned to.
// It is derived from distinct voter rows, never stored on its own.
type Territory struct {
	State           string `json:"state"`
	LGA             string `json:"lga"`
	Ward            string `json:"ward"`
	PollingUnit     string `json:"polling_unit"`
	PollingUnitCode string `json:"polling_unit_code,omitempty"`
}

// CollapseSpace trims s and collapses internal runs of whitespace to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clean returns a copy with every field whitespace-collapsed.
func (t Territory) Clean() Territory {
	return Territory{
		State:           CollapseSpace(t.State),
		LGA:             CollapseSpace(t.LGA),
		Ward:            CollapseSpace(t.Ward),
		PollingUnit:     CollapseSpace(t.PollingUnit),
		PollingUnitCode: CollapseSpace(t.PollingUnitCode),
	}
}

// Complete reports whether all four path fields are present.
func (t Territory) Complete() bool {
	c := t.Clean()
	return c.State != "" && c.LGA != "" && c.Ward != "" && c.PollingUnit != ""
}

// Key is the stable territory identifier: case and whitespace drift in the
// four path fields map to the same key. The polling unit code is not part of it.
func (t Territory) Key() string {
	c := t.Clean()
	parts := []string{
		strings.ToLower(c.State),
		strings.ToLower(c.LGA),
		strings.ToLower(c.Ward),
		strings.ToLower(c.PollingUnit),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

// TerritorySummary is one territory with its outreach counters.
type TerritorySummary struct {
	Territory
	TerritoryKey   string  `json:"territory_key"`
	VoterCount     int     `json:"voter_count"`
	CalledCount    int     `json:"called_count"`
	ConfirmedCount int     `json:"confirmed_count"`
	AssignedUserID *string `json:"assigned_user_id,omitempty"`
}

// AreaCount is one drill-down level entry (a state, LGA, ward or polling unit).
type AreaCount struct {
	Name            string `json:"name"`
	PollingUnitCode string `json:"polling_unit_code,omitempty"`
	TerritoryKey    string `json:"territory_key,omitempty"`
	VoterCount      int    `json:"voter_count"`
}
