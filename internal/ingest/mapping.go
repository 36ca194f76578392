package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"voter-outreach/internal/domain"
)

// Field logical voter field a column can be mapped to
type Field string

const (
	FieldState           Field = "state"
	FieldLGA             Field = "lga"
	FieldWard            Field = "ward"
	FieldPollingUnit     Field = "pollingUnit"
	FieldPollingUnitCode Field = "pollingUnitCode"
	FieldPhoneNumber     Field = "phoneNumber"
	FieldFullName        Field = "fullName"
	FieldEmailAddress    Field = "emailAddress"
	FieldGender          Field = "gender"
	FieldAgeGroup        Field = "ageGroup"
)

// RequiredFields must be present in every mapping.
var RequiredFields = []Field{FieldState, FieldLGA, FieldWard, FieldPollingUnit, FieldPhoneNumber}

// OptionalFields may be omitted.
var OptionalFields = []Field{FieldPollingUnitCode, FieldFullName, FieldEmailAddress, FieldGender, FieldAgeGroup}

func knownField(f Field) bool {
	for _, k := range RequiredFields {
		if k == f {
			return true
		}
	}
	for _, k := range OptionalFields {
		if k == f {
			return true
		}
	}
	return false
}

// ColumnRef points at a column by 0-based index or by header name.
type ColumnRef struct {
	Index  int
	Name   string
	byName bool
	set    bool
}

// ColumnIndex references a column by position.
func ColumnIndex(i int) ColumnRef {
	return ColumnRef{Index: i, set: true}
}

// ColumnName references a column by header text.
func ColumnName(name string) ColumnRef {
	return ColumnRef{Name: name, byName: true, set: true}
}

// ParseColumnRef treats all-digit input as an index, anything else as a header name.
func ParseColumnRef(s string) ColumnRef {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return ColumnIndex(i)
	}
	return ColumnName(s)
}

func (c ColumnRef) String() string {
	if c.byName {
		return strconv.Quote(c.Name)
	}
	return "#" + strconv.Itoa(c.Index)
}

// UnmarshalJSON accepts a number (index), a string (header name) or null (unmapped).
func (c *ColumnRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = ColumnRef{}
		return nil
	}
	var idx int
	if err := json.Unmarshal(b, &idx); err == nil {
		*c = ColumnIndex(idx)
		return nil
	}
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("column reference must be an index or a header name: %s", string(b))
	}
	if strings.TrimSpace(name) == "" {
		*c = ColumnRef{}
		return nil
	}
	*c = ColumnName(name)
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (c ColumnRef) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	if c.byName {
		return json.Marshal(c.Name)
	}
	return json.Marshal(c.Index)
}

// ColumnMapping field -> column, as chosen by the operator.
type ColumnMapping map[Field]ColumnRef

// Resolve binds the mapping to a header row. It fails before any data row is
// read: unknown field names first, then every missing required field at once,
// then references to columns the sheet doesn't have.
func (m ColumnMapping) Resolve(headers []string) (*ResolvedMapping, error) {
	unknown := make([]string, 0)
	for f := range m {
		if !knownField(f) {
			unknown = append(unknown, string(f))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, strings.Join(unknown, ", "))
	}

	var missing []string
	for _, f := range RequiredFields {
		if ref, ok := m[f]; !ok || !ref.set {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingMappingError{Fields: missing}
	}

	byName := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(domain.CollapseSpace(h))
		if _, dup := byName[key]; !dup && key != "" {
			byName[key] = i
		}
	}

	resolved := &ResolvedMapping{index: make(map[Field]int, len(m))}
	for _, f := range append(append([]Field{}, RequiredFields...), OptionalFields...) {
		ref, ok := m[f]
		if !ok || !ref.set {
			continue
		}
		idx, err := ref.resolve(byName, len(headers))
		if err != nil {
			return nil, &domain.UnknownColumnError{Field: string(f), Column: ref.String()}
		}
		resolved.index[f] = idx
	}
	return resolved, nil
}

func (c ColumnRef) resolve(byName map[string]int, width int) (int, error) {
	if c.byName {
		if i, ok := byName[strings.ToLower(domain.CollapseSpace(c.Name))]; ok {
			return i, nil
		}
		// "3" sent as a string still works when no header is literally named "3"
		if i, err := strconv.Atoi(strings.TrimSpace(c.Name)); err == nil && i >= 0 && i < width {
			return i, nil
		}
		return 0, fmt.Errorf("no column named %q", c.Name)
	}
	if c.Index < 0 || c.Index >= width {
		return 0, fmt.Errorf("column index %d out of range", c.Index)
	}
	return c.Index, nil
}

// ResolvedMapping a mapping bound to concrete column positions.
type ResolvedMapping struct {
	index map[Field]int
}

// Column position bound to f, if mapped.
func (r *ResolvedMapping) Column(f Field) (int, bool) {
	i, ok := r.index[f]
	return i, ok
}

// CandidateRecord raw values extracted from one row; not validated.
type CandidateRecord struct {
	Row             int
	State           string
	LGA             string
	Ward            string
	PollingUnit     string
	PollingUnitCode string
	PhoneNumber     string
	FullName        string
	EmailAddress    string
	Gender          string
	AgeGroup        string
}

// Extract reads the mapped cells of one row. Short rows yield empty values.
func (r *ResolvedMapping) Extract(rowNumber int, cells []string) CandidateRecord {
	get := func(f Field) string {
		i, ok := r.index[f]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	return CandidateRecord{
		Row:             rowNumber,
		State:           get(FieldState),
		LGA:             get(FieldLGA),
		Ward:            get(FieldWard),
		PollingUnit:     get(FieldPollingUnit),
		PollingUnitCode: get(FieldPollingUnitCode),
		PhoneNumber:     get(FieldPhoneNumber),
		FullName:        get(FieldFullName),
		EmailAddress:    get(FieldEmailAddress),
		Gender:          get(FieldGender),
		AgeGroup:        get(FieldAgeGroup),
	}
}

// ExtractAll applies Extract to every sheet row.
func (r *ResolvedMapping) ExtractAll(rows []domain.SheetRow) []CandidateRecord {
	out := make([]CandidateRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.Extract(row.Number, row.Cells))
	}
	return out
}
