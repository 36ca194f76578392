package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"voter-outreach/internal/domain"
)

// MemoryStore implements every repository in memory. It backs DB_ENABLED=false
// dev runs and the service/handler tests. Nothing persists across restarts.
type MemoryStore struct {
	mu          sync.RWMutex
	voters      map[string]*domain.VoterRecord
	dedup       map[string]string // phone|pollingUnitCode -> voterID
	assignments []*domain.Assignment
	callLogs    []*domain.CallLog
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		voters: map[string]*domain.VoterRecord{},
		dedup:  map[string]string{},
		now:    time.Now,
	}
}

var (
	_ VotersRepository      = (*MemoryStore)(nil)
	_ AssignmentsRepository = (*MemoryStore)(nil)
	_ CallLogsRepository    = (*MemoryStore)(nil)
	_ TerritoriesRepository = (*MemoryStore)(nil)
)

func dedupKey(v *domain.VoterRecord) string {
	return v.PhoneNumber + "|" + v.PollingUnitCode
}

func paginate(total, page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	if page-1 > total/size {
		return total, total
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

// =============================================================================
// Voters
// =============================================================================

func (m *MemoryStore) InsertVoterBatch(_ context.Context, voters []*domain.VoterRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	var inserted int64
	for _, v := range voters {
		if v.VoterID == "" {
			return 0, fmt.Errorf("voter without id in batch")
		}
		k := dedupKey(v)
		if _, exists := m.dedup[k]; exists {
			continue
		}
		c := *v
		c.CreatedAt, c.UpdatedAt = now, now
		m.voters[c.VoterID] = &c
		m.dedup[k] = c.VoterID
		inserted++
	}
	return inserted, nil
}

func (m *MemoryStore) GetVoter(_ context.Context, voterID string) (*domain.VoterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.voters[voterID]
	if !ok {
		return nil, domain.ErrVoterNotFound
	}
	c := *v
	return &c, nil
}

func (m *MemoryStore) CountVotersInTerritory(_ context.Context, territoryKey string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, v := range m.voters {
		if v.TerritoryKey == territoryKey {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) PollingUnitCode(_ context.Context, territoryKey string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code := ""
	for _, v := range m.voters {
		if v.TerritoryKey == territoryKey && v.PollingUnitCode != "" && (code == "" || v.PollingUnitCode < code) {
			code = v.PollingUnitCode
		}
	}
	return code, nil
}

func (m *MemoryStore) ListVotersByTerritory(_ context.Context, territoryKey string, filter domain.VoterFilter, page, size int) ([]*domain.VoterRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*domain.VoterRecord, 0)
	for _, v := range m.voters {
		if v.TerritoryKey == territoryKey && filter.Matches(v) {
			c := *v
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return queueLess(all[i], all[j]) })

	start, end := paginate(len(all), page, size)
	return all[start:end], len(all), nil
}

// queueLess mirrors the SQL ORDER BY of the call queue.
func queueLess(a, b *domain.VoterRecord) bool {
	if a.CalledRecently != b.CalledRecently {
		return !a.CalledRecently
	}
	switch {
	case a.LastCalledAt != nil && b.LastCalledAt == nil:
		return true
	case a.LastCalledAt == nil && b.LastCalledAt != nil:
		return false
	case a.LastCalledAt != nil && !a.LastCalledAt.Equal(*b.LastCalledAt):
		return a.LastCalledAt.After(*b.LastCalledAt)
	}
	switch {
	case a.FullName != nil && b.FullName == nil:
		return true
	case a.FullName == nil && b.FullName != nil:
		return false
	case a.FullName != nil && *a.FullName != *b.FullName:
		return *a.FullName < *b.FullName
	}
	return a.VoterID < b.VoterID
}

// =============================================================================
// Assignments
// =============================================================================

func (m *MemoryStore) AssignExclusive(_ context.Context, a *domain.Assignment) ([]*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	displaced := make([]*domain.Assignment, 0, 2)
	for _, cur := range m.assignments {
		if !cur.IsActive || !holdsSameSlot(cur, a) {
			continue
		}
		at := a.AssignedAt
		cur.IsActive = false
		cur.DeactivatedAt = &at
		c := *cur
		displaced = append(displaced, &c)
	}

	a.IsActive = true
	c := *a
	m.assignments = append(m.assignments, &c)
	return displaced, nil
}

// holdsSameSlot same caller, same territory, or the same non-empty polling unit code.
func holdsSameSlot(cur, a *domain.Assignment) bool {
	return cur.UserID == a.UserID ||
		cur.TerritoryKey == a.TerritoryKey ||
		(a.PollingUnitCode != "" && cur.PollingUnitCode == a.PollingUnitCode)
}

func (m *MemoryStore) DeactivateByUser(_ context.Context, userID string, at time.Time) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.assignments {
		if cur.IsActive && cur.UserID == userID {
			cur.IsActive = false
			t := at
			cur.DeactivatedAt = &t
			c := *cur
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetActiveByUser(_ context.Context, userID string) (*domain.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cur := range m.assignments {
		if cur.IsActive && cur.UserID == userID {
			c := *cur
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListAssignments(_ context.Context, filter AssignmentsFilter, page, size int) ([]*domain.VolunteerSummary, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := map[string]bool{}
	for _, u := range filter.UserIDs {
		users[u] = true
	}

	all := make([]*domain.VolunteerSummary, 0)
	for _, a := range m.assignments {
		if !filter.IncludeInactive && !a.IsActive {
			continue
		}
		if len(users) > 0 && !users[a.UserID] {
			continue
		}
		if filter.State != "" && !strings.EqualFold(a.State, filter.State) {
			continue
		}
		if filter.LGA != "" && !strings.EqualFold(a.LGA, filter.LGA) {
			continue
		}
		s := &domain.VolunteerSummary{Assignment: *a}
		for _, v := range m.voters {
			if v.TerritoryKey != a.TerritoryKey {
				continue
			}
			s.VoterCount++
			if v.ConfirmedToVote != nil && *v.ConfirmedToVote {
				s.ConfirmedCount++
			}
		}
		for _, l := range m.callLogs {
			if l.VolunteerID != a.UserID {
				continue
			}
			if s.LastCallAt == nil || l.CallDate.After(*s.LastCallAt) {
				t := l.CallDate
				s.LastCallAt = &t
			}
			if l.CallDate.Before(a.AssignedAt) || (a.DeactivatedAt != nil && l.CallDate.After(*a.DeactivatedAt)) {
				continue
			}
			s.CallsMade++
		}
		all = append(all, s)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].AssignedAt.After(all[j].AssignedAt) })

	start, end := paginate(len(all), page, size)
	return all[start:end], len(all), nil
}

// =============================================================================
// Call logs
// =============================================================================

func (m *MemoryStore) RecordCall(_ context.Context, rec CallRecord) (*domain.VoterRecord, *domain.CallLog, error) {
	if !rec.Outcome.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidOutcome, rec.Outcome)
	}
	data, err := json.Marshal(rec.Update.Snapshot())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode collected data: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.voters[rec.VoterID]
	if !ok || v.TerritoryKey != rec.TerritoryKey {
		return nil, nil, domain.ErrUnauthorizedTerritory
	}

	u := rec.Update
	if u.ConfirmedToVote != nil {
		b := *u.ConfirmedToVote
		v.ConfirmedToVote = &b
	}
	setIf := func(dst **string, src *string) {
		if src != nil {
			s := *src
			*dst = &s
		}
	}
	setIf(&v.Notes, u.Notes)
	setIf(&v.Demands, u.Demands)
	setIf(&v.FullName, u.FullName)
	setIf(&v.EmailAddress, u.EmailAddress)
	setIf(&v.Gender, u.Gender)
	setIf(&v.AgeGroup, u.AgeGroup)
	at := rec.At
	v.CalledRecently = true
	v.LastCalledAt = &at
	v.CallCount++
	v.UpdatedAt = at

	log := &domain.CallLog{
		CallLogID:     rec.CallLogID,
		VoterID:       rec.VoterID,
		VolunteerID:   rec.VolunteerID,
		CallDate:      at,
		CallOutcome:   rec.Outcome,
		Notes:         u.Notes,
		DataCollected: data,
	}
	m.callLogs = append(m.callLogs, log)

	vc := *v
	lc := *log
	return &vc, &lc, nil
}

func (m *MemoryStore) ListCallLogs(_ context.Context, voterID string, limit int) ([]*domain.CallLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]*domain.CallLog, 0)
	for i := len(m.callLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.callLogs[i].VoterID == voterID {
			c := *m.callLogs[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// =============================================================================
// Territories
// =============================================================================

func (m *MemoryStore) activeHolder(territoryKey string) *string {
	for _, a := range m.assignments {
		if a.IsActive && a.TerritoryKey == territoryKey {
			u := a.UserID
			return &u
		}
	}
	return nil
}

func (m *MemoryStore) ListTerritories(_ context.Context, filter TerritoryFilter, page, size int) ([]*domain.TerritorySummary, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := map[string]bool{}
	for _, k := range filter.Keys {
		keys[k] = true
	}

	byKey := map[string]*domain.TerritorySummary{}
	for _, v := range m.voters {
		if filter.State != "" && !strings.EqualFold(v.State, domain.CollapseSpace(filter.State)) {
			continue
		}
		if filter.LGA != "" && !strings.EqualFold(v.LGA, domain.CollapseSpace(filter.LGA)) {
			continue
		}
		if filter.Ward != "" && !strings.EqualFold(v.Ward, domain.CollapseSpace(filter.Ward)) {
			continue
		}
		if len(keys) > 0 && !keys[v.TerritoryKey] {
			continue
		}
		t, ok := byKey[v.TerritoryKey]
		if !ok {
			t = &domain.TerritorySummary{Territory: v.Territory(), TerritoryKey: v.TerritoryKey}
			t.PollingUnitCode = ""
			byKey[v.TerritoryKey] = t
		}
		if v.PollingUnitCode != "" && (t.PollingUnitCode == "" || v.PollingUnitCode < t.PollingUnitCode) {
			t.PollingUnitCode = v.PollingUnitCode
		}
		t.VoterCount++
		if v.CalledRecently {
			t.CalledCount++
		}
		if v.ConfirmedToVote != nil && *v.ConfirmedToVote {
			t.ConfirmedCount++
		}
	}

	all := make([]*domain.TerritorySummary, 0, len(byKey))
	for k, t := range byKey {
		t.AssignedUserID = m.activeHolder(k)
		if filter.UnassignedOnly && t.AssignedUserID != nil {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.State != b.State {
			return a.State < b.State
		}
		if a.LGA != b.LGA {
			return a.LGA < b.LGA
		}
		if a.Ward != b.Ward {
			return a.Ward < b.Ward
		}
		if a.PollingUnit != b.PollingUnit {
			return a.PollingUnit < b.PollingUnit
		}
		return a.TerritoryKey < b.TerritoryKey
	})

	start, end := paginate(len(all), page, size)
	return all[start:end], len(all), nil
}

func (m *MemoryStore) ListStates(ctx context.Context) ([]domain.AreaCount, error) {
	return m.listAreas(func(v *domain.VoterRecord) (string, bool) { return v.State, true })
}

func (m *MemoryStore) ListLGAs(ctx context.Context, state string) ([]domain.AreaCount, error) {
	return m.listAreas(func(v *domain.VoterRecord) (string, bool) {
		return v.LGA, strings.EqualFold(v.State, domain.CollapseSpace(state))
	})
}

func (m *MemoryStore) ListWards(ctx context.Context, state, lga string) ([]domain.AreaCount, error) {
	return m.listAreas(func(v *domain.VoterRecord) (string, bool) {
		return v.Ward, strings.EqualFold(v.State, domain.CollapseSpace(state)) &&
			strings.EqualFold(v.LGA, domain.CollapseSpace(lga))
	})
}

func (m *MemoryStore) ListPollingUnits(ctx context.Context, state, lga, ward string) ([]domain.AreaCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKey := map[string]*domain.AreaCount{}
	for _, v := range m.voters {
		if !strings.EqualFold(v.State, domain.CollapseSpace(state)) ||
			!strings.EqualFold(v.LGA, domain.CollapseSpace(lga)) ||
			!strings.EqualFold(v.Ward, domain.CollapseSpace(ward)) {
			continue
		}
		a, ok := byKey[v.TerritoryKey]
		if !ok {
			a = &domain.AreaCount{Name: v.PollingUnit, TerritoryKey: v.TerritoryKey}
			byKey[v.TerritoryKey] = a
		}
		if v.PollingUnitCode != "" && (a.PollingUnitCode == "" || v.PollingUnitCode < a.PollingUnitCode) {
			a.PollingUnitCode = v.PollingUnitCode
		}
		a.VoterCount++
	}
	out := make([]domain.AreaCount, 0, len(byKey))
	for _, a := range byKey {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// listAreas groups case-insensitively on the value pick returns for matching voters.
func (m *MemoryStore) listAreas(pick func(v *domain.VoterRecord) (string, bool)) ([]domain.AreaCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byName := map[string]*domain.AreaCount{}
	for _, v := range m.voters {
		name, ok := pick(v)
		if !ok {
			continue
		}
		k := strings.ToLower(name)
		a, exists := byName[k]
		if !exists {
			a = &domain.AreaCount{Name: name}
			byName[k] = a
		}
		if name < a.Name {
			a.Name = name
		}
		a.VoterCount++
	}
	out := make([]domain.AreaCount, 0, len(byName))
	for _, a := range byName {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
