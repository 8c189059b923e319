package catalog

import (
	"context"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryStore struct {
	mu          sync.RWMutex
	viewers     map[int64]Viewer
	viewerOrder []int64
	assets      map[int64]MediaAsset
	crew        map[int64]CrewMember
	roles       map[int64]CrewRole
	credits     []Credit
	tags        map[int64]ExpertTag
	logs        []ViewingLog
	validations []TagValidation
}

// NewInMemoryStore creates a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		viewers: make(map[int64]Viewer),
		assets:  make(map[int64]MediaAsset),
		crew:    make(map[int64]CrewMember),
		roles:   make(map[int64]CrewRole),
		tags:    make(map[int64]ExpertTag),
	}
}

// AddViewer stores a viewer, replacing any existing entry with the same id.
func (s *InMemoryStore) AddViewer(v Viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.viewers[v.ID]; !exists {
		s.viewerOrder = append(s.viewerOrder, v.ID)
	}
	s.viewers[v.ID] = v
}

// AddMediaAsset stores a media asset.
func (s *InMemoryStore) AddMediaAsset(a MediaAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
}

// AddCrewMember stores a crew member.
func (s *InMemoryStore) AddCrewMember(c CrewMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crew[c.ID] = c
}

// AddCrewRole stores a crew role definition.
func (s *InMemoryStore) AddCrewRole(r CrewRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID] = r
}

// AddCredit stores a raw (crew, asset, role) credit. The role category and
// crew name are resolved at read time from the role and crew tables, matching
// what the SQL join produces.
func (s *InMemoryStore) AddCredit(crewID, assetID, roleID int64, isPrimary bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = append(s.credits, Credit{
		CrewID:    crewID,
		AssetID:   assetID,
		RoleID:    roleID,
		IsPrimary: isPrimary,
	})
}

// AddExpertTag stores an expert tag.
func (s *InMemoryStore) AddExpertTag(t ExpertTag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[t.ID] = t
}

// AddViewingLog appends a viewing log entry.
func (s *InMemoryStore) AddViewingLog(l ViewingLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
}

// AddValidation appends a tag validation.
func (s *InMemoryStore) AddValidation(v TagValidation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations = append(s.validations, v)
}

// GetViewer returns the viewer or nil when the id is unknown.
func (s *InMemoryStore) GetViewer(_ context.Context, id int64) (*Viewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.viewers[id]
	if !ok {
		return nil, nil
	}
	// Return a copy to avoid external modification
	viewerCopy := v
	return &viewerCopy, nil
}

// ListViewers returns all viewers in insertion order.
func (s *InMemoryStore) ListViewers(_ context.Context) ([]Viewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Viewer, 0, len(s.viewerOrder))
	for _, id := range s.viewerOrder {
		result = append(result, s.viewers[id])
	}
	return result, nil
}

// MediaAssetsByIDs returns the assets for the given ids, keyed by id.
func (s *InMemoryStore) MediaAssetsByIDs(_ context.Context, ids []int64) (map[int64]MediaAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[int64]MediaAsset, len(ids))
	for _, id := range ids {
		if a, ok := s.assets[id]; ok {
			result[id] = a
		}
	}
	return result, nil
}

// ViewingLogsByViewer returns all viewing logs for one viewer.
func (s *InMemoryStore) ViewingLogsByViewer(_ context.Context, viewerID int64) ([]ViewingLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ViewingLog
	for _, l := range s.logs {
		if l.ViewerID == viewerID {
			result = append(result, l)
		}
	}
	return result, nil
}

// ViewingLogsByViewers returns all viewing logs for a set of viewers.
func (s *InMemoryStore) ViewingLogsByViewers(_ context.Context, viewerIDs []int64) ([]ViewingLog, error) {
	wanted := make(map[int64]bool, len(viewerIDs))
	for _, id := range viewerIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ViewingLog
	for _, l := range s.logs {
		if wanted[l.ViewerID] {
			result = append(result, l)
		}
	}
	return result, nil
}

// ValidationsByViewer returns all tag validations recorded by one viewer.
func (s *InMemoryStore) ValidationsByViewer(_ context.Context, viewerID int64) ([]TagValidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []TagValidation
	for _, v := range s.validations {
		if v.ViewerID == viewerID {
			result = append(result, v)
		}
	}
	return result, nil
}

// ValidationsByTags returns all validations (any viewer) on the given tags.
func (s *InMemoryStore) ValidationsByTags(_ context.Context, tagIDs []int64) ([]TagValidation, error) {
	wanted := make(map[int64]bool, len(tagIDs))
	for _, id := range tagIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []TagValidation
	for _, v := range s.validations {
		if wanted[v.TagID] {
			result = append(result, v)
		}
	}
	return result, nil
}

// ExpertTagsByIDs returns the tags for the given ids, keyed by id.
func (s *InMemoryStore) ExpertTagsByIDs(_ context.Context, ids []int64) (map[int64]ExpertTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[int64]ExpertTag, len(ids))
	for _, id := range ids {
		if t, ok := s.tags[id]; ok {
			result[id] = t
		}
	}
	return result, nil
}

// CreditsForAssets returns resolved credits for the given assets.
func (s *InMemoryStore) CreditsForAssets(_ context.Context, assetIDs []int64) ([]Credit, error) {
	wanted := make(map[int64]bool, len(assetIDs))
	for _, id := range assetIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Credit
	for _, c := range s.credits {
		if wanted[c.AssetID] {
			result = append(result, s.resolveLocked(c))
		}
	}
	return result, nil
}

// CreditsForCrew returns resolved credits (any role) for the given crew.
func (s *InMemoryStore) CreditsForCrew(_ context.Context, crewIDs []int64) ([]Credit, error) {
	wanted := make(map[int64]bool, len(crewIDs))
	for _, id := range crewIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Credit
	for _, c := range s.credits {
		if wanted[c.CrewID] {
			result = append(result, s.resolveLocked(c))
		}
	}
	return result, nil
}

// resolveLocked fills the denormalized role category and crew name.
// Callers must hold at least a read lock.
func (s *InMemoryStore) resolveLocked(c Credit) Credit {
	if role, ok := s.roles[c.RoleID]; ok {
		c.RoleCategory = role.Category
	}
	if member, ok := s.crew[c.CrewID]; ok {
		c.CrewName = member.FullName
	}
	return c
}

// ScoringSnapshot reads viewers, logs, and asset popularity under one lock
// acquisition, so the view is consistent by construction.
func (s *InMemoryStore) ScoringSnapshot(_ context.Context) (*ScoringSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &ScoringSnapshot{
		Viewers:         make([]Viewer, 0, len(s.viewerOrder)),
		LogsByViewer:    make(map[int64][]ViewingLog),
		AssetPopularity: make(map[int64]int, len(s.assets)),
	}
	for _, id := range s.viewerOrder {
		snap.Viewers = append(snap.Viewers, s.viewers[id])
	}
	for _, l := range s.logs {
		snap.LogsByViewer[l.ViewerID] = append(snap.LogsByViewer[l.ViewerID], l)
	}
	for id, a := range s.assets {
		snap.AssetPopularity[id] = a.PopularityRankIndex
	}
	return snap, nil
}

// SaveNicheScores applies all scores under a single lock acquisition.
func (s *InMemoryStore) SaveNicheScores(_ context.Context, scores []ViewerScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scores {
		v, ok := s.viewers[sc.ViewerID]
		if !ok {
			continue
		}
		v.NicheAffinityScore = sc.Score
		s.viewers[sc.ViewerID] = v
	}
	return nil
}
