// Package affinity suggests unseen works credited to the directing and
// writing crew a viewer rates highly.
package affinity

import (
	"context"
	"fmt"
	"sort"

	"github.com/filmlore/nichecast/internal/catalog"
)

// HighRating is the minimum critical rating for a log to signal crew affinity.
const HighRating = 8

// TopCrewCount limits how many crew members seed the suggestion pool.
const TopCrewCount = 5

// DefaultLimit is the number of suggestions returned.
const DefaultLimit = 10

// Suggestion is one (asset, crew member) discovery row, ordered niche-first.
type Suggestion struct {
	AssetID        int64  `json:"asset_id"`
	Title          string `json:"title"`
	CrewMemberName string `json:"crew_member_name"`
}

// Explorer computes crew-based discovery suggestions.
type Explorer struct {
	store catalog.Store
}

// NewExplorer creates an affinity explorer.
func NewExplorer(store catalog.Store) *Explorer {
	return &Explorer{store: store}
}

// CrewSuggestions returns up to DefaultLimit unseen assets credited to the
// viewer's top-rated directing/writing crew, ordered ascending by the
// asset's popularity rank index (most niche first). A viewer with no
// qualifying high ratings yields an empty result.
func (e *Explorer) CrewSuggestions(ctx context.Context, targetID int64) ([]Suggestion, error) {
	logs, err := e.store.ViewingLogsByViewer(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("viewer logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, nil
	}

	seen := make(map[int64]bool, len(logs))
	highRatingsByAsset := make(map[int64][]int)
	for _, l := range logs {
		seen[l.AssetID] = true
		if l.CriticalRating >= HighRating {
			highRatingsByAsset[l.AssetID] = append(highRatingsByAsset[l.AssetID], l.CriticalRating)
		}
	}
	if len(highRatingsByAsset) == 0 {
		return nil, nil
	}

	highAssetIDs := make([]int64, 0, len(highRatingsByAsset))
	for id := range highRatingsByAsset {
		highAssetIDs = append(highAssetIDs, id)
	}
	credits, err := e.store.CreditsForAssets(ctx, highAssetIDs)
	if err != nil {
		return nil, fmt.Errorf("credits for rated assets: %w", err)
	}

	// Average the viewer's high ratings per credited crew member, restricted
	// to style-defining role categories. Join semantics: every (credit, log)
	// pair contributes one sample, matching the relational aggregation.
	type crewAgg struct {
		sum   int
		count int
	}
	byCrew := make(map[int64]*crewAgg)
	for _, c := range credits {
		if c.RoleCategory != catalog.RoleCategoryDirection &&
			c.RoleCategory != catalog.RoleCategoryWriting {
			continue
		}
		agg := byCrew[c.CrewID]
		if agg == nil {
			agg = &crewAgg{}
			byCrew[c.CrewID] = agg
		}
		for _, rating := range highRatingsByAsset[c.AssetID] {
			agg.sum += rating
			agg.count++
		}
	}
	if len(byCrew) == 0 {
		return nil, nil
	}

	type rankedCrew struct {
		crewID int64
		avg    float64
	}
	ranked := make([]rankedCrew, 0, len(byCrew))
	for crewID, agg := range byCrew {
		ranked = append(ranked, rankedCrew{
			crewID: crewID,
			avg:    float64(agg.sum) / float64(agg.count),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].avg != ranked[j].avg {
			return ranked[i].avg > ranked[j].avg
		}
		return ranked[i].crewID < ranked[j].crewID
	})
	if len(ranked) > TopCrewCount {
		ranked = ranked[:TopCrewCount]
	}

	topCrewIDs := make([]int64, len(ranked))
	for i, rc := range ranked {
		topCrewIDs[i] = rc.crewID
	}

	// Union all assets credited (any role) to the top crew, then drop
	// anything the viewer has already logged at any rating.
	crewCredits, err := e.store.CreditsForCrew(ctx, topCrewIDs)
	if err != nil {
		return nil, fmt.Errorf("credits for top crew: %w", err)
	}

	type pairKey struct {
		assetID int64
		crewID  int64
	}
	pairs := make(map[pairKey]string) // -> crew member name
	assetIDSet := make(map[int64]bool)
	for _, c := range crewCredits {
		if seen[c.AssetID] {
			continue
		}
		pairs[pairKey{assetID: c.AssetID, crewID: c.CrewID}] = c.CrewName
		assetIDSet[c.AssetID] = true
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	assetIDs := make([]int64, 0, len(assetIDSet))
	for id := range assetIDSet {
		assetIDs = append(assetIDs, id)
	}
	assets, err := e.store.MediaAssetsByIDs(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve suggested assets: %w", err)
	}

	type scoredSuggestion struct {
		Suggestion
		popularity int
	}
	suggestions := make([]scoredSuggestion, 0, len(pairs))
	for key, crewName := range pairs {
		asset, ok := assets[key.assetID]
		if !ok {
			return nil, fmt.Errorf("%w: credit references missing asset %d",
				catalog.ErrDataIntegrity, key.assetID)
		}
		suggestions = append(suggestions, scoredSuggestion{
			Suggestion: Suggestion{
				AssetID:        key.assetID,
				Title:          asset.Title,
				CrewMemberName: crewName,
			},
			popularity: asset.PopularityRankIndex,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].popularity != suggestions[j].popularity {
			return suggestions[i].popularity < suggestions[j].popularity
		}
		if suggestions[i].AssetID != suggestions[j].AssetID {
			return suggestions[i].AssetID < suggestions[j].AssetID
		}
		return suggestions[i].CrewMemberName < suggestions[j].CrewMemberName
	})
	if len(suggestions) > DefaultLimit {
		suggestions = suggestions[:DefaultLimit]
	}

	result := make([]Suggestion, len(suggestions))
	for i, s := range suggestions {
		result[i] = s.Suggestion
	}
	return result, nil
}
