package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/filmlore/nichecast/internal/bias"
	"github.com/filmlore/nichecast/internal/catalog"
	"github.com/filmlore/nichecast/internal/similarity"
)

// MinCollaborativeRating is the minimum critical rating for a similar
// viewer's log to contribute to the collaborative signal.
const MinCollaborativeRating = 7

// DefaultLimit is the number of recommendations returned.
const DefaultLimit = 20

// Recommendation is one ranked row of the blended recommendation list.
// RelatabilityScore is normalized so the best candidate scores 100.
type Recommendation struct {
	AssetID           int64   `json:"asset_id"`
	Title             string  `json:"title"`
	RelatabilityScore float64 `json:"relatability_score"`
}

// Blender composes the similarity and bias engines into the final
// personalized recommendation list. The two sub-results stay independently
// computable and testable; the blender only combines them.
type Blender struct {
	store   catalog.Store
	similar *similarity.Engine
	bias    *bias.Profiler
	weights *BlendWeights
	logger  *slog.Logger
}

// NewBlender creates a recommendation blender. Nil weights select defaults.
func NewBlender(store catalog.Store, similar *similarity.Engine, profiler *bias.Profiler,
	weights *BlendWeights, logger *slog.Logger) *Blender {
	if weights == nil {
		weights = DefaultBlendWeights()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Blender{
		store:   store,
		similar: similar,
		bias:    profiler,
		weights: weights,
		logger:  logger,
	}
}

// NicheRecommendations returns up to DefaultLimit unseen assets ranked by the
// blended score, with relatability normalized to [0, 100]. An empty candidate
// set yields an empty result, not an error.
func (b *Blender) NicheRecommendations(ctx context.Context, targetID int64) ([]Recommendation, error) {
	targetLogs, err := b.store.ViewingLogsByViewer(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("target logs: %w", err)
	}
	seen := make(map[int64]bool, len(targetLogs))
	for _, l := range targetLogs {
		seen[l.AssetID] = true
	}

	collaborative, err := b.collaborativeScores(ctx, targetID)
	if err != nil {
		return nil, err
	}
	content, err := b.contentScores(ctx, targetID)
	if err != nil {
		return nil, err
	}

	// A candidate needs at least one contributing source; an asset absent
	// from both signals is never a candidate.
	final := make(map[int64]float64)
	for assetID, score := range collaborative {
		if !seen[assetID] {
			final[assetID] = b.weights.Collaborative * score
		}
	}
	for assetID, score := range content {
		if seen[assetID] {
			continue
		}
		final[assetID] += b.weights.Content * score
	}
	if len(final) == 0 {
		return nil, nil
	}

	var maxFinal float64
	for _, score := range final {
		if score > maxFinal {
			maxFinal = score
		}
	}
	// Normalization guard: without a positive maximum there is nothing to
	// recommend against.
	if maxFinal <= 0 {
		return nil, nil
	}

	assetIDs := make([]int64, 0, len(final))
	for id := range final {
		assetIDs = append(assetIDs, id)
	}
	assets, err := b.store.MediaAssetsByIDs(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve candidate assets: %w", err)
	}

	type candidate struct {
		assetID    int64
		title      string
		final      float64
		popularity int
	}
	candidates := make([]candidate, 0, len(final))
	for assetID, score := range final {
		asset, ok := assets[assetID]
		if !ok {
			return nil, fmt.Errorf("%w: candidate references missing asset %d",
				catalog.ErrDataIntegrity, assetID)
		}
		candidates = append(candidates, candidate{
			assetID:    assetID,
			title:      asset.Title,
			final:      score,
			popularity: asset.PopularityRankIndex,
		})
	}

	// Rank by blended score, breaking ties niche-first.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].final != candidates[j].final {
			return candidates[i].final > candidates[j].final
		}
		if candidates[i].popularity != candidates[j].popularity {
			return candidates[i].popularity < candidates[j].popularity
		}
		return candidates[i].assetID < candidates[j].assetID
	})
	if len(candidates) > DefaultLimit {
		candidates = candidates[:DefaultLimit]
	}

	result := make([]Recommendation, len(candidates))
	for i, c := range candidates {
		result[i] = Recommendation{
			AssetID:           c.assetID,
			Title:             c.title,
			RelatabilityScore: c.final / maxFinal * 100,
		}
	}
	return result, nil
}

// collaborativeScores averages rating * sharedTagCount across the qualifying
// logs of the target's similar viewers, grouped by asset.
func (b *Blender) collaborativeScores(ctx context.Context, targetID int64) (map[int64]float64, error) {
	similar, err := b.similar.SimilarViewers(ctx, targetID, similarity.DefaultK)
	if err != nil {
		return nil, fmt.Errorf("similar viewers: %w", err)
	}
	if len(similar) == 0 {
		return nil, nil
	}

	sharedCount := make(map[int64]int, len(similar))
	viewerIDs := make([]int64, 0, len(similar))
	for _, s := range similar {
		sharedCount[s.ViewerID] = s.SharedTagCount
		viewerIDs = append(viewerIDs, s.ViewerID)
	}

	logs, err := b.store.ViewingLogsByViewers(ctx, viewerIDs)
	if err != nil {
		return nil, fmt.Errorf("similar viewer logs: %w", err)
	}

	type accumulator struct {
		sum float64
		n   int
	}
	byAsset := make(map[int64]*accumulator)
	for _, l := range logs {
		if l.CriticalRating < MinCollaborativeRating {
			continue
		}
		acc := byAsset[l.AssetID]
		if acc == nil {
			acc = &accumulator{}
			byAsset[l.AssetID] = acc
		}
		acc.sum += float64(l.CriticalRating) * float64(sharedCount[l.ViewerID])
		acc.n++
	}

	scores := make(map[int64]float64, len(byAsset))
	for assetID, acc := range byAsset {
		scores[assetID] = acc.sum / float64(acc.n)
	}
	return scores, nil
}

// contentScores sums the target viewer's own agreement intensities on assets
// validated with the viewer's structural-bias tags, grouped by asset.
func (b *Blender) contentScores(ctx context.Context, targetID int64) (map[int64]float64, error) {
	profile, err := b.bias.StructuralBias(ctx, targetID, bias.DefaultK)
	if err != nil {
		return nil, fmt.Errorf("structural bias: %w", err)
	}
	if len(profile) == 0 {
		return nil, nil
	}

	biasTags := make(map[int64]bool, len(profile))
	for _, t := range profile {
		biasTags[t.TagID] = true
	}

	validations, err := b.store.ValidationsByViewer(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("target validations: %w", err)
	}

	scores := make(map[int64]float64)
	for _, v := range validations {
		if biasTags[v.TagID] {
			scores[v.AssetID] += float64(v.AgreementIntensity)
		}
	}
	return scores, nil
}
