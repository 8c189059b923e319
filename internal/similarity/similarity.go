// Package similarity finds viewers who share strong structural-tag agreement
// with a target viewer.
package similarity

import (
	"context"
	"fmt"
	"sort"

	"github.com/filmlore/nichecast/internal/catalog"
)

// DefaultK is the default number of similar viewers returned.
const DefaultK = 5

// SimilarViewer is one ranked row of the similarity result.
type SimilarViewer struct {
	ViewerID           int64   `json:"viewer_id"`
	SharedTagCount     int     `json:"shared_tag_count"`
	AvgSharedIntensity float64 `json:"avg_shared_intensity"`
}

// Engine computes viewer similarity over strong tag validations.
type Engine struct {
	store catalog.Store
}

// NewEngine creates a similarity engine.
func NewEngine(store catalog.Store) *Engine {
	return &Engine{store: store}
}

// SimilarViewers returns the top k viewers who strongly validated tags the
// target viewer also strongly validated, ranked descending by
// (sharedTagCount, avgSharedIntensity). The target is never included in its
// own result. A target with no strong tags yields an empty result, not an
// error. k <= 0 selects DefaultK.
//
// AvgSharedIntensity is the mean over the candidate's strong validations of
// shared tags, not over the distinct tags: a viewer who validated the same
// shared tag on several assets contributes each validation to the average.
// Repeated agreement on a tag is treated as extra evidence of its intensity
// rather than collapsed into one sample.
func (e *Engine) SimilarViewers(ctx context.Context, targetID int64, k int) ([]SimilarViewer, error) {
	if k <= 0 {
		k = DefaultK
	}

	targetValidations, err := e.store.ValidationsByViewer(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("target validations: %w", err)
	}

	strongTags := make(map[int64]bool)
	for _, v := range targetValidations {
		if v.Strong() {
			strongTags[v.TagID] = true
		}
	}
	if len(strongTags) == 0 {
		return nil, nil
	}

	tagIDs := make([]int64, 0, len(strongTags))
	for id := range strongTags {
		tagIDs = append(tagIDs, id)
	}

	validations, err := e.store.ValidationsByTags(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("validations on shared tags: %w", err)
	}

	type accumulator struct {
		tags         map[int64]bool
		intensitySum int
		intensityN   int
	}
	byViewer := make(map[int64]*accumulator)
	for _, v := range validations {
		if v.ViewerID == targetID || !v.Strong() {
			continue
		}
		acc := byViewer[v.ViewerID]
		if acc == nil {
			acc = &accumulator{tags: make(map[int64]bool)}
			byViewer[v.ViewerID] = acc
		}
		acc.tags[v.TagID] = true
		acc.intensitySum += v.AgreementIntensity
		acc.intensityN++
	}

	result := make([]SimilarViewer, 0, len(byViewer))
	for viewerID, acc := range byViewer {
		result = append(result, SimilarViewer{
			ViewerID:           viewerID,
			SharedTagCount:     len(acc.tags),
			AvgSharedIntensity: float64(acc.intensitySum) / float64(acc.intensityN),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SharedTagCount != result[j].SharedTagCount {
			return result[i].SharedTagCount > result[j].SharedTagCount
		}
		if result[i].AvgSharedIntensity != result[j].AvgSharedIntensity {
			return result[i].AvgSharedIntensity > result[j].AvgSharedIntensity
		}
		// Stable order for equal scores
		return result[i].ViewerID < result[j].ViewerID
	})

	if len(result) > k {
		result = result[:k]
	}
	return result, nil
}
