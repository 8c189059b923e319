// Package bias extracts a viewer's structural taste profile: the expert tags
// they most strongly and most often agree with.
package bias

import (
	"context"
	"fmt"
	"sort"

	"github.com/filmlore/nichecast/internal/catalog"
)

// DefaultK is the default number of bias rows returned.
const DefaultK = 5

// TagBias is one ranked row of a viewer's structural bias profile.
type TagBias struct {
	TagID           int64   `json:"tag_id"`
	TagName         string  `json:"tag_name"`
	AvgIntensity    float64 `json:"avg_intensity"`
	ValidationCount int     `json:"validation_count"`
}

// Profiler computes structural bias profiles from strong tag validations.
type Profiler struct {
	store catalog.Store
}

// NewProfiler creates a bias profiler.
func NewProfiler(store catalog.Store) *Profiler {
	return &Profiler{store: store}
}

// StructuralBias returns the target viewer's top k strongly-validated tags,
// ranked descending by (avgIntensity, validationCount). A viewer with no
// strong validations yields an empty result, not an error. k <= 0 selects
// DefaultK.
func (p *Profiler) StructuralBias(ctx context.Context, targetID int64, k int) ([]TagBias, error) {
	if k <= 0 {
		k = DefaultK
	}

	validations, err := p.store.ValidationsByViewer(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("viewer validations: %w", err)
	}

	type accumulator struct {
		sum   int
		count int
	}
	byTag := make(map[int64]*accumulator)
	for _, v := range validations {
		if !v.Strong() {
			continue
		}
		acc := byTag[v.TagID]
		if acc == nil {
			acc = &accumulator{}
			byTag[v.TagID] = acc
		}
		acc.sum += v.AgreementIntensity
		acc.count++
	}
	if len(byTag) == 0 {
		return nil, nil
	}

	tagIDs := make([]int64, 0, len(byTag))
	for id := range byTag {
		tagIDs = append(tagIDs, id)
	}
	tags, err := p.store.ExpertTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve tag names: %w", err)
	}

	result := make([]TagBias, 0, len(byTag))
	for tagID, acc := range byTag {
		tag, ok := tags[tagID]
		if !ok {
			return nil, fmt.Errorf("%w: validation references missing tag %d",
				catalog.ErrDataIntegrity, tagID)
		}
		result = append(result, TagBias{
			TagID:           tagID,
			TagName:         tag.Name,
			AvgIntensity:    float64(acc.sum) / float64(acc.count),
			ValidationCount: acc.count,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AvgIntensity != result[j].AvgIntensity {
			return result[i].AvgIntensity > result[j].AvgIntensity
		}
		if result[i].ValidationCount != result[j].ValidationCount {
			return result[i].ValidationCount > result[j].ValidationCount
		}
		return result[i].TagID < result[j].TagID
	})

	if len(result) > k {
		result = result[:k]
	}
	return result, nil
}
