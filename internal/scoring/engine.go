package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/filmlore/nichecast/internal/catalog"
	"github.com/filmlore/nichecast/internal/tracing"
)

// complexityDivisor normalizes the 1-5 complexity score into (0, 1].
const complexityDivisor = 5.0

// scoreScale doubles the averaged weighted value into the documented 0-20 range.
const scoreScale = 2.0

// Result summarizes one recompute pass.
type Result struct {
	ViewersScored  int // viewers whose score was recomputed (includes zero-log viewers)
	ZeroLogViewers int // viewers with no logs, assigned 0.00
}

// Engine recomputes every viewer's niche affinity score from their viewing
// history. A recompute is idempotent: re-running over unchanged inputs
// reproduces identical scores.
type Engine struct {
	store      catalog.Store
	multiplier Multiplier
	logger     *slog.Logger
}

// NewEngine creates a score engine. A nil multiplier selects RewardMainstream.
func NewEngine(store catalog.Store, multiplier Multiplier, logger *slog.Logger) *Engine {
	if multiplier == nil {
		multiplier = RewardMainstream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, multiplier: multiplier, logger: logger}
}

// Recalculate overwrites every viewer's niche affinity score.
//
// For each viewing log L of viewer v joined to its asset A:
//
//	weighted(L) = rating(L) * multiplier(popularityRankIndex(A)) * complexity(L)/5
//
// score(v) = average(weighted) * 2.0, rounded to 2 fractional digits.
// Viewers with no logs are assigned exactly 0.00. All intermediate
// arithmetic stays in float64; rounding happens once, at the end.
func (e *Engine) Recalculate(ctx context.Context) (result *Result, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "recompute_niche_scores")
	defer func() { endSpan(err) }()

	snap, err := e.store.ScoringSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read scoring snapshot: %w", err)
	}

	result = &Result{}
	scores := make([]catalog.ViewerScore, 0, len(snap.Viewers))
	for _, v := range snap.Viewers {
		score, err := e.viewerScore(snap, v.ID)
		if err != nil {
			return nil, err
		}
		if score == 0 {
			result.ZeroLogViewers++
		}
		scores = append(scores, catalog.ViewerScore{ViewerID: v.ID, Score: score})
	}

	if err := e.store.SaveNicheScores(ctx, scores); err != nil {
		return nil, fmt.Errorf("save niche scores: %w", err)
	}

	result.ViewersScored = len(scores)
	e.logger.Info("niche affinity scores recomputed",
		"viewers", result.ViewersScored,
		"zero_log_viewers", result.ZeroLogViewers,
	)
	return result, nil
}

// viewerScore computes one viewer's score from the snapshot.
func (e *Engine) viewerScore(snap *catalog.ScoringSnapshot, viewerID int64) (float64, error) {
	logs := snap.LogsByViewer[viewerID]
	if len(logs) == 0 {
		return 0, nil
	}

	var sum float64
	for _, l := range logs {
		rank, ok := snap.AssetPopularity[l.AssetID]
		if !ok {
			return 0, fmt.Errorf("%w: viewing log %d references missing asset %d",
				catalog.ErrDataIntegrity, l.ID, l.AssetID)
		}
		sum += float64(l.CriticalRating) * e.multiplier(rank) *
			(float64(l.ComplexityScore) / complexityDivisor)
	}

	avg := sum / float64(len(logs))
	return round2(avg * scoreScale), nil
}

// round2 rounds to 2 fractional digits, the stored precision of the score.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
