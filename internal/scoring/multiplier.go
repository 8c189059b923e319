// Package scoring computes and persists the per-viewer niche affinity score
// from viewing history.
package scoring

import (
	"fmt"
)

// Multiplier converts an asset's popularity rank index into the weighting
// factor applied to a single viewing log.
//
// The directionality of this factor changed across iterations of the catalog
// system: earlier formulations used (100 - index) / 100, rewarding low-index
// (niche) works, while the latest formulation uses index / 100, rewarding
// high-index works. Product has not confirmed which direction is intended,
// so both are kept as named, swappable strategies and the aggregation logic
// never hardcodes either.
type Multiplier func(popularityRankIndex int) float64

// Multiplier strategy names accepted in configuration.
const (
	MultiplierMainstream = "mainstream"
	MultiplierNiche      = "niche"
)

// RewardMainstream weights a log by index / 100, favoring high-popularity
// works. This matches the latest formulation in the catalog system.
func RewardMainstream(popularityRankIndex int) float64 {
	return float64(popularityRankIndex) / 100.0
}

// RewardNiche weights a log by (100 - index) / 100, favoring low-popularity
// works. This matches the documented intent of the niche affinity score
// ("rewards high ratings on niche media") and the earlier formulation.
func RewardNiche(popularityRankIndex int) float64 {
	return float64(100-popularityRankIndex) / 100.0
}

// MultiplierByName resolves a configured strategy name.
func MultiplierByName(name string) (Multiplier, error) {
	switch name {
	case MultiplierMainstream, "":
		return RewardMainstream, nil
	case MultiplierNiche:
		return RewardNiche, nil
	default:
		return nil, fmt.Errorf("unknown niche multiplier strategy: %q", name)
	}
}
