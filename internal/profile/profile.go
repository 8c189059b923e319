// Package profile synthesizes a qualitative niche profile name for a viewer
// from their high-rated viewing history and strong tag validations.
package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/filmlore/nichecast/internal/catalog"
)

// Structural axes a viewer's taste can be profiled on.
const (
	AxisTimeNarrative   = "Time & Narrative"
	AxisEthicsCharacter = "Ethics & Character"
	AxisFormStyle       = "Form & Style"
	AxisDensityPacing   = "Density & Pacing"
)

// Aggregation thresholds.
const (
	highRating         = 8   // minimum critical rating for a log to shape the profile
	dominantCrewCount  = 3   // credits needed for a director to dominate the profile
	longFormRuntime    = 115 // average runtime (minutes) marking a long-form preference
	highComplexityMean = 4.0 // average complexity marking a high-complexity preference
	outlierComplexity  = 2   // complexity at or below this marks an outlier log
	outlierRuntime     = 100 // runtime below this marks an outlier log
)

// profileNames maps each axis to its name pool: the conceptually denser name
// first, picked when the complexity level is high.
var profileNames = map[string][2]string{
	AxisTimeNarrative:   {"The Chronological Conspirator", "The Non-Linear Auteur"},
	AxisEthicsCharacter: {"The Post-Modern Moralist", "The Ambiguous Code Theorist"},
	AxisFormStyle:       {"The Stylized Minimalist", "The Hyper-Visual Formalist"},
	AxisDensityPacing:   {"The High-Density Synthesizer", "The Measured Pacing Purist"},
}

// Profile is the synthesized result. When Available is false the viewer has
// not logged enough high-rated media and only Summary carries guidance.
type Profile struct {
	Name          string `json:"name"`
	Summary       string `json:"summary"`
	OutlierReport string `json:"outlier_report,omitempty"`
	Available     bool   `json:"available"`
}

// Classifier maps an expert tag onto a structural axis.
type Classifier func(tag catalog.ExpertTag) string

// Generator synthesizes niche profiles.
type Generator struct {
	store    catalog.Store
	classify Classifier
}

// NewGenerator creates a profile generator. A nil classifier selects the
// keyword-based DefaultClassifier.
func NewGenerator(store catalog.Store, classify Classifier) *Generator {
	if classify == nil {
		classify = DefaultClassifier
	}
	return &Generator{store: store, classify: classify}
}

// DefaultClassifier assigns an axis from keywords in the tag name. Tags that
// match nothing fall back to the character/ethics axis, the broadest one.
func DefaultClassifier(tag catalog.ExpertTag) string {
	name := strings.ToLower(tag.Name)
	switch {
	case containsAny(name, "timeline", "linear", "chronolog", "flashback", "time"):
		return AxisTimeNarrative
	case containsAny(name, "minimalist", "visual", "formal", "style", "composition"):
		return AxisFormStyle
	case containsAny(name, "density", "pacing", "dialogue", "conceptual"):
		return AxisDensityPacing
	default:
		return AxisEthicsCharacter
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Generate runs the four profiling steps: aggregate high-rated logs, find
// crossover patterns, synthesize the name, and interpret outliers.
func (g *Generator) Generate(ctx context.Context, targetID int64) (*Profile, error) {
	logs, err := g.store.ViewingLogsByViewer(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("viewer logs: %w", err)
	}

	var highRated []catalog.ViewingLog
	for _, l := range logs {
		if l.CriticalRating >= highRating {
			highRated = append(highRated, l)
		}
	}
	if len(highRated) == 0 {
		return &Profile{
			Name:      "Profile Not Available",
			Summary:   "Log at least 3 films rated 8 or higher to generate your structural profile.",
			Available: false,
		}, nil
	}

	assetIDs := make([]int64, 0, len(highRated))
	idSet := make(map[int64]bool)
	for _, l := range highRated {
		if !idSet[l.AssetID] {
			idSet[l.AssetID] = true
			assetIDs = append(assetIDs, l.AssetID)
		}
	}
	assets, err := g.store.MediaAssetsByIDs(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve high-rated assets: %w", err)
	}

	dominantAxis, err := g.dominantAxis(ctx, targetID)
	if err != nil {
		return nil, err
	}
	dominantCrew, err := g.dominantCrew(ctx, assetIDs)
	if err != nil {
		return nil, err
	}

	var runtimeSum, complexitySum int
	for _, l := range highRated {
		asset, ok := assets[l.AssetID]
		if !ok {
			return nil, fmt.Errorf("%w: viewing log %d references missing asset %d",
				catalog.ErrDataIntegrity, l.ID, l.AssetID)
		}
		runtimeSum += asset.RuntimeMinutes
		complexitySum += l.ComplexityScore
	}
	avgRuntime := float64(runtimeSum) / float64(len(highRated))
	avgComplexity := float64(complexitySum) / float64(len(highRated))

	pacing := "Standard Pacing"
	if avgRuntime >= longFormRuntime {
		pacing = "Long-Form"
	}
	complexityLevel := "Medium"
	if avgComplexity >= highComplexityMean {
		complexityLevel = "High"
	}

	names := profileNames[dominantAxis]
	name := names[1]
	if complexityLevel == "High" {
		name = names[0]
	}

	summary := fmt.Sprintf(
		"Your core niche is the %s axis. You consistently validate tags related to "+
			"complex structure (%s complexity) and show a preference for films in the "+
			"%s runtime range.", dominantAxis, complexityLevel, pacing)
	if dominantCrew != "" {
		summary += fmt.Sprintf(" You have a significant affinity for the style of %s.", dominantCrew)
	}

	return &Profile{
		Name:          name,
		Summary:       summary,
		OutlierReport: g.outlierReport(highRated, assets, name),
		Available:     true,
	}, nil
}

// dominantAxis classifies the viewer's strong validations and returns the
// most frequent axis. Viewers with no strong validations profile onto the
// default axis.
func (g *Generator) dominantAxis(ctx context.Context, targetID int64) (string, error) {
	validations, err := g.store.ValidationsByViewer(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("viewer validations: %w", err)
	}

	tagIDSet := make(map[int64]bool)
	var tagIDs []int64
	var strong []catalog.TagValidation
	for _, v := range validations {
		if !v.Strong() {
			continue
		}
		strong = append(strong, v)
		if !tagIDSet[v.TagID] {
			tagIDSet[v.TagID] = true
			tagIDs = append(tagIDs, v.TagID)
		}
	}
	if len(strong) == 0 {
		return AxisEthicsCharacter, nil
	}

	tags, err := g.store.ExpertTagsByIDs(ctx, tagIDs)
	if err != nil {
		return "", fmt.Errorf("resolve validated tags: %w", err)
	}

	counts := make(map[string]int)
	for _, v := range strong {
		tag, ok := tags[v.TagID]
		if !ok {
			return "", fmt.Errorf("%w: validation references missing tag %d",
				catalog.ErrDataIntegrity, v.TagID)
		}
		counts[g.classify(tag)]++
	}

	axes := make([]string, 0, len(counts))
	for axis := range counts {
		axes = append(axes, axis)
	}
	sort.Slice(axes, func(i, j int) bool {
		if counts[axes[i]] != counts[axes[j]] {
			return counts[axes[i]] > counts[axes[j]]
		}
		return axes[i] < axes[j]
	})
	return axes[0], nil
}

// dominantCrew returns the name of a director credited on at least
// dominantCrewCount of the viewer's high-rated assets, or "" when none is.
func (g *Generator) dominantCrew(ctx context.Context, highAssetIDs []int64) (string, error) {
	credits, err := g.store.CreditsForAssets(ctx, highAssetIDs)
	if err != nil {
		return "", fmt.Errorf("credits for high-rated assets: %w", err)
	}

	counts := make(map[int64]int)
	names := make(map[int64]string)
	for _, c := range credits {
		if c.RoleCategory != catalog.RoleCategoryDirection {
			continue
		}
		counts[c.CrewID]++
		names[c.CrewID] = c.CrewName
	}

	var bestID int64
	bestCount := 0
	for crewID, n := range counts {
		if n > bestCount || (n == bestCount && crewID < bestID) {
			bestID, bestCount = crewID, n
		}
	}
	if bestCount < dominantCrewCount {
		return "", nil
	}
	return names[bestID], nil
}

// outlierReport names high-rated logs that fall outside the structural
// profile: simple form (low complexity) or short runtime.
func (g *Generator) outlierReport(highRated []catalog.ViewingLog,
	assets map[int64]catalog.MediaAsset, profileName string) string {

	var outliers []string
	for _, l := range highRated {
		asset := assets[l.AssetID]
		if l.ComplexityScore <= outlierComplexity || asset.RuntimeMinutes < outlierRuntime {
			outliers = append(outliers, fmt.Sprintf("%s (rated %d)", asset.Title, l.CriticalRating))
		}
	}
	if len(outliers) == 0 {
		return "Your viewing habits are highly consistent with your niche profile."
	}

	examples := outliers
	if len(examples) > 2 {
		examples = examples[:2]
	}
	return fmt.Sprintf(
		"While you are profiled as %q, you show flexibility. You highly rated %d media "+
			"assets (%s, ...) that fall outside your structural profile, suggesting a "+
			"tolerance for quality even when the form is simple.",
		profileName, len(outliers), strings.Join(examples, ", "))
}
