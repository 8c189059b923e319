// Package catalog provides the data model and store access layer for the
// niche-recommendation engine. The underlying schema is owned by the catalog
// application; this engine reads it and writes a single derived field,
// Viewer.NicheAffinityScore.
package catalog

import (
	"time"
)

// Crew role categories used to filter style-defining credits.
const (
	RoleCategoryDirection = "Direction"
	RoleCategoryWriting   = "Writing"
	RoleCategoryActing    = "Acting"
)

// StrongIntensity is the minimum agreement intensity for a tag validation
// to count as a strong validation.
const StrongIntensity = 4

// Viewer is a registered catalog user. NicheAffinityScore is the only field
// this engine ever writes; everything else is foreign-owned.
type Viewer struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	JoinedAt           time.Time `json:"joined_at"`
	Active             bool      `json:"active"`
	NicheAffinityScore float64   `json:"niche_affinity_score"`
}

// MediaAsset is a film or other catalogued work. Immutable for engine purposes.
// PopularityRankIndex is an integer where lower values mark more niche works
// in the documented intent; see scoring.Multiplier for the open directionality
// question.
type MediaAsset struct {
	ID                  int64  `json:"id"`
	Title               string `json:"title"`
	ReleaseYear         int    `json:"release_year"`
	MediaType           string `json:"media_type"`
	RuntimeMinutes      int    `json:"runtime_minutes"`
	BudgetLevel         string `json:"budget_level"`
	PopularityRankIndex int    `json:"popularity_rank_index"`
}

// CrewMember is a credited person (director, writer, actor, ...).
type CrewMember struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	PrimaryRole string `json:"primary_role"`
}

// CrewRole is a role definition with its conceptual category.
type CrewRole struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Credit is a denormalized crew credit row: the (crew, asset, role) join
// resolved with the role category and crew member name, which is the shape
// every consumer of credits actually needs.
type Credit struct {
	CrewID       int64  `json:"crew_id"`
	AssetID      int64  `json:"asset_id"`
	RoleID       int64  `json:"role_id"`
	IsPrimary    bool   `json:"is_primary"`
	RoleCategory string `json:"role_category"`
	CrewName     string `json:"crew_name"`
}

// ExpertTag is a structural/objective tag (not sentiment) applied by experts.
type ExpertTag struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// ViewingLog is one viewing entry. Append-only from the engine's perspective.
type ViewingLog struct {
	ID              int64     `json:"id"`
	ViewerID        int64     `json:"viewer_id"`
	AssetID         int64     `json:"asset_id"`
	LoggedAt        time.Time `json:"logged_at"`
	CriticalRating  int       `json:"critical_rating"`  // 1-10
	ComplexityScore int       `json:"complexity_score"` // 1-5
	Comments        string    `json:"comments"`
}

// TagValidation records a viewer's agreement that a tag applies to an asset.
// Keyed by (viewer, asset, tag).
type TagValidation struct {
	ViewerID           int64     `json:"viewer_id"`
	AssetID            int64     `json:"asset_id"`
	TagID              int64     `json:"tag_id"`
	AgreementIntensity int       `json:"agreement_intensity"` // 1-5
	ValidatedAt        time.Time `json:"validated_at"`
}

// ViewerScore pairs a viewer with a freshly computed niche affinity score.
type ViewerScore struct {
	ViewerID int64   `json:"viewer_id"`
	Score    float64 `json:"score"`
}

// Strong reports whether the validation counts as a strong agreement.
func (v TagValidation) Strong() bool {
	return v.AgreementIntensity >= StrongIntensity
}
