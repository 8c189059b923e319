package catalog

import (
	"context"
	"errors"
)

// ErrDataIntegrity is returned when stored data violates referential
// integrity, e.g. a viewing log pointing at a media asset that does not
// exist. The engine never attempts repair; callers must treat this as fatal.
var ErrDataIntegrity = errors.New("catalog: data integrity violation")

// ScoringSnapshot is a consistent view of everything the score recompute
// needs: all viewers, their viewing logs, and the popularity rank index per
// referenced asset. Implementations must guarantee that a log inserted while
// the snapshot is being taken is either fully included or fully excluded.
type ScoringSnapshot struct {
	Viewers         []Viewer
	LogsByViewer    map[int64][]ViewingLog
	AssetPopularity map[int64]int
}

// Store is the read surface over the catalog schema plus the single derived
// write the engine performs. Query methods return empty slices (not errors)
// for unknown viewers; only storage failures and integrity violations
// produce errors.
type Store interface {
	// GetViewer returns the viewer or nil when the id is unknown.
	GetViewer(ctx context.Context, id int64) (*Viewer, error)

	// ListViewers returns all viewers.
	ListViewers(ctx context.Context) ([]Viewer, error)

	// MediaAssetsByIDs returns the assets for the given ids, keyed by id.
	// Missing ids are simply absent from the map.
	MediaAssetsByIDs(ctx context.Context, ids []int64) (map[int64]MediaAsset, error)

	// ViewingLogsByViewer returns all viewing logs for one viewer.
	ViewingLogsByViewer(ctx context.Context, viewerID int64) ([]ViewingLog, error)

	// ViewingLogsByViewers returns all viewing logs for a set of viewers.
	ViewingLogsByViewers(ctx context.Context, viewerIDs []int64) ([]ViewingLog, error)

	// ValidationsByViewer returns all tag validations recorded by one viewer.
	ValidationsByViewer(ctx context.Context, viewerID int64) ([]TagValidation, error)

	// ValidationsByTags returns all validations (any viewer) on the given tags.
	ValidationsByTags(ctx context.Context, tagIDs []int64) ([]TagValidation, error)

	// ExpertTagsByIDs returns the tags for the given ids, keyed by id.
	ExpertTagsByIDs(ctx context.Context, ids []int64) (map[int64]ExpertTag, error)

	// CreditsForAssets returns resolved credits for the given assets.
	CreditsForAssets(ctx context.Context, assetIDs []int64) ([]Credit, error)

	// CreditsForCrew returns resolved credits (any role) for the given crew.
	CreditsForCrew(ctx context.Context, crewIDs []int64) ([]Credit, error)

	// ScoringSnapshot reads viewers, logs, and asset popularity in one
	// consistent view suitable for the bulk score recompute.
	ScoringSnapshot(ctx context.Context) (*ScoringSnapshot, error)

	// SaveNicheScores writes recomputed scores for all viewers atomically:
	// either every score is applied or none are.
	SaveNicheScores(ctx context.Context, scores []ViewerScore) error
}
