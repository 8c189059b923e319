package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/filmlore/nichecast/internal/tracing"
)

// PostgresStore implements Store over the catalog application's PostgreSQL
// schema. All query methods run at the connection's default read-committed
// isolation; ScoringSnapshot upgrades to repeatable read so the bulk score
// recompute sees a stable view of viewers, logs, and assets.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// GetViewer returns the viewer or nil when the id is unknown.
func (s *PostgresStore) GetViewer(ctx context.Context, id int64) (*Viewer, error) {
	const query = `
		SELECT id, username, email, joined_at, active, niche_affinity_score
		FROM viewers WHERE id = $1
	`
	var v Viewer
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Username, &v.Email, &v.JoinedAt, &v.Active, &v.NicheAffinityScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get viewer %d: %w", id, err)
	}
	return &v, nil
}

// ListViewers returns all viewers.
func (s *PostgresStore) ListViewers(ctx context.Context) ([]Viewer, error) {
	const query = `
		SELECT id, username, email, joined_at, active, niche_affinity_score
		FROM viewers ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list viewers: %w", err)
	}
	defer rows.Close()
	return scanViewers(rows)
}

// MediaAssetsByIDs returns the assets for the given ids, keyed by id.
func (s *PostgresStore) MediaAssetsByIDs(ctx context.Context, ids []int64) (map[int64]MediaAsset, error) {
	result := make(map[int64]MediaAsset, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	const query = `
		SELECT id, title, release_year, media_type, runtime_minutes, budget_level, popularity_rank_index
		FROM media_assets WHERE id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("media assets by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a MediaAsset
		if err := rows.Scan(&a.ID, &a.Title, &a.ReleaseYear, &a.MediaType,
			&a.RuntimeMinutes, &a.BudgetLevel, &a.PopularityRankIndex); err != nil {
			return nil, fmt.Errorf("scan media asset: %w", err)
		}
		result[a.ID] = a
	}
	return result, rows.Err()
}

// ViewingLogsByViewer returns all viewing logs for one viewer.
func (s *PostgresStore) ViewingLogsByViewer(ctx context.Context, viewerID int64) ([]ViewingLog, error) {
	return s.viewingLogs(ctx, []int64{viewerID})
}

// ViewingLogsByViewers returns all viewing logs for a set of viewers.
func (s *PostgresStore) ViewingLogsByViewers(ctx context.Context, viewerIDs []int64) ([]ViewingLog, error) {
	if len(viewerIDs) == 0 {
		return nil, nil
	}
	return s.viewingLogs(ctx, viewerIDs)
}

func (s *PostgresStore) viewingLogs(ctx context.Context, viewerIDs []int64) ([]ViewingLog, error) {
	const query = `
		SELECT id, viewer_id, asset_id, logged_at, critical_rating, complexity_score, COALESCE(comments, '')
		FROM viewing_logs WHERE viewer_id = ANY($1) ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(viewerIDs))
	if err != nil {
		return nil, fmt.Errorf("viewing logs: %w", err)
	}
	defer rows.Close()
	return scanViewingLogs(rows)
}

// ValidationsByViewer returns all tag validations recorded by one viewer.
func (s *PostgresStore) ValidationsByViewer(ctx context.Context, viewerID int64) ([]TagValidation, error) {
	const query = `
		SELECT viewer_id, asset_id, tag_id, agreement_intensity, validated_at
		FROM viewer_tag_validations WHERE viewer_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("validations by viewer: %w", err)
	}
	defer rows.Close()
	return scanValidations(rows)
}

// ValidationsByTags returns all validations (any viewer) on the given tags.
func (s *PostgresStore) ValidationsByTags(ctx context.Context, tagIDs []int64) ([]TagValidation, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	const query = `
		SELECT viewer_id, asset_id, tag_id, agreement_intensity, validated_at
		FROM viewer_tag_validations WHERE tag_id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(tagIDs))
	if err != nil {
		return nil, fmt.Errorf("validations by tags: %w", err)
	}
	defer rows.Close()
	return scanValidations(rows)
}

// ExpertTagsByIDs returns the tags for the given ids, keyed by id.
func (s *PostgresStore) ExpertTagsByIDs(ctx context.Context, ids []int64) (map[int64]ExpertTag, error) {
	result := make(map[int64]ExpertTag, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	const query = `
		SELECT id, name, COALESCE(definition, '') FROM expert_tags WHERE id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("expert tags by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t ExpertTag
		if err := rows.Scan(&t.ID, &t.Name, &t.Definition); err != nil {
			return nil, fmt.Errorf("scan expert tag: %w", err)
		}
		result[t.ID] = t
	}
	return result, rows.Err()
}

// creditQuery resolves crew credits with the role category and crew name the
// consumers need. The filter column differs between the two call sites.
const creditQuery = `
	SELECT cc.crew_id, cc.asset_id, cc.role_id, cc.is_primary, cr.category, cm.full_name
	FROM crew_credits cc
	JOIN crew_roles cr ON cr.id = cc.role_id
	JOIN crew_members cm ON cm.id = cc.crew_id
	WHERE %s = ANY($1)
`

// CreditsForAssets returns resolved credits for the given assets.
func (s *PostgresStore) CreditsForAssets(ctx context.Context, assetIDs []int64) ([]Credit, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}
	return s.credits(ctx, fmt.Sprintf(creditQuery, "cc.asset_id"), assetIDs)
}

// CreditsForCrew returns resolved credits (any role) for the given crew.
func (s *PostgresStore) CreditsForCrew(ctx context.Context, crewIDs []int64) ([]Credit, error) {
	if len(crewIDs) == 0 {
		return nil, nil
	}
	return s.credits(ctx, fmt.Sprintf(creditQuery, "cc.crew_id"), crewIDs)
}

func (s *PostgresStore) credits(ctx context.Context, query string, ids []int64) ([]Credit, error) {
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("credits: %w", err)
	}
	defer rows.Close()

	var result []Credit
	for rows.Next() {
		var c Credit
		if err := rows.Scan(&c.CrewID, &c.AssetID, &c.RoleID, &c.IsPrimary,
			&c.RoleCategory, &c.CrewName); err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ScoringSnapshot reads viewers, viewing logs, and asset popularity inside a
// single repeatable-read transaction. A log inserted while the snapshot is
// being taken is either fully included or fully excluded.
func (s *PostgresStore) ScoringSnapshot(ctx context.Context) (snapOut *ScoringSnapshot, errOut error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "viewers", tracing.DBOperationQuery)
	defer func() { endSpan(errOut) }()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.logger.Warn("failed to rollback snapshot transaction",
				slog.String("error", err.Error()))
		}
	}()

	snap := &ScoringSnapshot{
		LogsByViewer:    make(map[int64][]ViewingLog),
		AssetPopularity: make(map[int64]int),
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, username, email, joined_at, active, niche_affinity_score
		FROM viewers ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot viewers: %w", err)
	}
	snap.Viewers, err = scanViewers(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT id, viewer_id, asset_id, logged_at, critical_rating, complexity_score, COALESCE(comments, '')
		FROM viewing_logs ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot viewing logs: %w", err)
	}
	logs, err := scanViewingLogs(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		snap.LogsByViewer[l.ViewerID] = append(snap.LogsByViewer[l.ViewerID], l)
	}

	rows, err = tx.QueryContext(ctx, `SELECT id, popularity_rank_index FROM media_assets`)
	if err != nil {
		return nil, fmt.Errorf("snapshot media assets: %w", err)
	}
	for rows.Next() {
		var id int64
		var rank int
		if err := rows.Scan(&id, &rank); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan asset popularity: %w", err)
		}
		snap.AssetPopularity[id] = rank
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return snap, nil
}

// SaveNicheScores applies all scores in one transaction so a failure leaves
// the store fully unchanged.
func (s *PostgresStore) SaveNicheScores(ctx context.Context, scores []ViewerScore) (errOut error) {
	if len(scores) == 0 {
		return nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "viewers", tracing.DBOperationUpdate)
	defer func() { endSpan(errOut) }()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin score transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.logger.Warn("failed to rollback score transaction",
				slog.String("error", err.Error()))
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE viewers SET niche_affinity_score = $2 WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("prepare score update: %w", err)
	}
	defer stmt.Close()

	for _, sc := range scores {
		if _, err := stmt.ExecContext(ctx, sc.ViewerID, sc.Score); err != nil {
			return fmt.Errorf("update score for viewer %d: %w", sc.ViewerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit score transaction: %w", err)
	}
	return nil
}

func scanViewers(rows *sql.Rows) ([]Viewer, error) {
	var result []Viewer
	for rows.Next() {
		var v Viewer
		if err := rows.Scan(&v.ID, &v.Username, &v.Email, &v.JoinedAt,
			&v.Active, &v.NicheAffinityScore); err != nil {
			return nil, fmt.Errorf("scan viewer: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func scanViewingLogs(rows *sql.Rows) ([]ViewingLog, error) {
	var result []ViewingLog
	for rows.Next() {
		var l ViewingLog
		if err := rows.Scan(&l.ID, &l.ViewerID, &l.AssetID, &l.LoggedAt,
			&l.CriticalRating, &l.ComplexityScore, &l.Comments); err != nil {
			return nil, fmt.Errorf("scan viewing log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanValidations(rows *sql.Rows) ([]TagValidation, error) {
	var result []TagValidation
	for rows.Next() {
		var v TagValidation
		if err := rows.Scan(&v.ViewerID, &v.AssetID, &v.TagID,
			&v.AgreementIntensity, &v.ValidatedAt); err != nil {
			return nil, fmt.Errorf("scan tag validation: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
