package catalog

import (
	"context"
	"testing"
)

func TestInMemoryStore_GetViewer(t *testing.T) {
	store := NewInMemoryStore()
	store.AddViewer(Viewer{ID: 1, Username: "ana"})

	v, err := store.GetViewer(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil || v.Username != "ana" {
		t.Errorf("expected viewer ana, got %+v", v)
	}

	// Unknown id is nil, not an error.
	v, err = store.GetViewer(context.Background(), 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil for unknown viewer, got %+v", v)
	}
}

func TestInMemoryStore_ListViewersInsertionOrder(t *testing.T) {
	store := NewInMemoryStore()
	store.AddViewer(Viewer{ID: 3})
	store.AddViewer(Viewer{ID: 1})
	store.AddViewer(Viewer{ID: 2})
	store.AddViewer(Viewer{ID: 1, Username: "replaced"}) // replace, no reorder

	viewers, err := store.ListViewers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []int64{3, 1, 2}
	if len(viewers) != len(wantIDs) {
		t.Fatalf("expected %d viewers, got %d", len(wantIDs), len(viewers))
	}
	for i, want := range wantIDs {
		if viewers[i].ID != want {
			t.Errorf("position %d: expected viewer %d, got %d", i, want, viewers[i].ID)
		}
	}
	if viewers[1].Username != "replaced" {
		t.Errorf("re-added viewer should be replaced, got %q", viewers[1].Username)
	}
}

func TestInMemoryStore_CreditResolution(t *testing.T) {
	store := NewInMemoryStore()
	store.AddCrewRole(CrewRole{ID: 1, Name: "Director", Category: RoleCategoryDirection})
	store.AddCrewMember(CrewMember{ID: 100, FullName: "Vera Santos"})
	store.AddCredit(100, 1, 1, true)

	credits, err := store.CreditsForAssets(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(credits) != 1 {
		t.Fatalf("expected 1 credit, got %d", len(credits))
	}
	c := credits[0]
	if c.RoleCategory != RoleCategoryDirection {
		t.Errorf("expected resolved role category, got %q", c.RoleCategory)
	}
	if c.CrewName != "Vera Santos" {
		t.Errorf("expected resolved crew name, got %q", c.CrewName)
	}

	byCrew, err := store.CreditsForCrew(context.Background(), []int64{100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byCrew) != 1 || byCrew[0].AssetID != 1 {
		t.Errorf("expected the same credit by crew, got %+v", byCrew)
	}
}

func TestInMemoryStore_ValidationQueries(t *testing.T) {
	store := NewInMemoryStore()
	store.AddValidation(TagValidation{ViewerID: 1, AssetID: 10, TagID: 5, AgreementIntensity: 5})
	store.AddValidation(TagValidation{ViewerID: 2, AssetID: 10, TagID: 5, AgreementIntensity: 3})
	store.AddValidation(TagValidation{ViewerID: 1, AssetID: 11, TagID: 6, AgreementIntensity: 4})

	byViewer, err := store.ValidationsByViewer(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byViewer) != 2 {
		t.Errorf("expected 2 validations for viewer 1, got %d", len(byViewer))
	}

	byTag, err := store.ValidationsByTags(context.Background(), []int64{5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byTag) != 2 {
		t.Errorf("expected 2 validations on tag 5, got %d", len(byTag))
	}
}

func TestInMemoryStore_ScoringSnapshot(t *testing.T) {
	store := NewInMemoryStore()
	store.AddViewer(Viewer{ID: 1})
	store.AddViewer(Viewer{ID: 2})
	store.AddMediaAsset(MediaAsset{ID: 10, PopularityRankIndex: 42})
	store.AddViewingLog(ViewingLog{ID: 1, ViewerID: 1, AssetID: 10, CriticalRating: 8, ComplexityScore: 4})

	snap, err := store.ScoringSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Viewers) != 2 {
		t.Errorf("expected 2 viewers in snapshot, got %d", len(snap.Viewers))
	}
	if len(snap.LogsByViewer[1]) != 1 {
		t.Errorf("expected 1 log for viewer 1, got %d", len(snap.LogsByViewer[1]))
	}
	if snap.AssetPopularity[10] != 42 {
		t.Errorf("expected popularity 42, got %d", snap.AssetPopularity[10])
	}

	// Writes after the snapshot must not leak into it.
	store.AddViewingLog(ViewingLog{ID: 2, ViewerID: 1, AssetID: 10, CriticalRating: 5, ComplexityScore: 1})
	if len(snap.LogsByViewer[1]) != 1 {
		t.Error("snapshot changed after a later write")
	}
}

func TestInMemoryStore_SaveNicheScores(t *testing.T) {
	store := NewInMemoryStore()
	store.AddViewer(Viewer{ID: 1})

	err := store.SaveNicheScores(context.Background(), []ViewerScore{
		{ViewerID: 1, Score: 4.32},
		{ViewerID: 999, Score: 1.0}, // unknown viewers are skipped
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := store.GetViewer(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.NicheAffinityScore != 4.32 {
		t.Errorf("expected score 4.32, got %f", v.NicheAffinityScore)
	}
}

func TestTagValidationStrong(t *testing.T) {
	tests := []struct {
		intensity int
		want      bool
	}{
		{1, false},
		{3, false},
		{4, true},
		{5, true},
	}
	for _, tt := range tests {
		v := TagValidation{AgreementIntensity: tt.intensity}
		if v.Strong() != tt.want {
			t.Errorf("Strong() at intensity %d = %v, want %v", tt.intensity, v.Strong(), tt.want)
		}
	}
}
