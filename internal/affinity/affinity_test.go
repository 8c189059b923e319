package affinity

import (
	"context"
	"errors"
	"testing"

	"github.com/filmlore/nichecast/internal/catalog"
)

const (
	roleDirector = 1
	roleWriter   = 2
	roleActor    = 3
)

func addRoles(store *catalog.InMemoryStore) {
	store.AddCrewRole(catalog.CrewRole{ID: roleDirector, Name: "Director", Category: catalog.RoleCategoryDirection})
	store.AddCrewRole(catalog.CrewRole{ID: roleWriter, Name: "Writer", Category: catalog.RoleCategoryWriting})
	store.AddCrewRole(catalog.CrewRole{ID: roleActor, Name: "Lead Actor", Category: catalog.RoleCategoryActing})
}

func addLog(store *catalog.InMemoryStore, id, viewerID, assetID int64, rating int) {
	store.AddViewingLog(catalog.ViewingLog{
		ID:             id,
		ViewerID:       viewerID,
		AssetID:        assetID,
		CriticalRating: rating,
	})
}

// buildAffinityFixture sets up viewer 1 with:
//
//	asset 1 (rated 9, directed by crew 100, acted by crew 101)
//	asset 2 (rated 8, written by crew 100)
//	asset 3 (rated 5, directed by crew 102) - below the affinity threshold
//
// Crew 100 is also credited on unseen assets 4 (popularity 20) and
// 5 (popularity 10). Crew 102's other credit, asset 6, must never surface.
func buildAffinityFixture() *catalog.InMemoryStore {
	store := catalog.NewInMemoryStore()
	addRoles(store)

	store.AddCrewMember(catalog.CrewMember{ID: 100, FullName: "Vera Santos", PrimaryRole: "Director"})
	store.AddCrewMember(catalog.CrewMember{ID: 101, FullName: "Theo Marsh", PrimaryRole: "Actor"})
	store.AddCrewMember(catalog.CrewMember{ID: 102, FullName: "Ines Kroll", PrimaryRole: "Director"})

	store.AddMediaAsset(catalog.MediaAsset{ID: 1, Title: "Static Corridor", PopularityRankIndex: 40})
	store.AddMediaAsset(catalog.MediaAsset{ID: 2, Title: "Glass Delta", PopularityRankIndex: 55})
	store.AddMediaAsset(catalog.MediaAsset{ID: 3, Title: "Summer Reruns", PopularityRankIndex: 90})
	store.AddMediaAsset(catalog.MediaAsset{ID: 4, Title: "Hollow Signal", PopularityRankIndex: 20})
	store.AddMediaAsset(catalog.MediaAsset{ID: 5, Title: "Ash Meridian", PopularityRankIndex: 10})
	store.AddMediaAsset(catalog.MediaAsset{ID: 6, Title: "Harbor Lights", PopularityRankIndex: 70})

	store.AddCredit(100, 1, roleDirector, true)
	store.AddCredit(101, 1, roleActor, false)
	store.AddCredit(100, 2, roleWriter, true)
	store.AddCredit(102, 3, roleDirector, true)
	store.AddCredit(100, 4, roleDirector, true)
	store.AddCredit(100, 5, roleWriter, false)
	store.AddCredit(102, 6, roleDirector, true)

	addLog(store, 1, 1, 1, 9)
	addLog(store, 2, 1, 2, 8)
	addLog(store, 3, 1, 3, 5)
	return store
}

func TestCrewSuggestions_NicheFirstOrdering(t *testing.T) {
	explorer := NewExplorer(buildAffinityFixture())

	result, err := explorer.CrewSuggestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(result), result)
	}
	// Ascending popularity rank: asset 5 (10) before asset 4 (20).
	if result[0].AssetID != 5 || result[0].Title != "Ash Meridian" {
		t.Errorf("first suggestion: expected asset 5 'Ash Meridian', got %d %q",
			result[0].AssetID, result[0].Title)
	}
	if result[1].AssetID != 4 || result[1].Title != "Hollow Signal" {
		t.Errorf("second suggestion: expected asset 4 'Hollow Signal', got %d %q",
			result[1].AssetID, result[1].Title)
	}
	for _, s := range result {
		if s.CrewMemberName != "Vera Santos" {
			t.Errorf("expected crew name 'Vera Santos', got %q", s.CrewMemberName)
		}
	}
}

func TestCrewSuggestions_ExcludesSeenAssets(t *testing.T) {
	explorer := NewExplorer(buildAffinityFixture())

	result, err := explorer.CrewSuggestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range result {
		if s.AssetID == 1 || s.AssetID == 2 || s.AssetID == 3 {
			t.Errorf("seen asset %d surfaced as a suggestion", s.AssetID)
		}
	}
}

func TestCrewSuggestions_LowRatedCrewNotSeeded(t *testing.T) {
	explorer := NewExplorer(buildAffinityFixture())

	result, err := explorer.CrewSuggestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range result {
		if s.AssetID == 6 {
			t.Error("crew credited only on low-rated assets should not seed suggestions")
		}
	}
}

func TestCrewSuggestions_NoHighRatings(t *testing.T) {
	store := catalog.NewInMemoryStore()
	addRoles(store)
	store.AddMediaAsset(catalog.MediaAsset{ID: 1, Title: "Static Corridor"})
	addLog(store, 1, 1, 1, 6)

	explorer := NewExplorer(store)
	result, err := explorer.CrewSuggestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result without high ratings, got %+v", result)
	}
}

func TestCrewSuggestions_UnknownViewer(t *testing.T) {
	explorer := NewExplorer(buildAffinityFixture())

	result, err := explorer.CrewSuggestions(context.Background(), 999)
	if err != nil {
		t.Fatalf("unknown viewer should not error, got: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result for unknown viewer, got %+v", result)
	}
}

func TestCrewSuggestions_ActingCreditsIgnored(t *testing.T) {
	store := catalog.NewInMemoryStore()
	addRoles(store)
	store.AddCrewMember(catalog.CrewMember{ID: 101, FullName: "Theo Marsh"})
	store.AddMediaAsset(catalog.MediaAsset{ID: 1, Title: "Static Corridor"})
	store.AddMediaAsset(catalog.MediaAsset{ID: 2, Title: "Glass Delta"})
	store.AddCredit(101, 1, roleActor, true)
	store.AddCredit(101, 2, roleActor, true)
	addLog(store, 1, 1, 1, 10)

	explorer := NewExplorer(store)
	result, err := explorer.CrewSuggestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("acting-only crew should produce no suggestions, got %+v", result)
	}
}

func TestCrewSuggestions_MissingAsset(t *testing.T) {
	store := catalog.NewInMemoryStore()
	addRoles(store)
	store.AddCrewMember(catalog.CrewMember{ID: 100, FullName: "Vera Santos"})
	store.AddMediaAsset(catalog.MediaAsset{ID: 1, Title: "Static Corridor"})
	store.AddCredit(100, 1, roleDirector, true)
	store.AddCredit(100, 99, roleDirector, true) // asset 99 never added
	addLog(store, 1, 1, 1, 9)

	explorer := NewExplorer(store)
	_, err := explorer.CrewSuggestions(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error for credit referencing missing asset")
	}
	if !errors.Is(err, catalog.ErrDataIntegrity) {
		t.Errorf("expected ErrDataIntegrity, got %v", err)
	}
}
