package rulebook

import (
	"path/filepath"
	"testing"

	"github.com/orion-content/orion/internal/database"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestCurrentOnEmptyHistoryReturnsDefaults(t *testing.T) {
	store := openTestStore(t)

	cur, err := store.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Version != 0 {
		t.Errorf("expected version 0, got %d", cur.Version)
	}
	if cur.Rules.Enforcement.DefaultMinQualityScore != 80 {
		t.Errorf("expected default threshold 80, got %d", cur.Rules.Enforcement.DefaultMinQualityScore)
	}
	if cur.Rules.SEO.TitleLength != (Range{Min: 40, Max: 60}) {
		t.Errorf("unexpected default title range: %+v", cur.Rules.SEO.TitleLength)
	}
}

func TestAppendAndCurrent(t *testing.T) {
	store := openTestStore(t)

	rules := DefaultRules()
	rules.SEO.InternalLinksMin = 4

	sources := []Source{{URL: "https://developers.google.com/search/blog", Relevance: "high"}}
	meta := map[string]any{"update_method": "conservative_merge", "conservative_mode": true}

	n, err := store.Append(rules, sources, "seo.internal_links_min: 2 -> 4", meta)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 1 {
		t.Errorf("expected version 1, got %d", n)
	}

	cur, err := store.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Version != 1 {
		t.Errorf("expected current version 1, got %d", cur.Version)
	}
	if cur.Rules.SEO.InternalLinksMin != 4 {
		t.Errorf("expected internal_links_min 4, got %d", cur.Rules.SEO.InternalLinksMin)
	}
	if len(cur.Sources) != 1 || cur.Sources[0].Relevance != "high" {
		t.Errorf("unexpected sources: %+v", cur.Sources)
	}
	if cur.Metadata["update_method"] != "conservative_merge" {
		t.Errorf("unexpected metadata: %+v", cur.Metadata)
	}
}

func TestAppendRejectsInvalidRules(t *testing.T) {
	store := openTestStore(t)

	rules := DefaultRules()
	rules.SEO.TitleLength = Range{Min: 80, Max: 60}

	if _, err := store.Append(rules, nil, "bad", nil); err == nil {
		t.Fatal("expected validation error")
	}

	cur, _ := store.Current()
	if cur.Version != 0 {
		t.Errorf("invalid append must not create a version, current is %d", cur.Version)
	}
}

func TestRollbackAppendsCopy(t *testing.T) {
	store := openTestStore(t)

	v1 := DefaultRules()
	if _, err := store.Append(v1, nil, "baseline", nil); err != nil {
		t.Fatalf("append v1: %v", err)
	}

	v2 := v1
	v2.SEO.InternalLinksMin = 6
	if _, err := store.Append(v2, nil, "stricter links", nil); err != nil {
		t.Fatalf("append v2: %v", err)
	}

	n, err := store.Rollback(1)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if n != 3 {
		t.Errorf("expected rollback to create version 3, got %d", n)
	}

	cur, _ := store.Current()
	if cur.Rules.SEO.InternalLinksMin != v1.SEO.InternalLinksMin {
		t.Errorf("expected v1 rules restored, got links min %d", cur.Rules.SEO.InternalLinksMin)
	}
	if cur.Metadata["update_method"] != "rollback" {
		t.Errorf("expected rollback metadata, got %+v", cur.Metadata)
	}
	// JSON numbers decode as float64.
	if cur.Metadata["rollback_from"] != float64(2) || cur.Metadata["rollback_to"] != float64(1) {
		t.Errorf("unexpected rollback pointers: %+v", cur.Metadata)
	}

	history, err := store.History()
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("expected 3 versions after rollback, got %d", len(history))
	}
}

func TestRollbackToCurrentFails(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Append(DefaultRules(), nil, "v1", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.Rollback(1); err == nil {
		t.Error("expected error rolling back to current version")
	}
}

func TestRollbackToDefaults(t *testing.T) {
	store := openTestStore(t)

	strict := DefaultRules()
	strict.AISearch.ScannabilityScoreMin = 90
	if _, err := store.Append(strict, nil, "strict", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := store.Rollback(0); err != nil {
		t.Fatalf("rollback to defaults: %v", err)
	}
	cur, _ := store.Current()
	if cur.Rules.AISearch.ScannabilityScoreMin != 70 {
		t.Errorf("expected defaults restored, got %d", cur.Rules.AISearch.ScannabilityScoreMin)
	}
}

func TestVersionMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Version(5); err == nil {
		t.Error("expected error for missing version")
	}
}
