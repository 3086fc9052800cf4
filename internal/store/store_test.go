package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"), nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleArticle(id int64, title string) Article {
	return Article{ID: id, Title: title, Excerpt: "excerpt for " + title, Thumbnail: "https://img/" + title}
}

func TestSaveToggle(t *testing.T) {
	s := testStore(t)
	a := sampleArticle(42, "Go (programming language)")

	if err := s.SaveArticle(a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveArticle(a); err != nil {
		t.Fatalf("second save: %v", err)
	}

	saved, err := s.SavedArticles()
	if err != nil {
		t.Fatalf("saved articles: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected exactly 1 saved record, got %d", len(saved))
	}
	if saved[0].SavedAt.IsZero() {
		t.Error("expected saved_at to be set")
	}

	if err := s.UnsaveArticle(a.ID); err != nil {
		t.Fatalf("unsave: %v", err)
	}
	saved, _ = s.SavedArticles()
	if len(saved) != 0 {
		t.Fatalf("expected 0 saved after unsave, got %d", len(saved))
	}
}

func TestUnsaveAbsentIsNoop(t *testing.T) {
	s := testStore(t)
	if err := s.UnsaveArticle(999); err != nil {
		t.Fatalf("unsave of absent id should be a no-op, got %v", err)
	}
}

func TestIsSaved(t *testing.T) {
	s := testStore(t)
	if ok, err := s.IsSaved(1); err != nil || ok {
		t.Fatalf("IsSaved on empty store = (%v, %v)", ok, err)
	}
	s.SaveArticle(sampleArticle(1, "A"))
	if ok, err := s.IsSaved(1); err != nil || !ok {
		t.Fatalf("IsSaved after save = (%v, %v)", ok, err)
	}
}

func TestHistoryOrderingAndReview(t *testing.T) {
	s := testStore(t)

	if err := s.RecordView(sampleArticle(1, "First")); err != nil {
		t.Fatalf("record view: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.RecordView(sampleArticle(2, "Second")); err != nil {
		t.Fatalf("record view: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	// Viewing the first article again moves it to the front.
	if err := s.RecordView(sampleArticle(1, "First (updated)")); err != nil {
		t.Fatalf("record view: %v", err)
	}

	hist, err := s.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[0].ID != 1 {
		t.Errorf("expected re-viewed article first, got id %d", hist[0].ID)
	}
	if hist[0].Title != "First (updated)" {
		t.Errorf("expected refreshed content, got %q", hist[0].Title)
	}
}

func TestClearHistory(t *testing.T) {
	s := testStore(t)
	s.RecordView(sampleArticle(1, "A"))
	s.RecordView(sampleArticle(2, "B"))

	if err := s.ClearHistory(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	hist, err := s.History()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 0 {
		t.Errorf("expected empty history, got %d entries", len(hist))
	}
}

func TestInterestSetSemantics(t *testing.T) {
	s := testStore(t)

	if err := s.AddInterest("physics"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddInterest("physics"); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if err := s.AddInterest("history"); err != nil {
		t.Fatalf("add: %v", err)
	}

	interests, err := s.Interests()
	if err != nil {
		t.Fatalf("interests: %v", err)
	}
	if len(interests) != 2 {
		t.Fatalf("expected 2 interests, got %d", len(interests))
	}

	if err := s.RemoveInterest("physics"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	interests, _ = s.Interests()
	if len(interests) != 1 || interests[0].Name != "history" {
		t.Errorf("expected only 'history' left, got %v", interests)
	}
}

func TestInterestMutationsConcurrent(t *testing.T) {
	s := testStore(t)

	names := []string{"art", "biology", "chemistry", "drama", "economics"}
	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := s.AddInterest(name); err != nil {
				t.Errorf("add %s: %v", name, err)
			}
		}(n)
	}
	wg.Wait()

	interests, err := s.Interests()
	if err != nil {
		t.Fatalf("interests: %v", err)
	}
	if len(interests) != len(names) {
		t.Errorf("lost updates: expected %d interests, got %d", len(names), len(interests))
	}
}

func TestPreferencesEmptyByDefault(t *testing.T) {
	s := testStore(t)
	p, err := s.Preferences()
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if len(p.Interests) != 0 {
		t.Errorf("expected empty interest set, got %v", p.Interests)
	}
}

func TestLazyOpenFailure(t *testing.T) {
	// A path whose parent cannot be created forces the open to fail.
	s := New(filepath.Join("/dev/null", "nope", "test.db"), nil)

	if _, err := s.SavedArticles(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	// Subsequent calls fail the same way instead of retrying the open.
	if err := s.AddInterest("x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable on later call, got %v", err)
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)
	s.SaveArticle(sampleArticle(1, "A"))
	s.RecordView(sampleArticle(2, "B"))
	s.RecordView(sampleArticle(3, "C"))

	saved, history, size, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if saved != 1 || history != 2 {
		t.Errorf("expected (1 saved, 2 history), got (%d, %d)", saved, history)
	}
	if size == 0 {
		t.Error("expected non-zero db size")
	}
}
