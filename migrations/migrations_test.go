package migrations

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range entries {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %q", name)
		}
	}
	for version := range ups {
		if !downs[version] {
			t.Fatalf("migration %s has no down file", version)
		}
	}
}

// Replies must disappear with their parent, never be re-parented.
func TestReviewsCascadeOnParentDelete(t *testing.T) {
	body, err := fs.ReadFile(FS, "000001_init_schema.up.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	cascade := regexp.MustCompile(`parent_review_id\s+BIGINT\s+REFERENCES reviews\(id\) ON DELETE CASCADE`)
	if !cascade.Match(body) {
		t.Fatal("reviews.parent_review_id must cascade on delete")
	}
	bounded := regexp.MustCompile(`rating\s+INTEGER\s+NOT NULL DEFAULT 0 CHECK \(rating BETWEEN 0 AND 5\)`)
	if got := len(bounded.FindAll(body, -1)); got != 2 {
		t.Fatalf("expected podcast and review ratings constrained to [0,5], found %d", got)
	}
}
