package templates

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cvmaker/internal/apperr"
	"cvmaker/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.Template{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSource_AllSeededTemplatesHaveSources(t *testing.T) {
	for _, tpl := range seed {
		src, err := Source(tpl.Slug)
		if err != nil {
			t.Errorf("template %s: %v", tpl.Slug, err)
			continue
		}
		if !strings.Contains(src, "{{firstName}}") {
			t.Errorf("template %s: missing firstName marker", tpl.Slug)
		}
	}
}

func TestSource_UnknownTemplate(t *testing.T) {
	_, err := Source("nonexistent")
	var templateErr *apperr.TemplateNotFoundError
	if !errors.As(err, &templateErr) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
	if templateErr.TemplateID != "nonexistent" {
		t.Errorf("template id = %s", templateErr.TemplateID)
	}
}

func TestSeedCatalog_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := SeedCatalog(ctx, db); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedCatalog(ctx, db); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	count, err := CountActive(ctx, db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != int64(len(seed)) {
		t.Errorf("count = %d, want %d", count, len(seed))
	}
}

func TestList_FiltersPremiumForFreeUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := SeedCatalog(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	free, err := List(ctx, db, false)
	if err != nil {
		t.Fatalf("list free: %v", err)
	}
	if len(free) != 1 || free[0].Slug != "classic" {
		t.Errorf("free catalog = %+v, want only classic", free)
	}

	all, err := List(ctx, db, true)
	if err != nil {
		t.Fatalf("list premium: %v", err)
	}
	if len(all) != len(seed) {
		t.Errorf("premium catalog size = %d, want %d", len(all), len(seed))
	}
	// Free templates sort ahead of premium ones.
	if all[0].Slug != "classic" {
		t.Errorf("first entry = %s, want classic", all[0].Slug)
	}
}

func TestGet_KnownAndUnknown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := SeedCatalog(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tpl, err := Get(ctx, db, "modern")
	if err != nil {
		t.Fatalf("get modern: %v", err)
	}
	if !tpl.IsPremium {
		t.Errorf("modern should be premium")
	}

	_, err = Get(ctx, db, "missing")
	var templateErr *apperr.TemplateNotFoundError
	if !errors.As(err, &templateErr) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
}

func TestGet_InactiveTemplateHidden(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := SeedCatalog(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := db.Model(&database.Template{}).Where("slug = ?", "designer").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := Get(ctx, db, "designer")
	var templateErr *apperr.TemplateNotFoundError
	if !errors.As(err, &templateErr) {
		t.Fatalf("expected TemplateNotFoundError for inactive template, got %v", err)
	}
}
