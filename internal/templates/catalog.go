// Package templates owns the CV template catalog: embedded HTML sources
// addressed by template id, plus the database-backed descriptor list used
// for browsing and premium gating.
package templates

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cvmaker/internal/apperr"
	"cvmaker/internal/database"
)

//go:embed html/*.html
var sources embed.FS

// Source returns the HTML template source for a template id.
func Source(id string) (string, error) {
	data, err := sources.ReadFile(fmt.Sprintf("html/%s.html", id))
	if err != nil {
		return "", &apperr.TemplateNotFoundError{TemplateID: id}
	}
	return string(data), nil
}

// seed is the canonical catalog. Classic is the only free template.
var seed = []database.Template{
	{Slug: "classic", Name: "Classic", Description: "Traditional CV layout with clean typography", IsPremium: false, Preview: "/templates/classic-preview.png", Category: "professional", IsActive: true},
	{Slug: "modern", Name: "Modern", Description: "Contemporary design with color accents", IsPremium: true, Preview: "/templates/modern-preview.png", Category: "modern", IsActive: true},
	{Slug: "creative", Name: "Creative", Description: "Eye-catching design for creative professionals", IsPremium: true, Preview: "/templates/creative-preview.png", Category: "creative", IsActive: true},
	{Slug: "minimal", Name: "Minimal", Description: "Clean and minimal design focused on content", IsPremium: true, Preview: "/templates/minimal-preview.png", Category: "minimal", IsActive: true},
	{Slug: "executive", Name: "Executive", Description: "Professional template for senior positions", IsPremium: true, Preview: "/templates/executive-preview.png", Category: "professional", IsActive: true},
	{Slug: "designer", Name: "Designer", Description: "Visually striking template for design professionals", IsPremium: true, Preview: "/templates/designer-preview.png", Category: "creative", IsActive: true},
}

// SeedCatalog upserts the canonical descriptors. Safe to run on every boot.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	for _, tpl := range seed {
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "is_premium", "preview", "category", "is_active",
			}),
		}).Create(&tpl).Error
		if err != nil {
			return fmt.Errorf("seed template %q: %w", tpl.Slug, err)
		}
	}
	return nil
}

// List returns active descriptors; premium templates are filtered out for
// non-premium accounts.
func List(ctx context.Context, db *gorm.DB, includePremium bool) ([]database.Template, error) {
	query := db.WithContext(ctx).Where("is_active = ?", true)
	if !includePremium {
		query = query.Where("is_premium = ?", false)
	}

	var items []database.Template
	if err := query.Order("is_premium ASC, name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return items, nil
}

// Get returns one active descriptor by slug.
func Get(ctx context.Context, db *gorm.DB, slug string) (*database.Template, error) {
	var tpl database.Template
	err := db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.TemplateNotFoundError{TemplateID: slug}
	}
	if err != nil {
		return nil, fmt.Errorf("query template %q: %w", slug, err)
	}
	return &tpl, nil
}

// CountActive returns the total catalog size, premium included.
func CountActive(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&database.Template{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}
