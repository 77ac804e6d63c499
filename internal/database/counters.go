package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Analytics counters are mutated only through these helpers, from the read
// and export flows. They only ever increase.

// MarkViewed bumps the view counter and stamps last_viewed.
func MarkViewed(ctx context.Context, db *gorm.DB, cvID uint) error {
	err := db.WithContext(ctx).
		Model(&CV{}).
		Where("id = ?", cvID).
		Updates(map[string]any{
			"views":       gorm.Expr("views + 1"),
			"last_viewed": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("mark cv %d viewed: %w", cvID, err)
	}
	return nil
}

// MarkDownloaded bumps the download counter.
func MarkDownloaded(ctx context.Context, db *gorm.DB, cvID uint) error {
	err := db.WithContext(ctx).
		Model(&CV{}).
		Where("id = ?", cvID).
		UpdateColumn("downloads", gorm.Expr("downloads + 1")).Error
	if err != nil {
		return fmt.Errorf("mark cv %d downloaded: %w", cvID, err)
	}
	return nil
}
