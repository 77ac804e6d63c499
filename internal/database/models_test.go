package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &CV{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// A default tag on a bool makes gorm omit false on insert, turning inactive
// rows active. The model must round-trip the flag exactly as written.
func TestCV_InactiveFlagSurvivesInsert(t *testing.T) {
	db := newTestDB(t)

	inactive := CV{UserID: 1, Title: "inactive", IsActive: false}
	if err := db.Create(&inactive).Error; err != nil {
		t.Fatalf("create inactive cv: %v", err)
	}
	active := CV{UserID: 1, Title: "active", IsActive: true}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("create active cv: %v", err)
	}

	var reloaded CV
	if err := db.First(&reloaded, inactive.ID).Error; err != nil {
		t.Fatalf("reload inactive cv: %v", err)
	}
	if reloaded.IsActive {
		t.Errorf("inactive cv stored as active")
	}

	var count int64
	err := db.Model(&CV{}).
		Where("user_id = ? AND is_active = ?", uint(1), true).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count active cvs: %v", err)
	}
	if count != 1 {
		t.Errorf("active count = %d, want 1", count)
	}
}
