package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Subscription tiers. Only the free tier is subject to quota limits.
const (
	TierFree       = "free"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

// UnlimitedDownloads is the sentinel for a lifted download limit.
const UnlimitedDownloads = -1

// User is an account plus its quota ledger columns. downloads_this_month is
// reset lazily the first time the ledger touches the record in a new
// calendar month; the reset and the increment are both single conditional
// updates so concurrent downloads cannot double-spend the quota.
type User struct {
	gorm.Model
	Email              string `gorm:"uniqueIndex;size:255"`
	PasswordHash       string `gorm:"size:255"`
	FirstName          string `gorm:"size:100"`
	LastName           string `gorm:"size:100"`
	IsPremium          bool   `gorm:"default:false"`
	SubscriptionType   string `gorm:"size:32;default:free"`
	SubscriptionExpiry *time.Time
	CVLimit            int       `gorm:"default:3"`
	DownloadLimit      int       `gorm:"default:5"`
	DownloadsThisMonth int       `gorm:"default:0"`
	LastDownloadReset  time.Time `gorm:"autoCreateTime"`
	ProfilePhotoURL    string    `gorm:"size:512"`
	ProfilePhotoKey    string    `gorm:"size:512"`
	CVs                []CV      `gorm:"constraint:OnDelete:CASCADE"`
}

// CV stores the canonical document as JSONB. Deletion is a soft flag; view
// and download counters only ever increase and are mutated exclusively by
// the read/export paths.
type CV struct {
	gorm.Model
	UserID           uint           `gorm:"index:idx_cvs_user_active"`
	User             User           `gorm:"constraint:OnDelete:CASCADE"`
	Title            string         `gorm:"size:255"`
	Content          datatypes.JSON `gorm:"type:jsonb"`
	Template         string         `gorm:"size:64;default:classic"`
	IsPublic         bool           `gorm:"default:false"`
	Views            int            `gorm:"default:0"`
	Downloads        int            `gorm:"default:0"`
	LastViewed       *time.Time
	// No column default: gorm drops zero-value fields that carry a default
	// tag, which would silently store false inserts as true. Writers set the
	// flag explicitly.
	IsActive         bool   `gorm:"index:idx_cvs_user_active"`
	PreviewImageURL  string `gorm:"size:512"`
	PreviewObjectKey string `gorm:"size:512"`
}

// Template is an immutable catalog descriptor; the HTML source itself is
// embedded in the binary and addressed by Slug.
type Template struct {
	gorm.Model
	Slug        string `gorm:"uniqueIndex;size:64"`
	Name        string `gorm:"size:128"`
	Description string `gorm:"size:512"`
	IsPremium   bool   `gorm:"default:false;index:idx_templates_premium_active"`
	Preview     string `gorm:"size:512"`
	Category    string `gorm:"size:64"`
	IsActive    bool   `gorm:"index:idx_templates_premium_active"`
}
