// Package quota enforces the tier limits: CV count on create, monthly
// download count on export, and the upgrade path that lifts them.
//
// The ledger never reserves quota in advance. Each limit is evaluated at the
// moment of the corresponding action, and the download increment is a single
// conditional UPDATE so that two concurrent exports racing on the last
// remaining download cannot both succeed.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cvmaker/internal/apperr"
	"cvmaker/internal/config"
	"cvmaker/internal/database"
)

// ErrUnknownPlan is returned by Upgrade for a plan outside the tier catalog.
var ErrUnknownPlan = errors.New("unknown subscription plan")

// Ledger wraps the per-user quota columns on the users table.
type Ledger struct {
	db  *gorm.DB
	cfg config.QuotaConfig
	now func() time.Time
}

// Snapshot is the quota state observed by a check. It is passed back to
// CommitDownload so the commit can skip tiers that are not subject to
// limits without a second read.
type Snapshot struct {
	SubscriptionType   string
	IsPremium          bool
	CVLimit            int
	DownloadLimit      int
	DownloadsThisMonth int
	LastDownloadReset  time.Time
}

func NewLedger(db *gorm.DB, cfg config.QuotaConfig) *Ledger {
	return &Ledger{db: db, cfg: cfg, now: time.Now}
}

// CheckCVCreate fails with QuotaExceededError when a free-tier user already
// owns cv_limit active CVs. Paid tiers are exempt from the count check.
func (l *Ledger) CheckCVCreate(ctx context.Context, userID uint) error {
	user, err := l.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.SubscriptionType != database.TierFree {
		return nil
	}

	var count int64
	err = l.db.WithContext(ctx).
		Model(&database.CV{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("count active cvs: %w", err)
	}

	if count >= int64(user.CVLimit) {
		return &apperr.QuotaExceededError{Resource: "cv", Limit: user.CVLimit, Used: int(count)}
	}
	return nil
}

// CheckDownload applies the lazy monthly reset, then verifies the user may
// start another download this month. The returned snapshot reflects the
// post-reset state.
func (l *Ledger) CheckDownload(ctx context.Context, userID uint) (Snapshot, error) {
	user, err := l.loadUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	now := l.now().UTC()
	if monthChanged(user.LastDownloadReset, now) {
		// CAS on the old reset stamp: if a concurrent request already
		// reset the month, this update matches zero rows and the reload
		// below picks up the fresh state either way.
		err := l.db.WithContext(ctx).
			Model(&database.User{}).
			Where("id = ? AND last_download_reset = ?", userID, user.LastDownloadReset).
			Updates(map[string]any{
				"downloads_this_month": 0,
				"last_download_reset":  now,
			}).Error
		if err != nil {
			return Snapshot{}, fmt.Errorf("reset monthly downloads: %w", err)
		}
		if user, err = l.loadUser(ctx, userID); err != nil {
			return Snapshot{}, err
		}
	}

	snap := snapshotOf(user)
	if limited(snap) && snap.DownloadsThisMonth >= snap.DownloadLimit {
		return snap, &apperr.QuotaExceededError{
			Resource: "download",
			Limit:    snap.DownloadLimit,
			Used:     snap.DownloadsThisMonth,
		}
	}
	return snap, nil
}

// CommitDownload spends one download after a successful capture. The guard
// is repeated inside the UPDATE so a request that lost a race observes zero
// affected rows and fails instead of overspending.
func (l *Ledger) CommitDownload(ctx context.Context, userID uint, snap Snapshot) error {
	if !limited(snap) {
		return nil
	}

	res := l.db.WithContext(ctx).
		Model(&database.User{}).
		Where("id = ? AND downloads_this_month < download_limit", userID).
		UpdateColumn("downloads_this_month", gorm.Expr("downloads_this_month + 1"))
	if res.Error != nil {
		return fmt.Errorf("increment monthly downloads: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		user, err := l.loadUser(ctx, userID)
		if err != nil {
			return err
		}
		return &apperr.QuotaExceededError{
			Resource: "download",
			Limit:    user.DownloadLimit,
			Used:     user.DownloadsThisMonth,
		}
	}
	return nil
}

// Upgrade promotes the account tier, lifts the limits, and stamps a one-year
// expiry. Idempotent per call; payment settlement happens elsewhere.
func (l *Ledger) Upgrade(ctx context.Context, userID uint, plan string) (*database.User, error) {
	switch plan {
	case database.TierPremium, database.TierEnterprise:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}

	cvLimit := l.cfg.PremiumCVLimit
	if plan == database.TierEnterprise {
		cvLimit = l.cfg.EnterpriseCVLimit
	}
	expiry := l.now().UTC().AddDate(1, 0, 0)

	err := l.db.WithContext(ctx).
		Model(&database.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_premium":          true,
			"subscription_type":   plan,
			"subscription_expiry": expiry,
			"cv_limit":            cvLimit,
			"download_limit":      database.UnlimitedDownloads,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("upgrade user: %w", err)
	}

	user, err := l.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SnapshotFor exposes the current quota state for the stats endpoint.
func (l *Ledger) SnapshotFor(ctx context.Context, userID uint) (Snapshot, error) {
	user, err := l.loadUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(user), nil
}

func (l *Ledger) loadUser(ctx context.Context, userID uint) (database.User, error) {
	var user database.User
	err := l.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, &apperr.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return user, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user, nil
}

// limited reports whether the snapshot's tier is subject to download limits.
func limited(snap Snapshot) bool {
	return snap.SubscriptionType == database.TierFree &&
		snap.DownloadLimit != database.UnlimitedDownloads
}

func monthChanged(last, now time.Time) bool {
	return last.UTC().Month() != now.Month() || last.UTC().Year() != now.Year()
}

func snapshotOf(user database.User) Snapshot {
	return Snapshot{
		SubscriptionType:   user.SubscriptionType,
		IsPremium:          user.IsPremium,
		CVLimit:            user.CVLimit,
		DownloadLimit:      user.DownloadLimit,
		DownloadsThisMonth: user.DownloadsThisMonth,
		LastDownloadReset:  user.LastDownloadReset,
	}
}
