package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvmaker/internal/api/middleware"
	"cvmaker/internal/database"
	"cvmaker/internal/quota"
)

// UserHandler serves profile, stats and the tier upgrade endpoint.
type UserHandler struct {
	db     *gorm.DB
	ledger *quota.Ledger
	logger *slog.Logger
}

func NewUserHandler(db *gorm.DB, ledger *quota.Ledger, logger *slog.Logger) *UserHandler {
	return &UserHandler{db: db, ledger: ledger, logger: logger}
}

type profileResponse struct {
	ID                 uint       `json:"id"`
	Email              string     `json:"email"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	IsPremium          bool       `json:"isPremium"`
	SubscriptionType   string     `json:"subscriptionType"`
	SubscriptionExpiry *time.Time `json:"subscriptionExpiry,omitempty"`
	CVLimit            int        `json:"cvLimit"`
	DownloadLimit      int        `json:"downloadLimit"`
	DownloadsThisMonth int        `json:"downloadsThisMonth"`
	ProfilePhotoURL    string     `json:"profilePhotoUrl,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func profileOf(user database.User) profileResponse {
	return profileResponse{
		ID:                 user.ID,
		Email:              user.Email,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		IsPremium:          user.IsPremium,
		SubscriptionType:   user.SubscriptionType,
		SubscriptionExpiry: user.SubscriptionExpiry,
		CVLimit:            user.CVLimit,
		DownloadLimit:      user.DownloadLimit,
		DownloadsThisMonth: user.DownloadsThisMonth,
		ProfilePhotoURL:    user.ProfilePhotoURL,
		CreatedAt:          user.CreatedAt,
	}
}

// Profile returns the caller's account, password hash excluded.
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		middleware.LoggerFromContext(c).Error("load user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": profileOf(user)})
}

type updateProfileRequest struct {
	FirstName string `json:"firstName" binding:"required,max=64"`
	LastName  string `json:"lastName" binding:"required,max=64"`
	Email     string `json:"email" binding:"required,email,max=254"`
}

// UpdateProfile changes name and email. An email move to an address owned by
// another account is rejected.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	var taken database.User
	err := h.db.WithContext(ctx).
		Where("email = ? AND id <> ?", email, userID).
		First(&taken).Error
	if err == nil {
		Conflict(c, "email already in use")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("email lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	update := map[string]any{
		"first_name": strings.TrimSpace(req.FirstName),
		"last_name":  strings.TrimSpace(req.LastName),
		"email":      email,
	}
	if err := h.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", userID).Updates(update).Error; err != nil {
		logger.Error("update profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Error("reload user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "profile updated",
		"user":    profileOf(user),
	})
}

// Stats aggregates CV counts, total views and downloads, and the current
// quota snapshot.
func (h *UserHandler) Stats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var agg struct {
		CVCount        int64
		TotalViews     int64
		TotalDownloads int64
	}
	err := h.db.WithContext(ctx).
		Model(&database.CV{}).
		Select("COUNT(*) AS cv_count, COALESCE(SUM(views), 0) AS total_views, COALESCE(SUM(downloads), 0) AS total_downloads").
		Where("user_id = ? AND is_active = ?", userID, true).
		Scan(&agg).Error
	if err != nil {
		logger.Error("aggregate cv stats failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var recent []database.CV
	err = h.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").
		Limit(3).
		Find(&recent).Error
	if err != nil {
		logger.Error("load recent cvs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	snap, err := h.ledger.SnapshotFor(ctx, userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	recentSummaries := make([]cvSummary, 0, len(recent))
	for _, record := range recent {
		recentSummaries = append(recentSummaries, summarize(record))
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"cvCount":            agg.CVCount,
			"totalViews":         agg.TotalViews,
			"totalDownloads":     agg.TotalDownloads,
			"cvLimit":            snap.CVLimit,
			"downloadLimit":      snap.DownloadLimit,
			"downloadsThisMonth": snap.DownloadsThisMonth,
			"subscriptionType":   snap.SubscriptionType,
		},
		"recentCVs": recentSummaries,
	})
}

type upgradeRequest struct {
	PlanType string `json:"planType"`
}

// Upgrade promotes the account. Payment settlement is a placeholder; the
// endpoint only flips the tier and limits.
func (h *UserHandler) Upgrade(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	// The body is optional; an empty one defaults to the premium plan.
	var req upgradeRequest
	_ = c.ShouldBindJSON(&req)
	plan := req.PlanType
	if plan == "" {
		plan = database.TierPremium
	}

	user, err := h.ledger.Upgrade(c.Request.Context(), userID, plan)
	if err != nil {
		if errors.Is(err, quota.ErrUnknownPlan) {
			BadRequest(c, err.Error())
			return
		}
		RespondError(c, err)
		return
	}

	middleware.LoggerFromContext(c).Info("user upgraded",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("plan", plan),
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "upgrade successful",
		"user":    profileOf(*user),
		"features": gin.H{
			"unlimitedDownloads": true,
			"premiumTemplates":   true,
			"prioritySupport":    plan == database.TierEnterprise,
		},
	})
}
