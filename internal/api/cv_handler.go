package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvmaker/internal/api/middleware"
	"cvmaker/internal/apperr"
	"cvmaker/internal/cv"
	"cvmaker/internal/database"
	"cvmaker/internal/export"
	"cvmaker/internal/quota"
	"cvmaker/internal/tasks"
	"cvmaker/internal/templates"
)

// CVHandler owns the CV CRUD surface and the synchronous PDF download.
type CVHandler struct {
	db            *gorm.DB
	ledger        *quota.Ledger
	exportService *export.Service
	asynqClient   *asynq.Client
	logger        *slog.Logger
}

func NewCVHandler(db *gorm.DB, ledger *quota.Ledger, exportService *export.Service, asynqClient *asynq.Client, logger *slog.Logger) *CVHandler {
	return &CVHandler{
		db:            db,
		ledger:        ledger,
		exportService: exportService,
		asynqClient:   asynqClient,
		logger:        logger,
	}
}

type cvSummary struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	Template        string     `json:"template"`
	Views           int        `json:"views"`
	Downloads       int        `json:"downloads"`
	LastViewed      *time.Time `json:"lastViewed,omitempty"`
	PreviewImageURL string     `json:"previewImageUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func summarize(record database.CV) cvSummary {
	return cvSummary{
		ID:              record.ID,
		Title:           record.Title,
		Template:        record.Template,
		Views:           record.Views,
		Downloads:       record.Downloads,
		LastViewed:      record.LastViewed,
		PreviewImageURL: record.PreviewImageURL,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

// List returns the caller's active CVs without content, plus the tier limit.
func (h *CVHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var records []database.CV
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		middleware.LoggerFromContext(c).Error("list cvs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	snap, err := h.ledger.SnapshotFor(ctx, userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	summaries := make([]cvSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, summarize(record))
	}
	c.JSON(http.StatusOK, gin.H{
		"cvs":   summaries,
		"count": len(summaries),
		"limit": snap.CVLimit,
	})
}

type upsertCVRequest struct {
	Title    string         `json:"title"`
	Template string         `json:"template"`
	Content  map[string]any `json:"content" binding:"required"`
}

// Create normalizes and validates the payload, checks the CV quota, and
// stores the canonical document.
func (h *CVHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	var req upsertCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	if req.Title != "" {
		req.Content["title"] = req.Title
	}
	normalized, err := cv.NormalizeAndValidate(req.Content)
	if err != nil {
		RespondError(c, err)
		return
	}

	slug := req.Template
	if slug == "" {
		slug = "classic"
	}
	if err := h.checkTemplateAllowed(c, userID, slug); err != nil {
		RespondError(c, err)
		return
	}

	if err := h.ledger.CheckCVCreate(ctx, userID); err != nil {
		RespondError(c, err)
		return
	}

	content, err := cv.MarshalPayload(normalized)
	if err != nil {
		logger.Error("encode cv content failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	record := database.CV{
		UserID:   userID,
		Title:    titleOf(normalized),
		Content:  datatypes.JSON(content),
		Template: slug,
		IsActive: true,
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Error("create cv failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.enqueuePreview(c, record.ID, userID)
	logger.Info("cv created", slog.Uint64("cv_id", uint64(record.ID)))
	c.JSON(http.StatusCreated, gin.H{"cv": summarize(record)})
}

// Get returns one CV with content and bumps the view counter.
func (h *CVHandler) Get(c *gin.Context) {
	_, record, ok := h.ownedCV(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := database.MarkViewed(ctx, h.db, record.ID); err != nil {
		middleware.LoggerFromContext(c).Warn("mark cv viewed failed", slog.Any("error", err))
	}

	c.JSON(http.StatusOK, gin.H{
		"cv":      summarize(*record),
		"content": record.Content,
	})
}

// Update replaces the document after re-running normalization and validation,
// then queues a preview refresh.
func (h *CVHandler) Update(c *gin.Context) {
	userID, record, ok := h.ownedCV(c)
	if !ok {
		return
	}

	var req upsertCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("cv_id", uint64(record.ID)))

	if req.Title != "" {
		req.Content["title"] = req.Title
	}
	normalized, err := cv.NormalizeAndValidate(req.Content)
	if err != nil {
		RespondError(c, err)
		return
	}

	slug := req.Template
	if slug == "" {
		slug = record.Template
	}
	if err := h.checkTemplateAllowed(c, userID, slug); err != nil {
		RespondError(c, err)
		return
	}

	content, err := cv.MarshalPayload(normalized)
	if err != nil {
		logger.Error("encode cv content failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	update := map[string]any{
		"title":    titleOf(normalized),
		"content":  datatypes.JSON(content),
		"template": slug,
	}
	if err := h.db.WithContext(ctx).Model(record).Updates(update).Error; err != nil {
		logger.Error("update cv failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.enqueuePreview(c, record.ID, userID)
	logger.Info("cv updated")
	c.JSON(http.StatusOK, gin.H{"cv": summarize(*record)})
}

// Delete soft-deletes the CV. Analytics counters and the row survive.
func (h *CVHandler) Delete(c *gin.Context) {
	_, record, ok := h.ownedCV(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(record).Update("is_active", false).Error; err != nil {
		middleware.LoggerFromContext(c).Error("delete cv failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cv deleted"})
}

// Download runs the synchronous export pipeline and streams the PDF back as
// an attachment. Nothing is persisted besides the counters.
func (h *CVHandler) Download(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}
	cvID, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	artifact, err := h.exportService.ExportPDF(ctx, userID, cvID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, "application/pdf", artifact.PDF)
}

// Templates lists the catalog, premium entries filtered out for free users.
func (h *CVHandler) Templates(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	snap, err := h.ledger.SnapshotFor(ctx, userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	items, err := templates.List(ctx, h.db, snap.IsPremium)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list templates failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	total, err := templates.CountActive(ctx, h.db)
	if err != nil {
		middleware.LoggerFromContext(c).Error("count templates failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": items,
		"total":     total,
		"available": len(items),
	})
}

func (h *CVHandler) checkTemplateAllowed(c *gin.Context, userID uint, slug string) error {
	ctx := c.Request.Context()
	tpl, err := templates.Get(ctx, h.db, slug)
	if err != nil {
		return err
	}
	if !tpl.IsPremium {
		return nil
	}

	snap, err := h.ledger.SnapshotFor(ctx, userID)
	if err != nil {
		return err
	}
	if !snap.IsPremium {
		return &apperr.PremiumRequiredError{TemplateID: slug}
	}
	return nil
}

func (h *CVHandler) ownedCV(c *gin.Context) (uint, *database.CV, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return 0, nil, false
	}
	cvID, ok := parseIDParam(c)
	if !ok {
		return 0, nil, false
	}

	var record database.CV
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ? AND is_active = ?", cvID, userID, true).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "cv not found")
		return 0, nil, false
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("load cv failed", slog.Any("error", err))
		Internal(c, "internal error")
		return 0, nil, false
	}
	return userID, &record, true
}

func (h *CVHandler) enqueuePreview(c *gin.Context, cvID, userID uint) {
	if h.asynqClient == nil {
		return
	}
	task, err := tasks.NewCVPreviewTask(cvID, userID, middleware.GetCorrelationID(c))
	if err != nil {
		middleware.LoggerFromContext(c).Warn("build preview task failed", slog.Any("error", err))
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		middleware.LoggerFromContext(c).Warn("enqueue preview task failed", slog.Any("error", err))
	}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid cv id")
		return 0, false
	}
	return uint(id), true
}

func titleOf(payload map[string]any) string {
	if title, ok := payload["title"].(string); ok {
		return title
	}
	return ""
}
