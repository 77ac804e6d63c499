// Package worker hosts the asynq task handlers that run outside the request
// path, currently the CV preview thumbnail pipeline.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvmaker/internal/cv"
	"cvmaker/internal/database"
	"cvmaker/internal/render"
	"cvmaker/internal/storage"
	"cvmaker/internal/tasks"
	"cvmaker/internal/templates"
)

// Previewer rasterizes a rendered HTML document into a JPEG thumbnail.
type Previewer interface {
	GeneratePreview(ctx context.Context, htmlContent string, quality int) ([]byte, error)
}

const (
	previewQuality = 80
	presignTTL     = 7 * 24 * time.Hour
)

// PreviewHandler regenerates CV thumbnails after edits.
type PreviewHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	previewer   Previewer
	redisClient *redis.Client
	renderer    *render.Renderer
	logger      *slog.Logger
}

func NewPreviewHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	previewer Previewer,
	redisClient *redis.Client,
	logger *slog.Logger,
) *PreviewHandler {
	return &PreviewHandler{
		db:          db,
		storage:     storageClient,
		previewer:   previewer,
		redisClient: redisClient,
		renderer:    render.New(),
		logger:      logger,
	}
}

func (h *PreviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.CVPreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal cv preview payload failed", slog.Any("error", err))
		return err
	}

	log := h.logger.With(
		slog.Uint64("cv_id", uint64(payload.CVID)),
		slog.String("correlation_id", payload.CorrelationID),
	)
	log.Info("Starting cv preview generation task...")

	var record database.CV
	err := h.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", payload.CVID, true).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("cv not found or deleted, skipping task")
		return nil
	}
	if err != nil {
		log.Error("query cv failed", slog.Any("error", err))
		return err
	}

	html, err := h.renderHTML(&record)
	if err != nil {
		// Incomplete documents cannot be previewed; retrying won't help.
		log.Warn("cv not renderable, skipping task", slog.Any("error", err))
		return nil
	}

	previewBytes, err := h.previewer.GeneratePreview(ctx, html, previewQuality)
	if err != nil {
		log.Error("capture cv screenshot failed", slog.Any("error", err))
		return err
	}

	objectKey := fmt.Sprintf("thumbnails/cv/%d/%s.jpg", record.ID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectKey, bytes.NewReader(previewBytes), int64(len(previewBytes)), "image/jpeg"); err != nil {
		log.Error("upload cv preview failed", slog.Any("error", err))
		return err
	}

	previewURL, err := h.storage.GeneratePresignedURL(ctx, objectKey, presignTTL)
	if err != nil {
		log.Error("generate cv preview url failed", slog.Any("error", err))
		return err
	}

	oldKey := record.PreviewObjectKey
	update := map[string]any{
		"preview_image_url":  previewURL,
		"preview_object_key": objectKey,
	}
	if err := h.db.WithContext(ctx).Model(&record).Updates(update).Error; err != nil {
		log.Error("update cv preview fields failed", slog.Any("error", err))
		return err
	}

	if oldKey != "" && oldKey != objectKey {
		if err := h.storage.DeleteObject(ctx, oldKey); err != nil {
			log.Warn("delete stale cv preview failed", slog.Any("error", err))
		}
	}

	notify := PreviewNotifyMessage{
		Status:        "completed",
		CVID:          record.ID,
		CorrelationID: payload.CorrelationID,
		PreviewURL:    previewURL,
	}
	if err := h.publishNotify(ctx, record.UserID, notify); err != nil {
		log.Warn("publish preview notification failed", slog.Any("error", err))
	}

	log.Info("CV preview generation completed.")
	return nil
}

func (h *PreviewHandler) renderHTML(record *database.CV) (string, error) {
	payload := map[string]any{}
	if len(record.Content) > 0 {
		if err := json.Unmarshal(record.Content, &payload); err != nil {
			return "", fmt.Errorf("decode cv content: %w", err)
		}
	}
	if _, ok := payload["title"]; !ok {
		payload["title"] = record.Title
	}

	normalized, err := cv.NormalizeAndValidate(payload)
	if err != nil {
		return "", err
	}
	doc, err := cv.FromPayload(normalized)
	if err != nil {
		return "", err
	}

	slug := record.Template
	if slug == "" {
		slug = "classic"
	}
	source, err := templates.Source(slug)
	if err != nil {
		return "", err
	}
	return h.renderer.Render(source, doc)
}

func (h *PreviewHandler) publishNotify(ctx context.Context, userID uint, notify PreviewNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish notification to %q: %w", channel, err)
	}
	return nil
}
