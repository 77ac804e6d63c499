// Package export composes the PDF pipeline: normalize, validate, gate,
// render, capture, count. Each step short-circuits with its own typed error
// and no counter is touched unless the capture succeeded.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"cvmaker/internal/apperr"
	"cvmaker/internal/cv"
	"cvmaker/internal/database"
	"cvmaker/internal/metrics"
	"cvmaker/internal/pdf"
	"cvmaker/internal/quota"
	"cvmaker/internal/render"
	"cvmaker/internal/templates"
)

// Service is the render orchestrator. The capture engine is an injected
// capability so tests run against a stub instead of a browser.
type Service struct {
	db        *gorm.DB
	ledger    *quota.Ledger
	renderer  *render.Renderer
	generator pdf.Generator
	logger    *slog.Logger
}

// Artifact is the ephemeral result of one export. Nothing in it is
// persisted; the buffer is discarded once the response is written.
type Artifact struct {
	PDF      []byte
	Filename string
	CV       *database.CV
}

func NewService(db *gorm.DB, ledger *quota.Ledger, generator pdf.Generator, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		ledger:    ledger,
		renderer:  render.New(),
		generator: generator,
		logger:    logger,
	}
}

// ExportPDF runs the full pipeline for one CV owned by userID.
//
// Received -> Normalized -> Validated -> QuotaChecked -> Rendered ->
// Captured -> Counted -> Delivered, with any failure short-circuiting
// before counters are incremented.
func (s *Service) ExportPDF(ctx context.Context, userID, cvID uint) (*Artifact, error) {
	started := time.Now()
	log := s.logger.With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("cv_id", uint64(cvID)),
	)

	record, err := s.loadCV(ctx, userID, cvID)
	if err != nil {
		return nil, err
	}

	doc, err := s.normalize(record)
	if err != nil {
		return nil, err
	}

	slug := templateSlug(record, doc)
	tpl, err := templates.Get(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}

	snap, err := s.ledger.SnapshotFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tpl.IsPremium && !snap.IsPremium {
		return nil, &apperr.PremiumRequiredError{TemplateID: slug}
	}

	snap, err = s.ledger.CheckDownload(ctx, userID)
	if err != nil {
		return nil, err
	}

	source, err := templates.Source(slug)
	if err != nil {
		return nil, err
	}
	html, err := s.renderer.Render(source, doc)
	if err != nil {
		return nil, fmt.Errorf("render template %q: %w", slug, err)
	}

	pdfBytes, err := s.generator.GeneratePDF(ctx, html)
	if err != nil {
		metrics.ObserveExport(slug, "error", time.Since(started))
		log.Error("pdf capture failed", slog.Any("error", err))
		return nil, err
	}

	// Counters move only after the buffer exists.
	if err := s.ledger.CommitDownload(ctx, userID, snap); err != nil {
		return nil, err
	}
	if err := database.MarkDownloaded(ctx, s.db, record.ID); err != nil {
		return nil, err
	}

	metrics.ObserveExport(slug, "ok", time.Since(started))
	log.Info("cv exported",
		slog.String("template", slug),
		slog.Int("pdf_bytes", len(pdfBytes)),
		slog.Duration("elapsed", time.Since(started)),
	)

	return &Artifact{
		PDF:      pdfBytes,
		Filename: attachmentFilename(doc),
		CV:       record,
	}, nil
}

func (s *Service) loadCV(ctx context.Context, userID, cvID uint) (*database.CV, error) {
	var record database.CV
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", cvID, userID, true).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.NotFoundError{Resource: "cv"}
	}
	if err != nil {
		return nil, fmt.Errorf("load cv %d: %w", cvID, err)
	}
	return &record, nil
}

// normalize re-runs the payload normalizer on the stored content. Stored
// documents are already canonical, but exports accept legacy rows written
// before the migration and normalization is idempotent.
func (s *Service) normalize(record *database.CV) (cv.Document, error) {
	payload := map[string]any{}
	if len(record.Content) > 0 {
		if err := json.Unmarshal(record.Content, &payload); err != nil {
			return cv.Document{}, fmt.Errorf("decode cv content: %w", err)
		}
	}
	if _, ok := payload["title"]; !ok {
		payload["title"] = record.Title
	}

	normalized, err := cv.NormalizeAndValidate(payload)
	if err != nil {
		return cv.Document{}, err
	}
	return cv.FromPayload(normalized)
}

func templateSlug(record *database.CV, doc cv.Document) string {
	slug := strings.ToLower(strings.TrimSpace(record.Template))
	if slug == "" {
		slug = strings.ToLower(strings.TrimSpace(doc.Template))
	}
	if slug == "" {
		slug = "classic"
	}
	return slug
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// attachmentFilename derives First_Last_CV.pdf from the owner block.
func attachmentFilename(doc cv.Document) string {
	name := strings.TrimSpace(doc.PersonalInfo.FirstName + " " + doc.PersonalInfo.LastName)
	if name == "" {
		return "CV.pdf"
	}
	return whitespaceRun.ReplaceAllString(name, "_") + "_CV.pdf"
}
