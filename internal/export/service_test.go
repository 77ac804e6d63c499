package export

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cvmaker/internal/apperr"
	"cvmaker/internal/config"
	"cvmaker/internal/database"
	"cvmaker/internal/quota"
	"cvmaker/internal/templates"
)

type stubGenerator struct {
	calls int
	html  string
	fail  error
}

func (g *stubGenerator) GeneratePDF(_ context.Context, htmlContent string) ([]byte, error) {
	g.calls++
	g.html = htmlContent
	if g.fail != nil {
		return nil, g.fail
	}
	return []byte("%PDF-1.4 stub"), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.CV{}, &database.Template{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := templates.SeedCatalog(context.Background(), db); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, generator *stubGenerator) *Service {
	t.Helper()
	ledger := quota.NewLedger(db, config.QuotaConfig{
		FreeCVLimit:       3,
		FreeDownloadLimit: 5,
		PremiumCVLimit:    50,
		EnterpriseCVLimit: 100,
	})
	return NewService(db, ledger, generator, slog.Default())
}

func seedUser(t *testing.T, db *gorm.DB, premium bool) database.User {
	t.Helper()
	user := database.User{
		Email:             "ada@example.com",
		SubscriptionType:  database.TierFree,
		CVLimit:           3,
		DownloadLimit:     5,
		LastDownloadReset: time.Now().UTC(),
	}
	if premium {
		user.SubscriptionType = database.TierPremium
		user.IsPremium = true
		user.DownloadLimit = database.UnlimitedDownloads
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

const validContent = `{
	"title": "Engineer CV",
	"personalInfo": {"firstName": "Ada", "lastName": "Lovelace", "summary": "First programmer."},
	"contact": {"email": "ada@example.com"},
	"skills": [{"name": "Mathematics", "level": 5}]
}`

func seedCV(t *testing.T, db *gorm.DB, userID uint, template, content string) database.CV {
	t.Helper()
	record := database.CV{
		UserID:   userID,
		Title:    "Engineer CV",
		Content:  datatypes.JSON(content),
		Template: template,
		IsActive: true,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed cv: %v", err)
	}
	return record
}

func TestExportPDF_Success(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, false)
	record := seedCV(t, db, user.ID, "classic", validContent)

	artifact, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if !strings.HasPrefix(string(artifact.PDF), "%PDF") {
		t.Errorf("pdf buffer = %q", artifact.PDF[:8])
	}
	if artifact.Filename != "Ada_Lovelace_CV.pdf" {
		t.Errorf("filename = %s", artifact.Filename)
	}
	if generator.calls != 1 {
		t.Errorf("generator calls = %d, want 1", generator.calls)
	}
	if !strings.Contains(generator.html, "Ada Lovelace") {
		t.Errorf("rendered html missing name")
	}
	if !strings.Contains(generator.html, "●●●●●") {
		t.Errorf("rendered html missing skill dots")
	}

	var reloadedUser database.User
	if err := db.First(&reloadedUser, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloadedUser.DownloadsThisMonth != 1 {
		t.Errorf("downloads_this_month = %d, want 1", reloadedUser.DownloadsThisMonth)
	}

	var reloadedCV database.CV
	if err := db.First(&reloadedCV, record.ID).Error; err != nil {
		t.Fatalf("reload cv: %v", err)
	}
	if reloadedCV.Downloads != 1 {
		t.Errorf("cv downloads = %d, want 1", reloadedCV.Downloads)
	}
}

func TestExportPDF_UnknownCV(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)
	user := seedUser(t, db, false)

	_, err := svc.ExportPDF(context.Background(), user.ID, 999)
	var notFoundErr *apperr.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExportPDF_ForeignCVHidden(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	owner := seedUser(t, db, false)
	record := seedCV(t, db, owner.ID, "classic", validContent)

	other := database.User{
		Email:             "other@example.com",
		SubscriptionType:  database.TierFree,
		CVLimit:           3,
		DownloadLimit:     5,
		LastDownloadReset: time.Now().UTC(),
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed other user: %v", err)
	}

	_, err := svc.ExportPDF(context.Background(), other.ID, record.ID)
	var notFoundErr *apperr.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExportPDF_InvalidContent(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, false)
	record := seedCV(t, db, user.ID, "classic", `{"title": "CV"}`)

	_, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	var validationErr *apperr.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if generator.calls != 0 {
		t.Errorf("generator should not run for invalid content")
	}
	assertCountersUntouched(t, db, user.ID, record.ID)
}

func TestExportPDF_PremiumTemplateGated(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, false)
	record := seedCV(t, db, user.ID, "modern", validContent)

	_, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	var premiumErr *apperr.PremiumRequiredError
	if !errors.As(err, &premiumErr) {
		t.Fatalf("expected PremiumRequiredError, got %v", err)
	}
	if premiumErr.TemplateID != "modern" {
		t.Errorf("template id = %s", premiumErr.TemplateID)
	}
	if generator.calls != 0 {
		t.Errorf("generator should not run for gated template")
	}
	assertCountersUntouched(t, db, user.ID, record.ID)
}

func TestExportPDF_PremiumUserPremiumTemplate(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, true)
	record := seedCV(t, db, user.ID, "modern", validContent)

	artifact, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(artifact.PDF) == 0 {
		t.Errorf("empty pdf")
	}

	// Unlimited tier: the quota counter stays untouched.
	var reloaded database.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.DownloadsThisMonth != 0 {
		t.Errorf("downloads_this_month = %d, want 0", reloaded.DownloadsThisMonth)
	}
}

func TestExportPDF_UnknownTemplate(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, false)
	record := seedCV(t, db, user.ID, "glitter", validContent)

	_, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	var templateErr *apperr.TemplateNotFoundError
	if !errors.As(err, &templateErr) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
}

func TestExportPDF_QuotaExhausted(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, false)
	record := seedCV(t, db, user.ID, "classic", validContent)
	if err := db.Model(&database.User{}).Where("id = ?", user.ID).Update("downloads_this_month", 5).Error; err != nil {
		t.Fatalf("exhaust quota: %v", err)
	}

	_, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	var quotaErr *apperr.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if generator.calls != 0 {
		t.Errorf("generator should not run once quota is exhausted")
	}

	var reloadedCV database.CV
	if err := db.First(&reloadedCV, record.ID).Error; err != nil {
		t.Fatalf("reload cv: %v", err)
	}
	if reloadedCV.Downloads != 0 {
		t.Errorf("cv downloads = %d, want 0", reloadedCV.Downloads)
	}
}

func TestExportPDF_CaptureFailureLeavesCounters(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{fail: &apperr.RenderError{Err: errors.New("browser crashed")}}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, false)
	record := seedCV(t, db, user.ID, "classic", validContent)

	_, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	var renderErr *apperr.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	assertCountersUntouched(t, db, user.ID, record.ID)
}

func TestExportPDF_LegacyContentNormalized(t *testing.T) {
	db := newTestDB(t)
	generator := &stubGenerator{}
	svc := newTestService(t, db, generator)

	user := seedUser(t, db, false)
	legacy := `{
		"title": "Legacy CV",
		"personal": {"name": "Grace Hopper", "email": "grace@example.com"}
	}`
	record := seedCV(t, db, user.ID, "classic", legacy)

	artifact, err := svc.ExportPDF(context.Background(), user.ID, record.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if artifact.Filename != "Grace_Hopper_CV.pdf" {
		t.Errorf("filename = %s", artifact.Filename)
	}
	if !strings.Contains(generator.html, "grace@example.com") {
		t.Errorf("migrated contact email missing from render")
	}
}

func assertCountersUntouched(t *testing.T, db *gorm.DB, userID, cvID uint) {
	t.Helper()

	var user database.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.DownloadsThisMonth != 0 {
		t.Errorf("downloads_this_month = %d, want 0", user.DownloadsThisMonth)
	}

	var record database.CV
	if err := db.First(&record, cvID).Error; err != nil {
		t.Fatalf("reload cv: %v", err)
	}
	if record.Downloads != 0 {
		t.Errorf("cv downloads = %d, want 0", record.Downloads)
	}
}
