// Package pdf captures rendered HTML into PDF bytes with a headless
// Chromium. The engine is exposed as an interface so the export pipeline
// and its tests can run against a stub instead of a real browser.
package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"cvmaker/internal/apperr"
	"cvmaker/internal/config"
)

// Generator renders a complete HTML document into a PDF byte buffer.
type Generator interface {
	GeneratePDF(ctx context.Context, htmlContent string) ([]byte, error)
}

// ISO A4 in inches.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// RodGenerator drives one throwaway Chromium instance per capture. The
// process is torn down on every exit path, including failures mid-load.
type RodGenerator struct {
	renderTimeout time.Duration
	idleTimeout   time.Duration
}

var _ Generator = (*RodGenerator)(nil)

func NewRodGenerator(cfg config.PDFConfig) *RodGenerator {
	return &RodGenerator{
		renderTimeout: cfg.RenderTimeout,
		idleTimeout:   cfg.IdleTimeout,
	}
}

// GeneratePDF loads the HTML, waits for the page to reach a quiescent
// network state (bounded by the idle timeout), and prints a single A4 PDF
// with zero margins and background graphics enabled. Any failure is wrapped
// into a RenderError after the browser is released.
func (g *RodGenerator) GeneratePDF(ctx context.Context, htmlContent string) ([]byte, error) {
	data, err := g.capture(ctx, htmlContent, exportPDF)
	if err != nil {
		return nil, &apperr.RenderError{Err: err}
	}
	return data, nil
}

// GeneratePreview rasterizes the page to a JPEG for thumbnail generation.
func (g *RodGenerator) GeneratePreview(ctx context.Context, htmlContent string, quality int) ([]byte, error) {
	data, err := g.capture(ctx, htmlContent, func(page *rod.Page) ([]byte, error) {
		return page.Screenshot(true, &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: intPtr(quality),
		})
	})
	if err != nil {
		return nil, &apperr.RenderError{Err: err}
	}
	return data, nil
}

func (g *RodGenerator) capture(ctx context.Context, htmlContent string, shoot func(*rod.Page) ([]byte, error)) (_ []byte, err error) {
	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer launch.Cleanup()

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Context(ctx).Timeout(g.renderTimeout)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(g.renderTimeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	// Quiescent-network wait, bounded so a broken remote resource cannot
	// stall the request forever.
	if err := page.WaitIdle(g.idleTimeout); err != nil {
		return nil, fmt.Errorf("wait network idle: %w", err)
	}

	return shoot(page)
}

func exportPDF(page *rod.Page) ([]byte, error) {
	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      float64Ptr(a4WidthInches),
		PaperHeight:     float64Ptr(a4HeightInches),
		MarginTop:       float64Ptr(0),
		MarginBottom:    float64Ptr(0),
		MarginLeft:      float64Ptr(0),
		MarginRight:     float64Ptr(0),
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func float64Ptr(value float64) *float64 { return &value }
func intPtr(value int) *int             { return &value }
