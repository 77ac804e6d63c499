// Package apperr defines the error taxonomy shared by the CV pipeline.
// Every failure that crosses a package boundary is one of these types so
// handlers can map it to a status code and a machine-readable kind.
package apperr

import (
	"fmt"
	"strings"
)

// Kind constants surfaced to API clients.
const (
	KindValidation       = "validation_error"
	KindQuotaExceeded    = "quota_exceeded"
	KindTemplateNotFound = "template_not_found"
	KindRender           = "render_error"
	KindNotFound         = "not_found"
)

// ValidationError reports every violated rule at once, never fail-fast.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// QuotaExceededError carries the limit and current usage so clients can
// render an upgrade prompt.
type QuotaExceededError struct {
	Resource string // "cv" or "download"
	Limit    int
	Used     int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %d of %d used", e.Resource, e.Used, e.Limit)
}

// TemplateNotFoundError marks an unknown template identifier.
type TemplateNotFoundError struct {
	TemplateID string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.TemplateID)
}

// RenderError wraps a browser launch/navigation/capture failure. It is
// transient and safe to retry.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "pdf render failed: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error { return e.Err }

// NotFoundError marks a CV or template that is absent, inactive, or not
// owned by the caller.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}
