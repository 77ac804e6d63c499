package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvmaker/internal/apperr"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// RespondError maps the domain error taxonomy onto HTTP responses. Unknown
// errors become an opaque 500 so internals never leak to clients.
func RespondError(c *gin.Context, err error) {
	var (
		validationErr *apperr.ValidationError
		quotaErr      *apperr.QuotaExceededError
		premiumErr    *apperr.PremiumRequiredError
		templateErr   *apperr.TemplateNotFoundError
		notFoundErr   *apperr.NotFoundError
		renderErr     *apperr.RenderError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"errors": validationErr.Violations,
		})
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":    err.Error(),
			"resource": quotaErr.Resource,
			"limit":    quotaErr.Limit,
			"used":     quotaErr.Used,
			"upgrade":  true,
		})
	case errors.As(err, &premiumErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":    err.Error(),
			"template": premiumErr.TemplateID,
			"upgrade":  true,
		})
	case errors.As(err, &templateErr):
		NotFound(c, err.Error())
	case errors.As(err, &notFoundErr):
		NotFound(c, err.Error())
	case errors.As(err, &renderErr):
		Internal(c, "pdf generation failed")
	default:
		Internal(c, "internal server error")
	}
}
