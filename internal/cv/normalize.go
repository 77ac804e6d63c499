package cv

import (
	"strings"

	"cvmaker/internal/apperr"
)

// Normalize canonicalizes a CV payload that may arrive in a legacy shape.
// It never mutates the input and is idempotent: normalizing an already
// canonical payload returns an equal payload.
//
// Migrations applied, in order:
//   - a legacy "personal" block is renamed to "personalInfo" when no
//     "personalInfo" block exists
//   - a combined "name" is split into firstName/lastName on the first
//     whitespace run
//   - contact-like fields nested inside personalInfo are moved into the
//     "contact" block when contact does not already define them; a field
//     contact already defines stays where it is, shadowed
//   - a "contact" block is guaranteed to exist, possibly empty
func Normalize(payload map[string]any) map[string]any {
	normalized := make(map[string]any, len(payload))
	for k, v := range payload {
		normalized[k] = v
	}

	if personal, ok := normalized["personal"]; ok {
		if _, exists := normalized["personalInfo"]; !exists {
			normalized["personalInfo"] = personal
		}
		delete(normalized, "personal")
	}

	if info, ok := asMap(normalized["personalInfo"]); ok {
		info = copyMap(info)
		normalized["personalInfo"] = info

		if name, ok := asString(info["name"]); ok && name != "" {
			if first, _ := asString(info["firstName"]); first == "" {
				parts := strings.Fields(name)
				if len(parts) > 0 {
					info["firstName"] = parts[0]
					info["lastName"] = strings.Join(parts[1:], " ")
				} else {
					info["firstName"] = ""
					info["lastName"] = ""
				}
				delete(info, "name")
			}
		}
	}

	contact, ok := asMap(normalized["contact"])
	if !ok {
		contact = map[string]any{}
	} else {
		contact = copyMap(contact)
	}
	normalized["contact"] = contact

	if info, ok := asMap(normalized["personalInfo"]); ok {
		for _, field := range []string{"email", "phone", "address", "linkedin", "github"} {
			value, _ := asString(info[field])
			if value == "" {
				continue
			}
			if existing, _ := asString(contact[field]); existing != "" {
				continue
			}
			contact[field] = value
			delete(info, field)
		}
	}

	return normalized
}

// Validate checks a normalized payload and returns every violated rule.
// An empty slice means the payload is valid.
func Validate(payload map[string]any) []string {
	var errs []string

	info, hasInfo := asMap(payload["personalInfo"])
	if !hasInfo {
		errs = append(errs, "personalInfo is required")
	} else {
		if first, _ := asString(info["firstName"]); strings.TrimSpace(first) == "" {
			errs = append(errs, "personalInfo.firstName is required")
		}
		if last, _ := asString(info["lastName"]); strings.TrimSpace(last) == "" {
			errs = append(errs, "personalInfo.lastName is required")
		}
	}

	title, isString := asString(payload["title"])
	if !isString || strings.TrimSpace(title) == "" {
		errs = append(errs, "title is required and must be a non-empty string")
	}

	return errs
}

// NormalizeAndValidate runs both steps and wraps violations into a typed
// error for the API layer.
func NormalizeAndValidate(payload map[string]any) (map[string]any, error) {
	normalized := Normalize(payload)
	if violations := Validate(normalized); len(violations) > 0 {
		return normalized, &apperr.ValidationError{Violations: violations}
	}
	return normalized, nil
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
