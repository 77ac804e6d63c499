package render

import (
	"encoding/json"
	"strings"

	"cvmaker/internal/cv"
)

// presentLabel replaces an absent or blank end date in section fragments.
const presentLabel = "Present"

// Renderer expands a template source against a canonical CV document.
// Substitution is literal text replacement: CV field values are not
// HTML-escaped, templates are trusted content authored in-house.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

// Render produces the final HTML document for capture.
func (r *Renderer) Render(src string, doc cv.Document) (string, error) {
	nodes, err := parse(src)
	if err != nil {
		return "", err
	}

	ctx := documentContext(doc)
	var out strings.Builder
	renderNodes(&out, nodes, ctx, doc)
	return out.String(), nil
}

func renderNodes(out *strings.Builder, nodes []node, ctx map[string]any, doc cv.Document) {
	for _, n := range nodes {
		switch n.kind {
		case nodeText:
			out.WriteString(n.text)
		case nodeVar:
			if value, ok := lookup(ctx, n.field); ok {
				out.WriteString(stringify(value))
			}
		case nodeIf:
			value, _ := lookup(ctx, n.field)
			if truthy(value) {
				renderNodes(out, n.children, ctx, doc)
			}
		case nodeEach:
			// The each body is a placeholder only; known sections expand
			// into fixed fragments, unknown sections collapse to nothing.
			out.WriteString(renderSection(n.field, doc))
		}
	}
}

// documentContext flattens the document into a lookup map. Scalar markers
// resolve against top-level aliases; conditionals may also use dotted paths
// such as contact.email.
func documentContext(doc cv.Document) map[string]any {
	data, err := json.Marshal(doc)
	if err != nil {
		return map[string]any{}
	}
	ctx := map[string]any{}
	if err := json.Unmarshal(data, &ctx); err != nil {
		return map[string]any{}
	}

	title := doc.PersonalInfo.Title
	if title == "" {
		title = doc.Title
	}
	ctx["firstName"] = doc.PersonalInfo.FirstName
	ctx["lastName"] = doc.PersonalInfo.LastName
	ctx["title"] = title
	ctx["summary"] = doc.PersonalInfo.Summary
	ctx["email"] = doc.Contact.Email
	ctx["phone"] = doc.Contact.Phone
	ctx["address"] = doc.Contact.Address
	ctx["linkedin"] = doc.Contact.LinkedIn
	ctx["github"] = doc.Contact.GitHub
	return ctx
}

// lookup resolves a possibly dotted field path against nested maps.
func lookup(ctx map[string]any, path string) (any, bool) {
	var current any = ctx
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// truthy follows the general convention: nil, empty string, zero, and empty
// sequences are falsy.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case float64:
		return value != 0
	case int:
		return value != 0
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case nil:
		return ""
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
