package render

import (
	"strings"
	"testing"

	"cvmaker/internal/cv"
)

func testDoc() cv.Document {
	return cv.Document{
		Title: "Fallback Title",
		PersonalInfo: cv.PersonalInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Title:     "Analyst",
			Summary:   "First programmer.",
		},
		Contact: cv.Contact{
			Email: "ada@example.com",
			Phone: "555-0100",
		},
	}
}

func TestRender_ScalarMarkers(t *testing.T) {
	r := New()
	got, err := r.Render("<h1>{{firstName}} {{lastName}}</h1><p>{{email}}</p>", testDoc())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "<h1>Ada Lovelace</h1><p>ada@example.com</p>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRender_TitleFallsBackToDocumentTitle(t *testing.T) {
	doc := testDoc()
	doc.PersonalInfo.Title = ""

	got, err := New().Render("{{title}}", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Fallback Title" {
		t.Errorf("got %q", got)
	}
}

func TestRender_MissingMarkerRendersEmpty(t *testing.T) {
	got, err := New().Render("[{{nonexistent}}]", testDoc())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "[]" {
		t.Errorf("got %q, want []", got)
	}
}

func TestRender_Conditionals(t *testing.T) {
	doc := testDoc()
	doc.Contact.Phone = ""

	src := "{{#if email}}<p>{{email}}</p>{{/if}}{{#if phone}}<p>{{phone}}</p>{{/if}}"
	got, err := New().Render(src, doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "<p>ada@example.com</p>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRender_ConditionalDottedPath(t *testing.T) {
	src := "{{#if contact.email}}yes{{/if}}{{#if contact.portfolio}}no{{/if}}"
	got, err := New().Render(src, testDoc())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "yes" {
		t.Errorf("got %q", got)
	}
}

func TestRender_ExperienceSection(t *testing.T) {
	doc := testDoc()
	doc.Experience = []cv.Experience{
		{Company: "Analytical Engines", Position: "Lead Analyst", StartDate: "1842", EndDate: "1843", Description: "Wrote the notes."},
		{Company: "Babbage & Co", Position: "Consultant", StartDate: "1843"},
	}

	got, err := New().Render("{{#each experience}}{{/each}}", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if n := strings.Count(got, `<div class="experience-item">`); n != 2 {
		t.Errorf("experience items = %d, want 2", n)
	}
	if !strings.Contains(got, "1842 - 1843") {
		t.Errorf("date range missing: %q", got)
	}
	// Open-ended entry renders with the present label.
	if !strings.Contains(got, "1843 - Present") {
		t.Errorf("present label missing: %q", got)
	}
	if !strings.Contains(got, `<div class="item-description">Wrote the notes.</div>`) {
		t.Errorf("description missing: %q", got)
	}
	// The second entry has no description and must not emit the element.
	if n := strings.Count(got, "item-description"); n != 1 {
		t.Errorf("item-description count = %d, want 1", n)
	}
}

func TestRender_EmptySectionCollapses(t *testing.T) {
	got, err := New().Render("A{{#each education}}ignored{{/each}}B", testDoc())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "AB" {
		t.Errorf("got %q, want AB", got)
	}
}

func TestRender_EducationFieldSeparator(t *testing.T) {
	doc := testDoc()
	doc.Education = []cv.Education{
		{Institution: "University of London", Degree: "Mathematics", Field: "Analysis", StartDate: "1833", EndDate: "1835"},
	}

	got, err := New().Render("{{#each education}}{{/each}}", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "University of London • Analysis") {
		t.Errorf("subtitle separator missing: %q", got)
	}
}

func TestRender_SkillDots(t *testing.T) {
	doc := testDoc()
	doc.Skills = []cv.Skill{
		{Name: "Mathematics", Level: 5},
		{Name: "Poetry", Level: 2},
		{Name: "Unrated"},
		{Name: "Overflow", Level: 9},
	}

	got, err := New().Render("{{#each skills}}{{/each}}", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	cases := map[string]string{
		"Mathematics": "●●●●●",
		"Poetry":      "●●○○○",
		"Unrated":     "●●●○○",
		"Overflow":    "●●●●●",
	}
	items := strings.Split(got, `<div class="skill-item">`)[1:]
	if len(items) != len(cases) {
		t.Fatalf("skill items = %d, want %d", len(items), len(cases))
	}
	for _, item := range items {
		for name, dots := range cases {
			if strings.Contains(item, name) && !strings.Contains(item, dots) {
				t.Errorf("skill %s: wrong dots in %q", name, item)
			}
		}
	}
}

func TestRender_UnknownSectionCollapses(t *testing.T) {
	got, err := New().Render("X{{#each hobbies}}body{{/each}}Y", testDoc())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "XY" {
		t.Errorf("got %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unterminated marker", "hello {{firstName"},
		{"unclosed if", "{{#if email}}content"},
		{"unclosed each", "{{#each skills}}content"},
		{"unexpected closer", "content{{/if}}"},
		{"mismatched closer", "{{#if email}}content{{/each}}"},
		{"empty marker", "{{}}"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New().Render(tc.src, testDoc()); err == nil {
				t.Errorf("expected parse error for %q", tc.src)
			}
		})
	}
}

func TestRender_FullTemplateSmoke(t *testing.T) {
	doc := testDoc()
	doc.Experience = []cv.Experience{{Company: "X", Position: "Y", StartDate: "2020"}}
	doc.Skills = []cv.Skill{{Name: "Go", Level: 4}}

	src := `<html><body>
{{#if summary}}<p>{{summary}}</p>{{/if}}
{{#if experience}}<div>{{#each experience}}{{/each}}</div>{{/if}}
{{#if skills}}<div>{{#each skills}}{{/each}}</div>{{/if}}
</body></html>`

	got, err := New().Render(src, doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"First programmer.", "experience-item", "skill-level"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
