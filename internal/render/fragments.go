package render

import (
	"strings"

	"cvmaker/internal/cv"
)

// renderSection expands an {{#each section}} block into its fixed fragment
// markup. The fragment shapes are a compatibility surface shared with the
// template stylesheets (item-header, item-title, skill-level, ...).
func renderSection(section string, doc cv.Document) string {
	switch section {
	case "experience":
		return renderExperience(doc.Experience)
	case "education":
		return renderEducation(doc.Education)
	case "skills":
		return renderSkills(doc.Skills)
	default:
		return ""
	}
}

func renderExperience(entries []cv.Experience) string {
	var b strings.Builder
	for _, exp := range entries {
		b.WriteString(`<div class="experience-item">`)
		b.WriteString(`<div class="item-header">`)
		b.WriteString(`<div class="item-title">` + exp.Position + `</div>`)
		b.WriteString(`<div class="item-date">` + dateRange(exp.StartDate, exp.EndDate) + `</div>`)
		b.WriteString(`</div>`)
		b.WriteString(`<div class="item-subtitle">` + exp.Company + `</div>`)
		if exp.Description != "" {
			b.WriteString(`<div class="item-description">` + exp.Description + `</div>`)
		}
		b.WriteString(`</div>`)
	}
	return b.String()
}

func renderEducation(entries []cv.Education) string {
	var b strings.Builder
	for _, edu := range entries {
		subtitle := edu.Institution
		if edu.Field != "" {
			subtitle += " • " + edu.Field
		}
		b.WriteString(`<div class="education-item">`)
		b.WriteString(`<div class="item-header">`)
		b.WriteString(`<div class="item-title">` + edu.Degree + `</div>`)
		b.WriteString(`<div class="item-date">` + dateRange(edu.StartDate, edu.EndDate) + `</div>`)
		b.WriteString(`</div>`)
		b.WriteString(`<div class="item-subtitle">` + subtitle + `</div>`)
		b.WriteString(`</div>`)
	}
	return b.String()
}

const (
	skillSlots = 5
	filledDot  = "●"
	emptyDot   = "○"
)

func renderSkills(entries []cv.Skill) string {
	var b strings.Builder
	for _, skill := range entries {
		level := clampLevel(skill.Level)
		dots := strings.Repeat(filledDot, level) + strings.Repeat(emptyDot, skillSlots-level)
		b.WriteString(`<div class="skill-item">`)
		b.WriteString(`<span class="skill-name">` + skill.Name + `</span>`)
		b.WriteString(`<div class="skill-level"><span>` + dots + `</span></div>`)
		b.WriteString(`</div>`)
	}
	return b.String()
}

// clampLevel bounds a proficiency level to the five display slots. Zero
// means the author never picked a level and falls back to the middle.
func clampLevel(level int) int {
	if level == 0 {
		return 3
	}
	if level < 1 {
		return 1
	}
	if level > skillSlots {
		return skillSlots
	}
	return level
}

func dateRange(start, end string) string {
	if strings.TrimSpace(end) == "" {
		end = presentLabel
	}
	return start + " - " + end
}
