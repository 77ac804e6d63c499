// Package cv defines the canonical CV document shape stored in the
// Content(JSONB) column, plus the payload normalizer that migrates legacy
// shapes into it.
package cv

import "encoding/json"

// Document is the canonical CV record after normalization.
type Document struct {
	Title          string          `json:"title"`
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Contact        Contact         `json:"contact"`
	Experience     []Experience    `json:"experience,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Skills         []Skill         `json:"skills,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Languages      []Language      `json:"languages,omitempty"`
	Template       string          `json:"template,omitempty"`
	Theme          Theme           `json:"theme,omitempty"`
}

// PersonalInfo carries the identity block. FirstName and LastName are the
// only hard-required fields in the whole document.
type PersonalInfo struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Title        string `json:"title,omitempty"` // professional title
	Summary      string `json:"summary,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Contact groups the reachability fields. Legacy payloads carry these inside
// personalInfo; the normalizer migrates them here.
type Contact struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Experience is one work history entry. Dates are kept as display strings;
// an empty EndDate renders as "Present".
type Experience struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	StartDate        string   `json:"startDate,omitempty"`
	EndDate          string   `json:"endDate,omitempty"`
	Current          bool     `json:"current,omitempty"`
	Description      string   `json:"description,omitempty"`
	Location         string   `json:"location,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Current     bool   `json:"current,omitempty"`
	Description string `json:"description,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

// Skill carries a 1-5 proficiency level rendered as filled/empty dots.
type Skill struct {
	Name     string `json:"name"`
	Level    int    `json:"level,omitempty"`
	Category string `json:"category,omitempty"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	URL          string   `json:"url,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
}

type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
}

type Language struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// Theme holds per-CV rendering preferences.
type Theme struct {
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	FontFamily     string `json:"fontFamily,omitempty"`
	FontSize       string `json:"fontSize,omitempty"`
}

// MarshalPayload encodes a normalized payload for JSONB storage.
func MarshalPayload(payload map[string]any) ([]byte, error) {
	return json.Marshal(payload)
}

// FromPayload decodes a normalized payload map into a Document.
func FromPayload(payload map[string]any) (Document, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
