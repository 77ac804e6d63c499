package cv

import (
	"errors"
	"reflect"
	"testing"

	"cvmaker/internal/apperr"
)

func TestNormalize_SplitsCombinedName(t *testing.T) {
	payload := map[string]any{
		"title": "My CV",
		"personalInfo": map[string]any{
			"name": "Ada Lovelace",
		},
	}

	got := Normalize(payload)

	info, ok := got["personalInfo"].(map[string]any)
	if !ok {
		t.Fatalf("personalInfo missing: %#v", got)
	}
	if info["firstName"] != "Ada" {
		t.Errorf("firstName = %v, want Ada", info["firstName"])
	}
	if info["lastName"] != "Lovelace" {
		t.Errorf("lastName = %v, want Lovelace", info["lastName"])
	}
	if _, exists := info["name"]; exists {
		t.Errorf("name should be removed after split")
	}
}

func TestNormalize_MultiWordLastName(t *testing.T) {
	payload := map[string]any{
		"personalInfo": map[string]any{
			"name": "Gabriel García Márquez",
		},
	}

	info := Normalize(payload)["personalInfo"].(map[string]any)
	if info["firstName"] != "Gabriel" {
		t.Errorf("firstName = %v", info["firstName"])
	}
	if info["lastName"] != "García Márquez" {
		t.Errorf("lastName = %v", info["lastName"])
	}
}

func TestNormalize_RenamesLegacyPersonalBlock(t *testing.T) {
	payload := map[string]any{
		"personal": map[string]any{
			"firstName": "Ada",
			"lastName":  "Lovelace",
		},
	}

	got := Normalize(payload)
	if _, exists := got["personal"]; exists {
		t.Errorf("legacy personal block should be removed")
	}
	if _, exists := got["personalInfo"]; !exists {
		t.Errorf("personalInfo should exist after rename")
	}
}

func TestNormalize_MigratesContactFields(t *testing.T) {
	payload := map[string]any{
		"personalInfo": map[string]any{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
			"phone":     "555-0100",
			"linkedin":  "linkedin.com/in/ada",
		},
		"contact": map[string]any{
			"phone": "existing-phone",
		},
	}

	got := Normalize(payload)
	contact := got["contact"].(map[string]any)
	info := got["personalInfo"].(map[string]any)

	if contact["email"] != "ada@example.com" {
		t.Errorf("email not migrated: %v", contact["email"])
	}
	// An existing contact value wins over the nested one.
	if contact["phone"] != "existing-phone" {
		t.Errorf("phone = %v, want existing-phone", contact["phone"])
	}
	if contact["linkedin"] != "linkedin.com/in/ada" {
		t.Errorf("linkedin not migrated: %v", contact["linkedin"])
	}
	for _, field := range []string{"email", "linkedin"} {
		if _, exists := info[field]; exists {
			t.Errorf("personalInfo.%s should be removed after migration", field)
		}
	}
	// The shadowed field stays in place when contact already defines it.
	if info["phone"] != "555-0100" {
		t.Errorf("shadowed personalInfo.phone = %v, want 555-0100", info["phone"])
	}
}

func TestNormalize_EnsuresContactBlock(t *testing.T) {
	got := Normalize(map[string]any{"title": "CV"})
	contact, ok := got["contact"].(map[string]any)
	if !ok {
		t.Fatalf("contact block missing")
	}
	if len(contact) != 0 {
		t.Errorf("expected empty contact block, got %#v", contact)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	payload := map[string]any{
		"title": "My CV",
		"personalInfo": map[string]any{
			"name":  "Ada Lovelace",
			"email": "ada@example.com",
		},
	}

	once := Normalize(payload)
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("normalize is not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	info := map[string]any{"name": "Ada Lovelace"}
	payload := map[string]any{"personalInfo": info}

	Normalize(payload)

	if _, exists := info["firstName"]; exists {
		t.Errorf("input payload was mutated")
	}
	if info["name"] != "Ada Lovelace" {
		t.Errorf("input name was removed")
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	errs := Validate(map[string]any{})
	want := []string{
		"personalInfo is required",
		"title is required and must be a non-empty string",
	}
	if !reflect.DeepEqual(errs, want) {
		t.Errorf("violations = %v, want %v", errs, want)
	}
}

func TestValidate_BlankNames(t *testing.T) {
	errs := Validate(map[string]any{
		"title": "CV",
		"personalInfo": map[string]any{
			"firstName": "   ",
			"lastName":  "",
		},
	})
	want := []string{
		"personalInfo.firstName is required",
		"personalInfo.lastName is required",
	}
	if !reflect.DeepEqual(errs, want) {
		t.Errorf("violations = %v, want %v", errs, want)
	}
}

func TestValidate_NonStringTitle(t *testing.T) {
	errs := Validate(map[string]any{
		"title": 42,
		"personalInfo": map[string]any{
			"firstName": "Ada",
			"lastName":  "Lovelace",
		},
	})
	if len(errs) != 1 || errs[0] != "title is required and must be a non-empty string" {
		t.Errorf("violations = %v", errs)
	}
}

func TestNormalizeAndValidate_WrapsViolations(t *testing.T) {
	_, err := NormalizeAndValidate(map[string]any{})
	var validationErr *apperr.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Violations) != 2 {
		t.Errorf("violations = %v", validationErr.Violations)
	}
}

func TestNormalizeAndValidate_ValidPayload(t *testing.T) {
	got, err := NormalizeAndValidate(map[string]any{
		"title": "My CV",
		"personalInfo": map[string]any{
			"name": "Ada Lovelace",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := got["personalInfo"].(map[string]any)
	if info["firstName"] != "Ada" || info["lastName"] != "Lovelace" {
		t.Errorf("normalized info = %#v", info)
	}
}
