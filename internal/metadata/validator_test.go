package metadata

import (
	"strings"
	"testing"
)

func TestValidate_AllValid(t *testing.T) {
	attrs := Attributes{
		"name":        "django",
		"description": "Django patterns",
		"version":     "1.0.0",
		"requires":    []any{"../core"},
	}

	result := Validate(attrs, "SKILL.md")
	if !result.Valid {
		t.Errorf("Expected valid result, got errors: %v", result.Errors)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	result := Validate(Attributes{}, "pkg/SKILL.md")
	if result.Valid {
		t.Fatal("Expected invalid result")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(result.Errors), result.Errors)
	}

	text := result.ErrorString()
	for _, field := range []string{`"name"`, `"description"`} {
		if !strings.Contains(text, field) {
			t.Errorf("Expected error about %s, got: %s", field, text)
		}
	}
}

func TestValidate_WrongTypes(t *testing.T) {
	attrs := Attributes{
		"name":        42,
		"description": "   ",
		"version":     1.0,
		"requires":    []any{"ok", 3},
	}

	result := Validate(attrs, "SKILL.md")
	if len(result.Errors) != 4 {
		t.Fatalf("Expected 4 errors, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestStringList(t *testing.T) {
	got, err := StringList("single")
	if err != nil || len(got) != 1 || got[0] != "single" {
		t.Errorf("StringList(string) = %v, %v", got, err)
	}

	got, err = StringList(nil)
	if err != nil || got != nil {
		t.Errorf("StringList(nil) = %v, %v", got, err)
	}

	if _, err := StringList(map[string]any{}); err == nil {
		t.Error("StringList(map) should fail")
	}
}
