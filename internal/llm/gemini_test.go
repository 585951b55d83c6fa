package llm

import (
	"testing"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-lite", "gemini-2.5-flash-lite"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1},
			"level":   map[string]any{"type": "integer"},
			"tone":    map[string]any{"type": "string", "enum": []any{"warm", "neutral", "brisk"}},
			"steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer"},
			},
		},
		"required": []any{"message", "level"},
	}

	schema := toGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(schema.Properties))
	}
	if schema.Properties["message"].Type != "STRING" {
		t.Fatalf("expected STRING for message, got %s", schema.Properties["message"].Type)
	}
	if schema.Properties["level"].Type != "INTEGER" {
		t.Fatalf("expected INTEGER for level, got %s", schema.Properties["level"].Type)
	}
	if len(schema.Properties["tone"].Enum) != 3 {
		t.Fatalf("expected 3 enum values, got %d", len(schema.Properties["tone"].Enum))
	}
	if schema.Properties["steps"].Type != "ARRAY" {
		t.Fatalf("expected ARRAY for steps, got %s", schema.Properties["steps"].Type)
	}
	if schema.Properties["steps"].Items.Type != "INTEGER" {
		t.Fatalf("expected INTEGER for steps items, got %s", schema.Properties["steps"].Items.Type)
	}
	if ml := schema.Properties["message"].MinLength; ml == nil || *ml != 1 {
		t.Fatalf("expected minLength 1 for message, got %v", ml)
	}
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(schema.Required))
	}
}

func TestToGeminiSchema_UnknownTypeIsString(t *testing.T) {
	schema := toGeminiSchema(map[string]any{"type": "null", "enum": []string{"a", "b"}})
	if schema.Type != "STRING" {
		t.Fatalf("expected STRING fallback, got %s", schema.Type)
	}
	if len(schema.Enum) != 2 {
		t.Fatalf("expected typed string slices to be read, got %v", schema.Enum)
	}
}
