package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

var hintSchema = Schema{
	Name:        "test-hint-message",
	Description: "A phrased hint",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1},
			"tone":    map[string]any{"type": "string", "enum": []any{"warm", "neutral"}},
			"steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer", "minimum": 0},
			},
		},
		"required":             []any{"message"},
		"additionalProperties": false,
	},
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"minimal", `{"message":"Factor the left side."}`, false},
		{"all fields", `{"message":"ok","tone":"warm","steps":[0,2]}`, false},
		{"missing required", `{"tone":"warm"}`, true},
		{"empty message", `{"message":""}`, true},
		{"wrong type", `{"message":3}`, true},
		{"bad enum", `{"message":"ok","tone":"stern"}`, true},
		{"bad array item", `{"message":"ok","steps":[-1]}`, true},
		{"extra field", `{"message":"ok","answer":"x = 3"}`, true},
		{"malformed", `{message}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(&hintSchema, json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("expected ErrInvalidResponse, got %T", err)
				}
				if string(inv.Content) != tt.raw {
					t.Fatalf("expected offending content to be kept, got %q", inv.Content)
				}
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not even json`)); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateResponse_CompiledSchemaIsCached(t *testing.T) {
	s := &Schema{Name: "test-cache", Definition: map[string]any{"type": "object"}}
	if err := validateResponse(s, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	compiledSchemas.Lock()
	_, ok := compiledSchemas.byName["test-cache"]
	compiledSchemas.Unlock()
	if !ok {
		t.Fatal("expected compiled schema in cache")
	}
}
