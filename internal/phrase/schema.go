package phrase

import "github.com/abhisek/mathguide/internal/llm"

// MessageSchema defines the JSON schema for a rephrased tutor message.
var MessageSchema = &llm.Schema{
	Name:        "tutor-message",
	Description: "One short tutoring message shown to the student",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "The message to show, 1-3 sentences",
			},
		},
		"required":             []any{"message"},
		"additionalProperties": false,
	},
}
