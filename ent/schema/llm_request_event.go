package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMRequestEvent is one call to a text-generation provider. The history
// command aggregates these into token usage and cost per model.
type LLMRequestEvent struct {
	ent.Schema
}

func (LLMRequestEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{JournalMixin{}}
}

func (LLMRequestEvent) Fields() []ent.Field {
	tokens := func(name string) ent.Field { return field.Int(name).NonNegative().Default(0) }
	return []ent.Field{
		field.String("provider"),
		field.String("model"),
		field.String("purpose").Comment("phrase-hint, phrase-problem, ..."),
		tokens("input_tokens"),
		tokens("output_tokens"),
		field.Int64("latency_ms").Default(0),
		field.Bool("success"),
		field.String("error_message").Default(""),
	}
}

func (LLMRequestEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("provider", "model"),
		index.Fields("purpose"),
	}
}
