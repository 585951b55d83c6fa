package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DecisionEvent records the decision returned for one turn.
type DecisionEvent struct {
	ent.Schema
}

func (DecisionEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{JournalMixin{}}
}

func (DecisionEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			NotEmpty(),
		field.String("intent").
			Comment("attempt, new-problem, hint, explain"),
		field.String("action").
			Default(""),
		field.Int("hint_level").
			Default(0),
		field.String("problem_id").
			Default(""),
		field.Int("step_index").
			Default(-1),
		field.String("concept_id").
			Default(""),
		field.Bool("reveal").
			Default(false),
		field.String("phase"),
		field.String("degraded").
			Default("").
			Comment("Why a fallback path was taken, if any"),
		field.Int64("latency_ms").
			Default(0),
	}
}

func (DecisionEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id"),
		index.Fields("action"),
	}
}
