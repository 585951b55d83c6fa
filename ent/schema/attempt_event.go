package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AttemptEvent records one verified student submission.
type AttemptEvent struct {
	ent.Schema
}

func (AttemptEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{JournalMixin{}}
}

func (AttemptEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			NotEmpty(),
		field.String("problem_id"),
		field.Int("attempt_index").
			Comment("Position in the session's attempt history"),
		field.Text("input"),
		field.String("status").
			Comment("Verdict status name"),
		field.Int("matched_step").
			Default(-1),
		field.String("category").
			Default(""),
		field.Text("normalized").
			Default(""),
		field.Int("hint_level").
			Default(0).
			Comment("Hint level in effect when submitted"),
	}
}

func (AttemptEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id"),
		index.Fields("problem_id"),
		index.Fields("category"),
	}
}
