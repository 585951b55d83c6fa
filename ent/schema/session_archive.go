package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SessionArchive keeps the final state of an ended session.
type SessionArchive struct {
	ent.Schema
}

func (SessionArchive) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			NotEmpty(),
		field.Time("archived_at").
			Default(time.Now),
		field.Int("attempts").
			Default(0),
		field.Int("problems_seen").
			Default(0),
		field.JSON("data", map[string]any{}).
			Comment("Full session state as JSON"),
	}
}

func (SessionArchive) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id"),
		index.Fields("archived_at"),
	}
}
