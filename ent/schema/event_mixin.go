// Package schema declares the journal tables. The store package turns these
// declarations into migration tables at startup.
package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// All lists every journal schema in migration order.
func All() []ent.Interface {
	return []ent.Interface{
		AttemptEvent{},
		DecisionEvent{},
		LLMRequestEvent{},
		SessionArchive{},
	}
}

// JournalMixin adds the ordering columns every journal row carries: the
// shared sequence number and the time the row was written.
type JournalMixin struct {
	mixin.Schema
}

func (JournalMixin) Fields() []ent.Field {
	seq := field.Int64("sequence").Unique().Immutable()
	at := field.Time("timestamp").Default(time.Now).Immutable().Comment("UTC")
	return []ent.Field{seq, at}
}

func (JournalMixin) Indexes() []ent.Index {
	return []ent.Index{index.Fields("timestamp")}
}
