package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"entgo.io/ent"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/abhisek/mathguide/ent/schema"
)

// Journal table names, derived from the ent schema type names.
const (
	attemptTable  = "attempt_events"
	decisionTable = "decision_events"
	llmTable      = "llm_request_events"
	archiveTable  = "session_archives"
)

func migrate(ctx context.Context, drv *entsql.Driver) error {
	tables, err := Tables()
	if err != nil {
		return err
	}
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	return m.Create(ctx, tables...)
}

// Tables builds the migration tables from the ent schema declarations.
func Tables() ([]*schema.Table, error) {
	all := entschema.All()
	out := make([]*schema.Table, 0, len(all))
	for _, s := range all {
		t, err := tableFor(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func tableFor(s ent.Interface) (*schema.Table, error) {
	typeName := reflect.TypeOf(s).Name()
	t := schema.NewTable(tableName(typeName)).
		AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})

	var fields []ent.Field
	var indexes []ent.Index
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typeName, d.Name, d.Err)
		}
		col := &schema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Unique:   d.Unique,
			Nullable: d.Optional || d.Nillable,
			Size:     int64(d.Size),
			Comment:  d.Comment,
		}
		// Function defaults such as time.Now apply at insert time, not in DDL.
		if d.Default != nil && reflect.TypeOf(d.Default).Kind() != reflect.Func {
			col.Default = d.Default
		}
		t.AddColumn(col)
	}

	prefix := strings.ToLower(typeName)
	for _, ix := range indexes {
		d := ix.Descriptor()
		for _, name := range d.Fields {
			if _, ok := t.Column(name); !ok {
				return nil, fmt.Errorf("%s: index on unknown field %q", typeName, name)
			}
		}
		t.AddIndex(prefix+"_"+strings.Join(d.Fields, "_"), d.Unique, d.Fields)
	}
	return t, nil
}

// tableName maps a schema type name to its plural snake-case table name,
// keeping acronyms together: LLMRequestEvent becomes llm_request_events.
func tableName(typeName string) string {
	rs := []rune(typeName)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(rs[i-1])
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if prevLower || (unicode.IsUpper(rs[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String() + "s"
}
