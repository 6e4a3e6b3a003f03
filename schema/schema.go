package schema

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/schema/field"
)

// Mixin is a reusable set of fields shared by several entities.
type Mixin interface {
	Fields() []*field.Builder
}

// Entity is the metadata of one logical entity: its name, the physical
// tables it is stored in and its declared fields, in declaration order.
type Entity struct {
	Name   string
	Table  string   // Logical table name. Defaults to the pluralized snake_case name.
	Shards []string // Physical tables of a horizontally split entity.
	Fields []*field.Descriptor

	byName map[string]*field.Descriptor
}

// New returns a new entity with the given name and fields.
//
//	schema.New("User",
//	    field.Int64("id").PrimaryKey().Identity(),
//	    field.String("name").Size(64),
//	)
func New(name string, fields ...*field.Builder) *Entity {
	e := &Entity{Name: name}
	return e.Add(fields...)
}

// TableName sets the logical table name.
func (e *Entity) TableName(name string) *Entity {
	e.Table = name
	return e
}

// Split stores the entity in the given physical tables.
func (e *Entity) Split(tables ...string) *Entity {
	e.Shards = append(e.Shards, tables...)
	return e
}

// Mixin appends the fields of the given mixins, in order.
func (e *Entity) Mixin(mixins ...Mixin) *Entity {
	for _, m := range mixins {
		e.Add(m.Fields()...)
	}
	return e
}

// Add appends fields to the entity.
func (e *Entity) Add(fields ...*field.Builder) *Entity {
	for _, f := range fields {
		e.Fields = append(e.Fields, f.Descriptor())
	}
	e.byName = nil
	return e
}

// Label returns the table name used in SQL for the logical entity.
func (e *Entity) Label() string {
	if e.Table != "" {
		return e.Table
	}
	return inflect.Underscore(inflect.Pluralize(e.Name))
}

// Tables returns the physical tables of the entity. A non-split entity is
// stored in a single table named after its label.
func (e *Entity) Tables() []string {
	if len(e.Shards) > 0 {
		return e.Shards
	}
	return []string{e.Label()}
}

// Shard returns a copy of e stored in the single physical table given,
// still labeled as e in SQL.
func (e *Entity) Shard(table string) *Entity {
	return &Entity{Name: e.Name, Table: e.Label(), Shards: []string{table}, Fields: e.Fields}
}

// Field returns the field with the given property name.
func (e *Entity) Field(name string) (*field.Descriptor, bool) {
	if e.byName == nil {
		e.byName = make(map[string]*field.Descriptor, len(e.Fields))
		for _, f := range e.Fields {
			e.byName[f.Name] = f
		}
	}
	f, ok := e.byName[name]
	return f, ok
}

// MustField is like Field but returns an error wrapping pgdal.ErrUnknownField.
func (e *Entity) MustField(name string) (*field.Descriptor, error) {
	f, ok := e.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", pgdal.ErrUnknownField, e.Name, name)
	}
	return f, nil
}

// PrimaryKeys returns the primary-key fields in declaration order.
func (e *Entity) PrimaryKeys() []*field.Descriptor {
	return e.filter(func(f *field.Descriptor) bool { return f.PrimaryKey })
}

// QueryFields returns every field that can be projected by a SELECT.
func (e *Entity) QueryFields() []*field.Descriptor {
	return e.Fields
}

// InsertFields returns the fields written by an INSERT statement.
func (e *Entity) InsertFields() []*field.Descriptor {
	return e.filter((*field.Descriptor).Insertable)
}

// ShardKeys returns the sharding-key fields.
func (e *Entity) ShardKeys() []*field.Descriptor {
	return e.filter(func(f *field.Descriptor) bool { return f.ShardKey })
}

// Identity returns the server-generated identity field, if any.
func (e *Entity) Identity() *field.Descriptor {
	for _, f := range e.Fields {
		if f.Identity {
			return f
		}
	}
	return nil
}

// DefaultOrder returns the field used for deterministic ordering when a
// query gives none: the first primary key, or the first declared field.
func (e *Entity) DefaultOrder() *field.Descriptor {
	if pks := e.PrimaryKeys(); len(pks) > 0 {
		return pks[0]
	}
	if len(e.Fields) > 0 {
		return e.Fields[0]
	}
	return nil
}

// KeyFields returns the minimal field set identifying a row: the primary
// keys, or all query fields when the entity has none.
func (e *Entity) KeyFields() []*field.Descriptor {
	if pks := e.PrimaryKeys(); len(pks) > 0 {
		return pks
	}
	return e.QueryFields()
}

// Validate checks the entity declaration.
func (e *Entity) Validate() error {
	if len(e.Fields) == 0 {
		return fmt.Errorf("schema: entity %s has no fields", e.Name)
	}
	var identities int
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if !f.Type.Valid() {
			return fmt.Errorf("%w: %s.%s has type %s", pgdal.ErrUnsupported, e.Name, f.Name, f.Type)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema: entity %s declares field %q twice", e.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Identity {
			identities++
		}
	}
	if identities > 1 {
		return fmt.Errorf("schema: entity %s declares %d identity fields", e.Name, identities)
	}
	if identities == 1 && len(e.ShardKeys()) > 0 {
		return fmt.Errorf("%w: entity %s", pgdal.ErrIdentityShardKey, e.Name)
	}
	return nil
}

func (e *Entity) filter(keep func(*field.Descriptor) bool) []*field.Descriptor {
	var fs []*field.Descriptor
	for _, f := range e.Fields {
		if keep(f) {
			fs = append(fs, f)
		}
	}
	return fs
}
