package field

import "github.com/go-openapi/inflect"

// Descriptor holds the resolved metadata of a single entity field.
type Descriptor struct {
	Name       string // Property name used by queries and commands.
	Column     string // Physical column name.
	Type       Type
	Size       int  // Maximum length for string and binary types; 0 means unbounded.
	Fixed      bool // Render fixed-length CHAR(n) instead of VARCHAR(n).
	Nillable   bool
	Default    any // Static column default, rendered into DDL.
	PrimaryKey bool
	Identity   bool // Generated by the server on insert.
	ShardKey   bool // Participates in horizontal splitting of the entity.
	ReadOnly   bool // Computed by the server; never inserted nor updated.
	Comment    string
}

// Insertable reports if the field is written by an INSERT statement.
func (d *Descriptor) Insertable() bool {
	return !d.Identity && !d.ReadOnly
}

// Updatable reports if the field may appear in an UPDATE SET clause.
func (d *Descriptor) Updatable() bool {
	return !d.Identity && !d.ReadOnly && !d.PrimaryKey
}

// Builder is the fluent builder for field descriptors.
//
//	field.Int64("id").PrimaryKey().Identity()
//	field.String("name").Size(64)
//	field.Time("created_at").Default(Expr("now()"))
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: t}}
}

// Bool returns a new boolean field builder.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Int8 returns a new int8 field builder.
func Int8(name string) *Builder { return newBuilder(name, TypeInt8) }

// Int16 returns a new int16 field builder.
func Int16(name string) *Builder { return newBuilder(name, TypeInt16) }

// Int32 returns a new int32 field builder.
func Int32(name string) *Builder { return newBuilder(name, TypeInt32) }

// Int returns a new int field builder.
func Int(name string) *Builder { return newBuilder(name, TypeInt) }

// Int64 returns a new int64 field builder.
func Int64(name string) *Builder { return newBuilder(name, TypeInt64) }

// Uint64 returns a new uint64 field builder.
func Uint64(name string) *Builder { return newBuilder(name, TypeUint64) }

// Decimal returns a new arbitrary-precision decimal field builder.
func Decimal(name string) *Builder { return newBuilder(name, TypeDecimal) }

// Float32 returns a new single-precision float field builder.
func Float32(name string) *Builder { return newBuilder(name, TypeFloat32) }

// Float64 returns a new double-precision float field builder.
func Float64(name string) *Builder { return newBuilder(name, TypeFloat64) }

// Date returns a new calendar date field builder.
func Date(name string) *Builder { return newBuilder(name, TypeDate) }

// Time returns a new date-time field builder (without time zone).
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// TimeTZ returns a new date-time-with-offset field builder.
func TimeTZ(name string) *Builder { return newBuilder(name, TypeTimeTZ) }

// UUID returns a new UUID field builder.
func UUID(name string) *Builder { return newBuilder(name, TypeUUID) }

// Bytes returns a new binary field builder.
func Bytes(name string) *Builder { return newBuilder(name, TypeBytes) }

// String returns a new string field builder.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Duration returns a new time interval field builder.
func Duration(name string) *Builder { return newBuilder(name, TypeDuration) }

// JSON returns a new JSON document field builder.
func JSON(name string) *Builder { return newBuilder(name, TypeJSON) }

// Of returns a field builder of the given logical type.
func Of(name string, t Type) *Builder { return newBuilder(name, t) }

// Column sets the physical column name. Defaults to the snake_case property name.
func (b *Builder) Column(name string) *Builder {
	b.desc.Column = name
	return b
}

// Size sets the maximum length of a string or binary field.
func (b *Builder) Size(n int) *Builder {
	b.desc.Size = n
	return b
}

// Fixed forces a fixed-length string column.
func (b *Builder) Fixed() *Builder {
	b.desc.Fixed = true
	return b
}

// Nillable marks the column as nullable.
func (b *Builder) Nillable() *Builder {
	b.desc.Nillable = true
	return b
}

// Default sets a static column default.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// PrimaryKey marks the field as part of the primary key.
func (b *Builder) PrimaryKey() *Builder {
	b.desc.PrimaryKey = true
	return b
}

// Identity marks the field as server-generated on insert.
func (b *Builder) Identity() *Builder {
	b.desc.Identity = true
	return b
}

// ShardKey marks the field as a sharding key.
func (b *Builder) ShardKey() *Builder {
	b.desc.ShardKey = true
	return b
}

// ReadOnly marks the field as computed by the server.
func (b *Builder) ReadOnly() *Builder {
	b.desc.ReadOnly = true
	return b
}

// Comment sets the column comment.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor returns the resolved descriptor.
func (b *Builder) Descriptor() *Descriptor {
	if b.desc.Column == "" {
		b.desc.Column = ColumnName(b.desc.Name)
	}
	return b.desc
}

// ColumnName returns the default column name for a property name.
func ColumnName(property string) string {
	return inflect.Underscore(property)
}

// Expr is a raw SQL expression used as a column default, rendered verbatim.
//
//	field.Time("created_at").Default(field.Expr("now()"))
type Expr string
