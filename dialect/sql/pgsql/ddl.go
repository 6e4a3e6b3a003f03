package pgsql

import (
	"fmt"
	"strings"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/schema"
	"github.com/syssam/pgdal/schema/field"
)

// CreateTable returns the statements creating every physical table of e
// when it does not exist, followed by the column comments. Running them
// against an existing table changes nothing.
//
//	CREATE TABLE IF NOT EXISTS "users" ("id" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL,
//	    "name" VARCHAR(64) NOT NULL, PRIMARY KEY ("id"))
func (c *Compiler) CreateTable(e *schema.Entity) ([]*sql.Statement, error) {
	if err := e.Validate(); err != nil {
		return nil, pgdal.NewCompileError(e.Name, "create", err)
	}
	columns := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		col, err := c.columnDef(f)
		if err != nil {
			return nil, pgdal.NewCompileError(e.Name, "create", err)
		}
		columns = append(columns, col)
	}
	if pks := e.PrimaryKeys(); len(pks) > 0 {
		names := make([]string, len(pks))
		for i, pk := range pks {
			names[i] = c.Quote(pk.Column)
		}
		columns = append(columns, "PRIMARY KEY ("+strings.Join(names, ", ")+")")
	}
	var stmts []*sql.Statement
	for _, table := range e.Tables() {
		stmts = append(stmts, ddl(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", c.Quote(table), strings.Join(columns, ", "))))
		for _, f := range e.Fields {
			if f.Comment != "" {
				stmts = append(stmts, ddl(fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", c.Quote(table), c.Quote(f.Column), quoteString(f.Comment))))
			}
		}
	}
	return stmts, nil
}

// columnDef renders the definition of one column.
func (c *Compiler) columnDef(f *field.Descriptor) (string, error) {
	typ, err := ColumnType(f)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(c.Quote(f.Column))
	b.WriteByte(' ')
	b.WriteString(typ)
	if f.Identity {
		switch f.Type {
		case field.TypeInt16, field.TypeInt32, field.TypeInt, field.TypeInt64:
			b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
		case field.TypeUUID:
			if f.Default == nil {
				b.WriteString(" DEFAULT gen_random_uuid()")
			}
		default:
			return "", fmt.Errorf("%w: identity of type %s", pgdal.ErrUnsupported, f.Type)
		}
	}
	if !f.Nillable || f.PrimaryKey {
		b.WriteString(" NOT NULL")
	}
	if f.Default != nil {
		lit, err := literal(f.Default)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", f.Column, err)
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}
	return b.String(), nil
}

func ddl(text string) *sql.Statement {
	stmt := sql.NewStatement(text, nil)
	stmt.PerformAlone = true
	return stmt
}
