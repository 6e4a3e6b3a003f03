package pgsql

import (
	"fmt"
	"slices"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/query"
	"github.com/syssam/pgdal/schema/field"
)

func (c *Compiler) insert(ctx *sql.Context, cmd *query.Command) ([]*sql.Statement, error) {
	e := cmd.Entity
	if e == nil {
		return nil, fmt.Errorf("insert has no entity")
	}
	id := e.Identity()
	if id != nil && len(e.ShardKeys()) > 0 {
		return nil, pgdal.ErrIdentityShardKey
	}
	for name := range cmd.Values {
		if _, err := e.MustField(name); err != nil {
			return nil, err
		}
	}
	var fields []*field.Descriptor
	for _, f := range e.InsertFields() {
		if _, ok := cmd.Values[f.Name]; ok {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}
	out := cmd.ID
	var stmts []*sql.Statement
	for _, table := range e.Tables() {
		b := c.builder(ctx)
		b.WriteString("INSERT INTO ").Ident(table).WriteString(" (")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(f.Column)
		}
		b.WriteString(") VALUES (")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			v, err := Value(f, cmd.Values[f.Name])
			b.AddError(err)
			b.Arg(f.Name, v)
		}
		b.WriteByte(')')
		if id != nil {
			if out == "" {
				out = ctx.NextParam("identity")
			}
			b.WriteString(" RETURNING ").Ident(id.Column)
			b.Out(sql.Param{Name: out, Type: id.Type})
		}
		stmt, err := b.Statement()
		if err != nil {
			return nil, err
		}
		stmt.PerformAlone = id != nil
		stmt.Returns = id != nil
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (c *Compiler) update(ctx *sql.Context, cmd *query.Command) ([]*sql.Statement, error) {
	e := cmd.Entity
	if e == nil {
		return nil, fmt.Errorf("update has no entity")
	}
	if len(cmd.Updates) == 0 {
		return nil, pgdal.ErrNoUpdateFields
	}
	for name := range cmd.Updates {
		f, err := e.MustField(name)
		if err != nil {
			return nil, err
		}
		if !f.Updatable() {
			return nil, fmt.Errorf("%w: field %s.%s is not updatable", pgdal.ErrUnsupported, e.Name, name)
		}
	}
	// Assignments follow the field declaration order.
	var fields []*field.Descriptor
	for _, f := range e.Fields {
		if _, ok := cmd.Updates[f.Name]; ok {
			fields = append(fields, f)
		}
	}
	return c.mutate(ctx, cmd, func(b *sql.Builder, table string) {
		b.WriteString("UPDATE ").Ident(table).WriteString(" SET ")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			m := cmd.Updates[f.Name]
			v, err := Value(f, m.Value)
			b.AddError(err)
			b.Ident(f.Column).WriteString(" = ")
			switch m.Kind {
			case query.ModSet:
				b.Arg(f.Name, v)
			case query.ModCalculate:
				sym, err := operator(m.Operator)
				b.AddError(err)
				b.Column(table, f.Column).WriteString(" " + sym + " ").Arg(f.Name, v)
			default:
				b.AddError(fmt.Errorf("%w: modification kind %d", pgdal.ErrUnsupported, m.Kind))
			}
		}
	}, " FROM ")
}

func (c *Compiler) delete(ctx *sql.Context, cmd *query.Command) ([]*sql.Statement, error) {
	if cmd.Entity == nil {
		return nil, fmt.Errorf("delete has no entity")
	}
	return c.mutate(ctx, cmd, func(b *sql.Builder, table string) {
		b.WriteString("DELETE FROM ").Ident(table)
	}, " USING ")
}

// mutate renders one statement per physical table of the command entity.
// head writes the statement up to its condition. Conditions that need a
// join, a prelude or paging are rewritten into a derived key set listed
// after keyword (FROM or USING) and matched on the primary key.
func (c *Compiler) mutate(ctx *sql.Context, cmd *query.Command, head func(*sql.Builder, string), keyword string) ([]*sql.Statement, error) {
	e := cmd.Entity
	q := cmd.Query.Clone()
	if q == nil {
		q = query.From(e)
	}
	if q.Entity == nil {
		q.Entity = e
	}
	rewrite := needsRewrite(q)
	var pks []*field.Descriptor
	if rewrite {
		if pks = e.PrimaryKeys(); len(pks) == 0 {
			return nil, fmt.Errorf("%w: %s", pgdal.ErrMissingPrimaryKey, e.Name)
		}
	}
	var stmts []*sql.Statement
	for _, table := range e.Tables() {
		b := c.builder(ctx)
		if !rewrite {
			head(b, table)
			c.where(b, newScope(e, table), q.Where)
		} else {
			c.with(b, q.With)
			head(b, table)
			alias := ctx.NextAlias()
			b.WriteString(keyword + "(")
			c.derivedKeys(b, q, table, pks)
			b.WriteString(") AS ").Ident(alias).WriteString(" WHERE ")
			for i, pk := range pks {
				if i > 0 {
					b.WriteString(" AND ")
				}
				b.Column(table, pk.Column).WriteString(" = ").Column(alias, pk.Column)
			}
		}
		stmt, err := b.Statement()
		if err != nil {
			return nil, err
		}
		stmt.HasPreScript = q.HasPreScript()
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// derivedKeys renders the select projecting the primary keys of the rows
// of table matched by q. Branches reading the command entity read table
// only, so keys and paging never span the other shards.
func (c *Compiler) derivedKeys(b *sql.Builder, q *query.Query, table string, pks []*field.Descriptor) {
	e := q.Entity
	keys := q.Clone()
	shard := e
	if slices.Contains(e.Tables(), table) {
		shard = e.Shard(table)
	}
	keys.Entity = shard
	keys.With, keys.Shape, keys.Aggregate, keys.WithTotal = nil, query.Rows, nil, false
	keys.Fields = make([]string, len(pks))
	for i, pk := range pks {
		keys.Fields[i] = pk.Name
	}
	for i, cm := range keys.Combine {
		if cm.Query != nil && cm.Query.Entity == e {
			branch := cm.Query.Clone()
			branch.Entity = shard
			keys.Combine[i].Query = branch
		}
	}
	c.rows(b, keys, true)
}

// needsRewrite reports if a mutation condition cannot be expressed by a
// single-table UPDATE or DELETE.
func needsRewrite(q *query.Query) bool {
	return q.HasJoin() || q.HasPreScript() || q.Skip > 0 || q.Take > 0 || len(q.Combine) > 0
}

