package batch

import (
	"math"
	"strconv"
	"strings"

	"github.com/syssam/pgdal/dialect/sql"
)

// Group is an ordered run of statements executed together. Its members
// share one parameter namespace.
type Group struct {
	Statements []*sql.Statement
	Params     *sql.ParamSet
	// MustAffectRows is set when any member must affect rows.
	MustAffectRows bool
}

// SQL returns the text of the group: every member terminated by a
// semicolon, one per line.
func (g *Group) SQL() string {
	var b strings.Builder
	for i, s := range g.Statements {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.SQL)
		b.WriteByte(';')
	}
	return b.String()
}

// Alone reports if the group holds a single statement kept out of
// multi-statement groups.
func (g *Group) Alone() bool {
	return len(g.Statements) == 1 && g.Statements[0].PerformAlone
}

// Grouper splits statements into execution groups bounded by a number of
// statements and a number of parameters.
type Grouper struct {
	maxStatements int
	maxParams     int

	cur  *Group
	seq  int
	done []*Group
}

// NewGrouper returns a grouper with the given bounds. Non-positive bounds
// are unbounded.
func NewGrouper(maxStatements, maxParams int) *Grouper {
	return &Grouper{maxStatements: bound(maxStatements), maxParams: bound(maxParams)}
}

func bound(n int) int {
	if n <= 0 {
		return math.MaxInt
	}
	return max(n, 1)
}

// Group splits stmts into groups, preserving their order. A statement
// marked PerformAlone closes the open group and forms a group of its own.
// The input statements are not modified; members whose parameter names
// collide with the open group are renamed on a copy.
func (g *Grouper) Group(stmts []*sql.Statement) ([]*Group, error) {
	g.cur, g.seq, g.done = nil, 0, nil
	for _, s := range stmts {
		if s == nil {
			continue
		}
		if s.PerformAlone {
			g.flush()
			g.done = append(g.done, &Group{
				Statements:     []*sql.Statement{s},
				Params:         s.Params,
				MustAffectRows: s.MustAffectRows,
			})
			continue
		}
		if err := g.add(s); err != nil {
			return nil, err
		}
		if g.cur.Params.Len() >= g.maxParams || len(g.cur.Statements) >= g.maxStatements {
			g.flush()
		}
	}
	g.flush()
	return g.done, nil
}

func (g *Grouper) add(s *sql.Statement) error {
	if g.cur == nil {
		g.cur = &Group{Params: &sql.ParamSet{}}
	}
	if names := g.cur.Params.Collisions(s.Params); len(names) > 0 {
		c := *s
		c.Params = s.Params.Clone()
		for _, name := range names {
			if err := c.Rename(name, g.fresh(name, c.Params)); err != nil {
				return err
			}
		}
		s = &c
	}
	if err := g.cur.Params.Union(s.Params); err != nil {
		return err
	}
	g.cur.Statements = append(g.cur.Statements, s)
	g.cur.MustAffectRows = g.cur.MustAffectRows || s.MustAffectRows
	return nil
}

// fresh returns a name derived from name that is free in both the open
// group and the statement being added.
func (g *Grouper) fresh(name string, own *sql.ParamSet) string {
	for {
		g.seq++
		n := name + "_g" + strconv.Itoa(g.seq)
		if !g.cur.Params.Has(n) && !own.Has(n) {
			return n
		}
	}
}

func (g *Grouper) flush() {
	if g.cur == nil || len(g.cur.Statements) == 0 {
		return
	}
	g.done = append(g.done, g.cur)
	g.cur, g.seq = nil, 0
}
