package query

import (
	"maps"
	"slices"

	"github.com/syssam/pgdal/schema"
)

// Action is the operation of a command.
type Action uint8

// Command operations.
const (
	ActionInsert Action = iota
	ActionUpdate
	ActionDelete
	ActionRaw
)

var actionNames = [...]string{
	ActionInsert: "insert",
	ActionUpdate: "update",
	ActionDelete: "delete",
	ActionRaw:    "raw",
}

// String returns the name of the action.
func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "invalid"
}

// Command describes one mutation.
type Command struct {
	// ID identifies the command in the results of a batch, e.g. to look up
	// the identity generated by an insert.
	ID     string
	Action Action
	Entity *schema.Entity
	// Values holds the inserted values by property name.
	Values map[string]any
	// Updates holds the update assignments by property name.
	Updates map[string]Modification
	// MustAffectRows marks the command as failed when it affects no rows.
	MustAffectRows bool
	// Query supplies the condition, join and sort context of an update or delete.
	Query *Query
	// SQL and Params hold the text of a raw command.
	SQL    string
	Params map[string]any
}

// Insert returns an insert command for the given values.
func Insert(e *schema.Entity, values map[string]any) *Command {
	return &Command{Action: ActionInsert, Entity: e, Values: values}
}

// Update returns an update command for the rows matched by q. A nil query
// updates every row.
//
//	query.Update(accounts, query.From(accounts).Filter(query.EQ("id", 7))).
//	    Set("status", "closed").
//	    Calc("balance", query.Subtract, 10)
func Update(e *schema.Entity, q *Query) *Command {
	return &Command{Action: ActionUpdate, Entity: e, Query: q, Updates: make(map[string]Modification)}
}

// Delete returns a delete command for the rows matched by q.
func Delete(e *schema.Entity, q *Query) *Command {
	return &Command{Action: ActionDelete, Entity: e, Query: q}
}

// RawCommand returns a command executing the given SQL text as is.
func RawCommand(sql string, params map[string]any) *Command {
	return &Command{Action: ActionRaw, SQL: sql, Params: params}
}

// WithID sets the command identifier.
func (c *Command) WithID(id string) *Command {
	c.ID = id
	return c
}

// MustAffect marks the command as required to affect at least one row.
func (c *Command) MustAffect() *Command {
	c.MustAffectRows = true
	return c
}

// Set assigns a literal value to a field.
func (c *Command) Set(field string, v any) *Command {
	return c.Modify(field, Set(v))
}

// Calc assigns a value computed from the current column value.
func (c *Command) Calc(field string, op Operator, operand any) *Command {
	return c.Modify(field, Calculate(op, operand))
}

// Modify assigns a modification to a field.
func (c *Command) Modify(field string, m Modification) *Command {
	if c.Updates == nil {
		c.Updates = make(map[string]Modification)
	}
	c.Updates[field] = m
	return c
}

// Clone returns a shallow copy of the command with its maps copied.
func (c *Command) Clone() *Command {
	n := *c
	n.Values = maps.Clone(c.Values)
	n.Updates = maps.Clone(c.Updates)
	n.Params = maps.Clone(c.Params)
	n.Query = c.Query.Clone()
	return &n
}

// Commands is a convenience for building a command slice.
func Commands(cs ...*Command) []*Command {
	return slices.DeleteFunc(cs, func(c *Command) bool { return c == nil })
}
