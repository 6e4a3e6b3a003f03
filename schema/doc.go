// Package schema holds the entity metadata the SQL compiler consumes.
//
// An Entity names its logical table, the physical tables it is split into
// (if any) and its fields in declaration order. Declaration order is
// significant: INSERT column lists, SET clauses and default projections
// follow it.
//
//	users := schema.New("User",
//	    field.Int64("id").PrimaryKey().Identity(),
//	    field.String("name").Size(64),
//	    field.Int32("age").Nillable(),
//	).Mixin(mixin.Time{})
//
//	users.Label()   // "users"
//	users.Tables()  // ["users"]
//
// A split entity is stored in several physical tables sharing one layout:
//
//	events := schema.New("Event", ...).Split("events_2024", "events_2025")
package schema
