// Package field describes the fields of an entity: their logical type,
// physical column and the flags the SQL compiler consults.
//
// Column names default to the snake_case form of the property name:
//
//	field.Int64("UserID")     // column: user_id
//	field.String("email")     // column: email
//
// # Field Types
//
//	field.Bool("active")               // BOOLEAN
//	field.Int16("rank")                // SMALLINT
//	field.Int32("age")                 // INTEGER
//	field.Int64("id")                  // BIGINT
//	field.Uint64("hash")               // NUMERIC(20,0)
//	field.Decimal("price")             // NUMERIC
//	field.Float64("score")             // DOUBLE PRECISION
//	field.Date("birthday")             // DATE
//	field.Time("created_at")           // TIMESTAMP WITHOUT TIME ZONE
//	field.TimeTZ("seen_at")            // TIMESTAMP WITH TIME ZONE
//	field.UUID("tenant")               // UUID
//	field.Bytes("blob")                // BYTEA
//	field.String("name").Size(64)      // VARCHAR(64)
//	field.Duration("ttl")              // INTERVAL
//
// # Field Options
//
//	field.Int64("id").
//	    PrimaryKey().   // part of PRIMARY KEY (...)
//	    Identity()      // generated by the server, returned after insert
//
//	field.UUID("tenant").ShardKey()    // horizontal split key
//	field.String("code").Size(3).Fixed() // CHAR(3)
//	field.Time("updated_at").ReadOnly()  // never written by commands
//
// TypeOf infers the logical type of a Go value; it is used to type bound
// parameters.
package field
