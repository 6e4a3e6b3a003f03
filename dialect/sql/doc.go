// Package sql provides the dialect independent SQL layer of pgdal: named
// parameter sets, compiled statements, the translation context shared by a
// compilation call, and the driver wrapping database/sql.
//
// # Parameters
//
// Compilers write parameters as ":name" and collect their values in a
// ParamSet. Names handed out by a Context carry a sequence suffix so that
// statements compiled in one call can be grouped without renaming:
//
//	ctx := sql.NewContext()
//	ctx.NextParam("age")  // age_1
//	ctx.NextParam("age")  // age_2
//
// Bind turns the named form into the positional form understood by the
// driver:
//
//	text, args, err := sql.Bind("SELECT * FROM users WHERE age > :age_1", params)
//	// SELECT * FROM users WHERE age > $1
//
// Quoted literals, quoted identifiers, comments and "::" casts are never
// treated as parameters.
//
// # Builder
//
// Builder is the low-level string builder compilers render into:
//
//	b := sql.NewBuilder(ctx, pq.QuoteIdentifier)
//	b.WriteString("SELECT * FROM ").Ident("users").
//	    WriteString(" WHERE ").Ident("age").WriteString(" > ").Arg("age", 18)
//	stmt, err := b.Statement()
//
// # Sessions
//
// Driver.Session pins a pooled connection. The batch executor and the bulk
// loader run every statement of one call on the same session and release
// it when done.
//
// # Session Variables
//
//	ctx = sql.WithVar(ctx, "statement_timeout", "5s")
//
// The variables are SET before each statement and RESET before a pooled
// connection is released.
//
// # Observers
//
// WithObserver attaches an Observer to the driver. QueryStats counts
// statements (and is a prometheus.Collector), LogObserver logs them with
// log/slog.
package sql
