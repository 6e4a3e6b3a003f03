// Package dialect defines the database dialect names and the driver
// contracts shared by the compilers and executors of pgdal.
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//
// Only the Postgres dialect ships a compiler (dialect/sql/pgsql). The
// contracts below are dialect independent so that another compiler can
// plug into the same batching and transaction layer.
//
// # Driver Interface
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # Usage
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/sql: driver, parameter sets, statements and observers
//   - dialect/sql/pgsql: the Postgres compiler and type mapper
//   - dialect/sql/batch: statement grouping and transactional execution
//   - dialect/sql/bulk: COPY based bulk loading
//   - dialect/sql/sqlerr: constraint error classification
package dialect
