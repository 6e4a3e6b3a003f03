package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgdal/dialect"
)

func mockDriver(t *testing.T, opts ...Option) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(dialect.Postgres, db, opts...), mock
}

func TestDriver_Dialect(t *testing.T) {
	for driver, want := range map[string]string{
		dialect.Postgres: dialect.Postgres,
		"postgres-otel":  dialect.Postgres,
		"pgx":            "pgx",
	} {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		assert.Equal(t, want, OpenDB(driver, db).Dialect(), driver)
		db.Close()
	}
}

func TestConn_InvalidArguments(t *testing.T) {
	drv, mock := mockDriver(t)
	err := drv.Exec(context.Background(), "DELETE FROM tags", "not a slice", nil)
	require.ErrorContains(t, err, "expect []any for args")
	err = drv.Exec(context.Background(), "DELETE FROM tags", []any{}, new(int))
	require.ErrorContains(t, err, "expect *sql.Result")
	err = drv.Query(context.Background(), "SELECT 1", []any{}, &sql.Rows{})
	require.ErrorContains(t, err, "expect *sql.Rows")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContextVars(t *testing.T) {
	ctx := WithIntVar(WithVar(context.Background(), "lock_timeout", "1s"), "statement_timeout", 500)
	v, ok := VarFromContext(ctx, "statement_timeout")
	require.True(t, ok)
	assert.Equal(t, "500", v)
	v, ok = VarFromContext(ctx, "lock_timeout")
	require.True(t, ok)
	assert.Equal(t, "1s", v)
	_, ok = VarFromContext(ctx, "search_path")
	assert.False(t, ok)
	_, ok = VarFromContext(context.Background(), "lock_timeout")
	assert.False(t, ok)
}

func TestSessionVars(t *testing.T) {
	t.Run("Pool", func(t *testing.T) {
		drv, mock := mockDriver(t)
		mock.ExpectExec(`SET statement_timeout = '100'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`SET statement_timeout = '200'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT "name" FROM "tags"`).WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("go"))
		mock.ExpectExec(`RESET statement_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))

		ctx := WithIntVar(WithIntVar(context.Background(), "statement_timeout", 100), "statement_timeout", 200)
		var rows Rows
		require.NoError(t, drv.Query(ctx, `SELECT "name" FROM "tags"`, []any{}, &rows))
		maps, err := ScanMaps(rows)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"name": "go"}}, maps)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Tx", func(t *testing.T) {
		drv, mock := mockDriver(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout = '1s'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "tags"`).WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		var res Result
		require.NoError(t, tx.Exec(WithVar(context.Background(), "lock_timeout", "1s"), `DELETE FROM "tags"`, []any{}, &res))
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Escaped", func(t *testing.T) {
		drv, mock := mockDriver(t)
		mock.ExpectExec(`SET application_name = 'it''s pgdal'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "tags"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`RESET application_name`).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, drv.Exec(WithVar(context.Background(), "application_name", "it's pgdal"), `DELETE FROM "tags"`, []any{}, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidName", func(t *testing.T) {
		drv, mock := mockDriver(t)
		for _, name := range []string{"", "9lives", "a b", "x; DROP TABLE tags; --", "a'b"} {
			err := drv.Exec(WithVar(context.Background(), name, "1"), `DELETE FROM "tags"`, []any{}, nil)
			require.ErrorContains(t, err, "invalid session variable name", name)
		}
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SetFails", func(t *testing.T) {
		drv, mock := mockDriver(t)
		mock.ExpectExec(`SET statement_timeout = '-'`).WillReturnError(errors.New("invalid value"))

		err := drv.Query(WithVar(context.Background(), "statement_timeout", "-"), "SELECT 1", []any{}, &Rows{})
		require.ErrorContains(t, err, "set session vars")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSession(t *testing.T) {
	t.Run("VarsResetKeepConnection", func(t *testing.T) {
		drv, mock := mockDriver(t)
		mock.ExpectExec(`SET statement_timeout = '50'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "tags" ("name") VALUES ($1)`).WithArgs("go").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`RESET statement_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT(*) AS "n" FROM "tags"`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))

		s, err := drv.Session(context.Background())
		require.NoError(t, err)
		assert.Equal(t, dialect.Postgres, s.Dialect())

		var res Result
		err = s.Exec(WithIntVar(context.Background(), "statement_timeout", 50), `INSERT INTO "tags" ("name") VALUES ($1)`, []any{"go"}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		var rows Rows
		require.NoError(t, s.Query(context.Background(), `SELECT COUNT(*) AS "n" FROM "tags"`, []any{}, &rows))
		maps, err := ScanMaps(rows)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"n": int64(1)}}, maps)
		require.NoError(t, s.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Tx", func(t *testing.T) {
		drv, mock := mockDriver(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "tags"`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectRollback()

		s, err := drv.Session(context.Background())
		require.NoError(t, err)
		defer s.Close()
		tx, err := s.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), `DELETE FROM "tags"`, []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Canceled", func(t *testing.T) {
		drv, _ := mockDriver(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := drv.Session(ctx)
		require.ErrorContains(t, err, "acquire connection")
	})
}

func TestPrepare(t *testing.T) {
	drv, mock := mockDriver(t)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`COPY "tags" ("name") FROM STDIN`)
	prep.ExpectExec().WithArgs("go").WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := drv.Session(context.Background())
	require.NoError(t, err)
	defer s.Close()
	tx, err := s.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	stmt, err := tx.Prepare(context.Background(), `COPY "tags" ("name") FROM STDIN`)
	require.NoError(t, err)
	_, err = stmt.Exec("go")
	require.NoError(t, err)
	res, err := stmt.Exec()
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = Conn{ExecQuerier: execOnly{}}.Prepare(context.Background(), "SELECT 1")
	require.ErrorContains(t, err, "cannot prepare statements")
}

type execOnly struct{ ExecQuerier }

func TestObserver(t *testing.T) {
	var events []Event
	stats := NewQueryStats()
	drv, mock := mockDriver(t, WithObserver(Observers{
		stats,
		ObserverFunc(func(_ context.Context, e Event) { events = append(events, e) }),
	}))

	mock.ExpectExec(`INSERT INTO "tags" ("name") VALUES ($1)`).WithArgs("go").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT "id" FROM "tags"`).WillReturnError(errors.New("boom"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tags" SET "name" = $1`).WithArgs("rust").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))

	ctx := context.Background()
	require.NoError(t, drv.Exec(ctx, `INSERT INTO "tags" ("name") VALUES ($1)`, []any{"go"}, nil))
	require.Error(t, drv.Query(ctx, `SELECT "id" FROM "tags"`, []any{}, &Rows{}))

	s, err := drv.Session(ctx)
	require.NoError(t, err)
	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, `UPDATE "tags" SET "name" = $1`, []any{"rust"}, nil))
	require.NoError(t, tx.Commit())
	var rows Rows
	require.NoError(t, s.Query(ctx, `SELECT 1`, []any{}, &rows))
	require.NoError(t, rows.Close())
	require.NoError(t, s.Close())
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, events, 4)
	assert.Equal(t, []any{"go"}, events[0].Args)
	assert.False(t, events[0].Rows)
	assert.True(t, events[1].Rows)
	assert.EqualError(t, events[1].Err, "boom")
	assert.Equal(t, `UPDATE "tags" SET "name" = $1`, events[2].Query, "transaction on a session")
	assert.Equal(t, `SELECT 1`, events[3].Query, "session")
	assert.NoError(t, events[3].Err)

	snap := stats.Stats()
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.Errors)
}

func TestScanMaps(t *testing.T) {
	drv, mock := mockDriver(t)
	raw := []byte(`{"a":1}`)
	mock.ExpectQuery(`SELECT "id", "meta", "note" FROM "tags"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "meta", "note"}).
			AddRow(int64(1), raw, nil).
			AddRow(int64(2), nil, "x"),
	)

	var rows Rows
	require.NoError(t, drv.Query(context.Background(), `SELECT "id", "meta", "note" FROM "tags"`, []any{}, &rows))
	maps, err := ScanMaps(rows)
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Equal(t, []byte(`{"a":1}`), maps[0]["meta"])
	raw[0] = '['
	assert.Equal(t, []byte(`{"a":1}`), maps[0]["meta"], "byte values do not alias driver buffers")
	assert.Nil(t, maps[0]["note"])
	assert.Contains(t, maps[1], "meta")
	assert.Equal(t, "x", maps[1]["note"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanMaps_RowError(t *testing.T) {
	drv, mock := mockDriver(t)
	mock.ExpectQuery(`SELECT "id" FROM "tags"`).WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)).RowError(1, errors.New("broken row")),
	)
	var rows Rows
	require.NoError(t, drv.Query(context.Background(), `SELECT "id" FROM "tags"`, []any{}, &rows))
	_, err := ScanMaps(rows)
	require.EqualError(t, err, "broken row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanResultSets(t *testing.T) {
	drv, mock := mockDriver(t)
	mock.ExpectQuery("SELECT 1; SELECT 2").WillReturnRows(
		sqlmock.NewRows([]string{"a"}).AddRow(int64(1)),
		sqlmock.NewRows([]string{"b"}).AddRow([]byte("x")).AddRow([]byte("y")),
	)
	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT 1; SELECT 2", []any{}, &rows))
	sets, err := ScanResultSets(rows)
	require.NoError(t, err)
	assert.Equal(t, [][]map[string]any{
		{{"a": int64(1)}},
		{{"b": []byte("x")}, {"b": []byte("y")}},
	}, sets)
	require.NoError(t, mock.ExpectationsWereMet())
}
