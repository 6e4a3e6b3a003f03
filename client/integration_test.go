//go:build integration

package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/syssam/pgdal/dialect/sql/batch"
	"github.com/syssam/pgdal/dialect/sql/bulk"
	"github.com/syssam/pgdal/query"
	"github.com/syssam/pgdal/schema"
	"github.com/syssam/pgdal/schema/field"
	"github.com/syssam/pgdal/schema/mixin"
)

func posts() *schema.Entity {
	return schema.New("Post").Mixin(mixin.ID{}).Add(
		field.Int64("author_id"),
		field.String("title"),
	)
}

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	pg, err := postgres.Run(ctx, "postgres:16",
		postgres.WithDatabase("pgdal"),
		postgres.WithUsername("pgdal"),
		postgres.WithPassword("pgdal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })
	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestIntegration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	c, err := Open(dsn, nil)
	require.NoError(t, err)
	defer c.Close()
	lenient, err := Open(dsn, []Option{WithTxPolicy(batch.TxNever)})
	require.NoError(t, err)
	defer lenient.Close()

	require.NoError(t, c.Migrate(ctx, users(), posts()))
	// Migrations are idempotent.
	require.NoError(t, c.Migrate(ctx, users()))

	reset := func(t *testing.T) {
		_, err := c.Script(ctx, `TRUNCATE "users", "posts" RESTART IDENTITY`, nil)
		require.NoError(t, err)
	}
	count := func(t *testing.T) int64 {
		n, err := c.Count(ctx, query.From(users()))
		require.NoError(t, err)
		return n
	}
	insert := func(name string, age int) *query.Command {
		return query.Insert(users(), map[string]any{"name": name, "age": age})
	}
	missing := func() *query.Command {
		return query.Update(users(), query.From(users()).Filter(query.EQ("id", 1000))).Set("age", 1).MustAffect()
	}

	t.Run("Atomicity", func(t *testing.T) {
		reset(t)
		res, err := c.Exec(ctx, insert("a", 1), missing(), insert("b", 2))
		require.NoError(t, err)
		assert.Zero(t, res.RowsAffected)
		assert.Zero(t, count(t))
	})

	t.Run("Leniency", func(t *testing.T) {
		reset(t)
		res, err := lenient.Exec(ctx, insert("a", 1), missing(), insert("b", 2))
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.RowsAffected)
		assert.Equal(t, int64(2), count(t))
	})

	t.Run("Identities", func(t *testing.T) {
		reset(t)
		res, err := c.Exec(ctx, insert("a", 1).WithID("a"), insert("b", 2).WithID("b"))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": int64(1), "b": int64(2)}, res.Identities)
	})

	t.Run("JoinDelete", func(t *testing.T) {
		reset(t)
		_, err := c.Exec(ctx, insert("a", 1), insert("b", 2), insert("c", 3))
		require.NoError(t, err)
		_, err = c.Exec(ctx,
			query.Insert(posts(), map[string]any{"author_id": 1, "title": "spam"}),
			query.Insert(posts(), map[string]any{"author_id": 2, "title": "ham"}),
			query.Insert(posts(), map[string]any{"author_id": 3, "title": "spam"}),
		)
		require.NoError(t, err)

		spammers := query.From(users()).
			Join(query.Join{Entity: posts(), Alias: "p", On: []query.On{{Left: "id", Right: "author_id"}}}).
			Filter(query.EQ("p.title", "spam"))
		matched, err := c.Count(ctx, spammers)
		require.NoError(t, err)
		res, err := c.Exec(ctx, query.Delete(users(), spammers))
		require.NoError(t, err)
		assert.Equal(t, matched, res.RowsAffected)
		rows, err := c.Query(ctx, query.From(users()).Select("name"))
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"name": "b"}}, rows)
	})

	t.Run("Page", func(t *testing.T) {
		reset(t)
		_, err := c.Exec(ctx, insert("a", 1), insert("b", 2), insert("c", 3))
		require.NoError(t, err)
		p, err := c.Page(ctx, query.From(users()).Select("name").OrderBy(query.Asc("age")).Page(2, 2))
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.Total)
		assert.Equal(t, []map[string]any{{"name": "c", "age": int64(3)}}, p.Rows)

		p, err = c.Page(ctx, query.From(users()).Page(10, 2))
		require.NoError(t, err)
		assert.Empty(t, p.Rows)
		assert.Equal(t, int64(3), p.Total)
	})

	t.Run("BulkAtomicity", func(t *testing.T) {
		reset(t)
		n, err := c.Load(ctx, "users", []string{"name", "age"}, bulk.Rows([][]any{{"a", 1}, {"b", "x"}, {"c", 3}}))
		require.Error(t, err)
		assert.Zero(t, n)
		assert.Zero(t, count(t))

		n, err = c.Load(ctx, "users", []string{"name", "age"}, bulk.Rows([][]any{{"a", 1}, {"b", 2}}))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, int64(2), count(t))
	})
}
