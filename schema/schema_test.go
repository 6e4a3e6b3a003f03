package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/schema"
	"github.com/syssam/pgdal/schema/field"
	"github.com/syssam/pgdal/schema/mixin"
)

func TestEntity(t *testing.T) {
	users := schema.New("User",
		field.Int64("id").PrimaryKey().Identity(),
		field.String("name").Size(64),
		field.Int32("age").Nillable(),
	).Mixin(mixin.Time{})
	require.NoError(t, users.Validate())

	assert.Equal(t, "users", users.Label())
	assert.Equal(t, []string{"users"}, users.Tables())
	require.Len(t, users.Fields, 5)
	assert.Equal(t, "created_at", users.Fields[3].Column)

	f, ok := users.Field("name")
	require.True(t, ok)
	assert.Equal(t, field.TypeString, f.Type)
	_, ok = users.Field("missing")
	assert.False(t, ok)
	_, err := users.MustField("missing")
	assert.True(t, errors.Is(err, pgdal.ErrUnknownField))

	assert.Equal(t, "id", users.Identity().Name)
	assert.Equal(t, "id", users.DefaultOrder().Name)
	require.Len(t, users.PrimaryKeys(), 1)
	assert.Len(t, users.KeyFields(), 1)
	assert.Len(t, users.InsertFields(), 4)
	assert.Len(t, users.QueryFields(), 5)
	assert.Empty(t, users.ShardKeys())
}

func TestEntity_TableName(t *testing.T) {
	e := schema.New("OrderItem", field.Int("qty"))
	assert.Equal(t, "order_items", e.Label())
	e.TableName("line_items")
	assert.Equal(t, "line_items", e.Label())
	assert.Equal(t, []string{"line_items"}, e.Tables())

	e.Split("line_items_a", "line_items_b")
	assert.Equal(t, []string{"line_items_a", "line_items_b"}, e.Tables())

	shard := e.Shard("line_items_b")
	assert.Equal(t, "line_items", shard.Label())
	assert.Equal(t, []string{"line_items_b"}, shard.Tables())
	assert.Equal(t, []string{"line_items_a", "line_items_b"}, e.Tables())
	f, ok := shard.Field("qty")
	require.True(t, ok)
	assert.Equal(t, "qty", f.Column)
}

func TestEntity_NoPrimaryKey(t *testing.T) {
	e := schema.New("Log", field.String("msg"), field.Time("at"))
	assert.Empty(t, e.PrimaryKeys())
	assert.Len(t, e.KeyFields(), 2)
	assert.Equal(t, "msg", e.DefaultOrder().Name)
	assert.Nil(t, e.Identity())
}

func TestEntity_Validate(t *testing.T) {
	t.Run("IdentityWithShardKey", func(t *testing.T) {
		e := schema.New("Event").Mixin(mixin.ID{}, mixin.TenantID{})
		err := e.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, pgdal.ErrIdentityShardKey))
	})

	t.Run("TwoIdentities", func(t *testing.T) {
		e := schema.New("Bad", field.Int64("a").Identity(), field.Int64("b").Identity())
		assert.Error(t, e.Validate())
	})

	t.Run("DuplicateField", func(t *testing.T) {
		e := schema.New("Dup", field.String("name"), field.String("name"))
		assert.Error(t, e.Validate())
	})

	t.Run("NoFields", func(t *testing.T) {
		assert.Error(t, schema.New("Empty").Validate())
	})

	t.Run("InvalidType", func(t *testing.T) {
		e := schema.New("Odd", field.Of("x", field.TypeInvalid))
		assert.True(t, errors.Is(e.Validate(), pgdal.ErrUnsupported))
	})
}
