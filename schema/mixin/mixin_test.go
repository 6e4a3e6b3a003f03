package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgdal/schema"
	"github.com/syssam/pgdal/schema/field"
	"github.com/syssam/pgdal/schema/mixin"
)

func TestMixins(t *testing.T) {
	e := schema.New("Doc").Mixin(mixin.ID{}, mixin.Time{}, mixin.SoftDelete{})
	require.NoError(t, e.Validate())
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "created_at", "updated_at", "deleted_at"}, names)
	assert.Equal(t, field.Expr("now()"), e.Fields[1].Default)
	assert.True(t, e.Fields[3].Nillable)
}

func TestUUIDAndTenant(t *testing.T) {
	e := schema.New("Ticket").Mixin(mixin.UUID{}, mixin.TenantID{})
	require.NoError(t, e.Validate())
	assert.Nil(t, e.Identity())
	require.Len(t, e.ShardKeys(), 1)
	assert.Equal(t, "tenant_id", e.ShardKeys()[0].Column)
	assert.Equal(t, field.TypeUUID, e.PrimaryKeys()[0].Type)
}
