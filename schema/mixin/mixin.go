// Package mixin provides reusable field sets for entity declarations.
//
//	schema.New("User").Mixin(mixin.ID{}, mixin.Time{}).Add(
//	    field.String("name"),
//	)
package mixin

import (
	"github.com/syssam/pgdal/schema"
	"github.com/syssam/pgdal/schema/field"
)

// ID adds an int64 identity primary key named "id".
type ID struct{}

// Fields returns the id field.
func (ID) Fields() []*field.Builder {
	return []*field.Builder{
		field.Int64("id").PrimaryKey().Identity(),
	}
}

// UUID adds a UUID primary key named "id" generated by the server.
type UUID struct{}

// Fields returns the id field.
func (UUID) Fields() []*field.Builder {
	return []*field.Builder{
		field.UUID("id").PrimaryKey().Default(field.Expr("gen_random_uuid()")),
	}
}

// Time adds created_at and updated_at timestamp fields.
type Time struct{}

// Fields returns the time tracking fields.
func (Time) Fields() []*field.Builder {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// CreateTime adds only the created_at timestamp field.
type CreateTime struct{}

// Fields returns the created_at field.
func (CreateTime) Fields() []*field.Builder {
	return []*field.Builder{
		field.Time("created_at").
			Default(field.Expr("now()")).
			Comment("Timestamp when the entity was created"),
	}
}

// UpdateTime adds only the updated_at timestamp field.
type UpdateTime struct{}

// Fields returns the updated_at field.
func (UpdateTime) Fields() []*field.Builder {
	return []*field.Builder{
		field.Time("updated_at").
			Default(field.Expr("now()")).
			Comment("Timestamp when the entity was last updated"),
	}
}

// SoftDelete adds a nullable deleted_at field.
type SoftDelete struct{}

// Fields returns the soft delete field.
func (SoftDelete) Fields() []*field.Builder {
	return []*field.Builder{
		field.Time("deleted_at").
			Nillable().
			Comment("Timestamp when the entity was soft deleted (NULL means not deleted)"),
	}
}

// TenantID adds a tenant_id sharding key. Entities using it cannot declare
// an identity field.
type TenantID struct{}

// Fields returns the tenant field.
func (TenantID) Fields() []*field.Builder {
	return []*field.Builder{
		field.UUID("tenant_id").ShardKey(),
	}
}

var (
	_ schema.Mixin = ID{}
	_ schema.Mixin = UUID{}
	_ schema.Mixin = Time{}
	_ schema.Mixin = CreateTime{}
	_ schema.Mixin = UpdateTime{}
	_ schema.Mixin = SoftDelete{}
	_ schema.Mixin = TenantID{}
)
