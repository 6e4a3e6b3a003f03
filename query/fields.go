package query

import "time"

// StringField is a typed reference to a string field.
//
// Usage:
//
//	var Email = query.StringField("email")
//	q.Filter(Email.HasSuffix("@example.com"))
type StringField string

// Name returns the field name.
func (f StringField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) *Predicate { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) *Predicate { return NEQ(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) *Predicate { return In(string(f), anys(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField) NotIn(vs ...string) *Predicate { return NotIn(string(f), anys(vs)...) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f StringField) GT(v string) *Predicate { return GT(string(f), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f StringField) LT(v string) *Predicate { return LT(string(f), v) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) *Predicate { return Contains(string(f), v) }

// ContainsFold returns a predicate that checks if the field contains the given substring (case-insensitive).
func (f StringField) ContainsFold(v string) *Predicate { return ContainsFold(string(f), v) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) *Predicate { return HasPrefix(string(f), v) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) *Predicate { return HasSuffix(string(f), v) }

// EqualFold returns a predicate that checks if the field equals the given value (case-insensitive).
func (f StringField) EqualFold(v string) *Predicate { return EqualFold(string(f), v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() *Predicate { return NotNull(string(f)) }

// Asc returns an ascending sort key on the field.
func (f StringField) Asc() Order { return Asc(string(f)) }

// Desc returns a descending sort key on the field.
func (f StringField) Desc() Order { return Desc(string(f)) }

// Number is the constraint of numeric field values.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumberField is a typed reference to a numeric field.
//
//	var Age = query.NumberField[int]("age")
//	q.Filter(Age.GTE(18))
//	cmd.Modify(Age.Name(), Age.Add(1))
type NumberField[T Number] string

// Name returns the field name.
func (f NumberField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f NumberField[T]) EQ(v T) *Predicate { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f NumberField[T]) NEQ(v T) *Predicate { return NEQ(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f NumberField[T]) In(vs ...T) *Predicate { return In(string(f), anys(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f NumberField[T]) NotIn(vs ...T) *Predicate { return NotIn(string(f), anys(vs)...) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f NumberField[T]) GT(v T) *Predicate { return GT(string(f), v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f NumberField[T]) GTE(v T) *Predicate { return GTE(string(f), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f NumberField[T]) LT(v T) *Predicate { return LT(string(f), v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f NumberField[T]) LTE(v T) *Predicate { return LTE(string(f), v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f NumberField[T]) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f NumberField[T]) NotNull() *Predicate { return NotNull(string(f)) }

// Add returns a modification adding v to the current value.
func (f NumberField[T]) Add(v T) Modification { return Calculate(Add, v) }

// Sub returns a modification subtracting v from the current value.
func (f NumberField[T]) Sub(v T) Modification { return Calculate(Subtract, v) }

// Asc returns an ascending sort key on the field.
func (f NumberField[T]) Asc() Order { return Asc(string(f)) }

// Desc returns a descending sort key on the field.
func (f NumberField[T]) Desc() Order { return Desc(string(f)) }

// BoolField is a typed reference to a boolean field.
type BoolField string

// Name returns the field name.
func (f BoolField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f BoolField) EQ(v bool) *Predicate { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f BoolField) NEQ(v bool) *Predicate { return NEQ(string(f), v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f BoolField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f BoolField) NotNull() *Predicate { return NotNull(string(f)) }

// TimeField is a typed reference to a time field.
type TimeField string

// Name returns the field name.
func (f TimeField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f TimeField) EQ(v time.Time) *Predicate { return EQ(string(f), v) }

// GT returns a predicate that checks if the field is after the given value.
func (f TimeField) GT(v time.Time) *Predicate { return GT(string(f), v) }

// GTE returns a predicate that checks if the field is not before the given value.
func (f TimeField) GTE(v time.Time) *Predicate { return GTE(string(f), v) }

// LT returns a predicate that checks if the field is before the given value.
func (f TimeField) LT(v time.Time) *Predicate { return LT(string(f), v) }

// LTE returns a predicate that checks if the field is not after the given value.
func (f TimeField) LTE(v time.Time) *Predicate { return LTE(string(f), v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f TimeField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f TimeField) NotNull() *Predicate { return NotNull(string(f)) }

// Asc returns an ascending sort key on the field.
func (f TimeField) Asc() Order { return Asc(string(f)) }

// Desc returns a descending sort key on the field.
func (f TimeField) Desc() Order { return Desc(string(f)) }

// EnumField is a typed reference to a field holding string enum values.
type EnumField[T ~string] string

// Name returns the field name.
func (f EnumField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f EnumField[T]) EQ(v T) *Predicate { return EQ(string(f), string(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f EnumField[T]) NEQ(v T) *Predicate { return NEQ(string(f), string(v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f EnumField[T]) In(vs ...T) *Predicate {
	v := make([]any, len(vs))
	for i := range vs {
		v[i] = string(vs[i])
	}
	return In(string(f), v...)
}

// IsNull returns a predicate that checks if the field is NULL.
func (f EnumField[T]) IsNull() *Predicate { return IsNull(string(f)) }

// OtherField is a typed reference to a field of any other value type,
// such as uuid.UUID or decimal.Decimal.
type OtherField[T any] string

// Name returns the field name.
func (f OtherField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f OtherField[T]) EQ(v T) *Predicate { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f OtherField[T]) NEQ(v T) *Predicate { return NEQ(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f OtherField[T]) In(vs ...T) *Predicate { return In(string(f), anys(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f OtherField[T]) NotIn(vs ...T) *Predicate { return NotIn(string(f), anys(vs)...) }

// IsNull returns a predicate that checks if the field is NULL.
func (f OtherField[T]) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f OtherField[T]) NotNull() *Predicate { return NotNull(string(f)) }

func anys[T any](vs []T) []any {
	v := make([]any, len(vs))
	for i := range vs {
		v[i] = vs[i]
	}
	return v
}
