package sql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/schema/field"
)

// Direction is the direction of a statement parameter.
type Direction uint8

// Parameter directions.
const (
	In  Direction = iota // Bound by the client.
	Out                  // Returned by the server, e.g. through RETURNING.
)

// String returns the name of the direction.
func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Param is one named statement parameter.
type Param struct {
	Name      string
	Value     any
	Direction Direction
	Type      field.Type
}

// ParamSet is an ordered set of uniquely named parameters.
// The zero value is an empty set ready to use.
type ParamSet struct {
	params []Param
	index  map[string]int
}

// NewParamSet returns a set holding the given parameters. It fails if two
// of them share a name.
func NewParamSet(ps ...Param) (*ParamSet, error) {
	s := &ParamSet{}
	for _, p := range ps {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Params returns a copy of the parameters in insertion order.
func (s *ParamSet) Params() []Param {
	if s == nil {
		return nil
	}
	return slices.Clone(s.params)
}

// Len returns the number of parameters.
func (s *ParamSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// Names returns the parameter names in insertion order.
func (s *ParamSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Get returns the parameter with the given name.
func (s *ParamSet) Get(name string) (Param, bool) {
	if s == nil || s.index == nil {
		return Param{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// Has reports if a parameter with the given name exists.
func (s *ParamSet) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Add appends a parameter. A parameter with the same name already in the
// set is a collision error.
func (s *ParamSet) Add(p Param) error {
	if s.Has(p.Name) {
		return fmt.Errorf("%w: %q", pgdal.ErrParamCollision, p.Name)
	}
	if p.Type == field.TypeInvalid {
		p.Type = field.TypeOf(p.Value)
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.index[p.Name] = len(s.params)
	s.params = append(s.params, p)
	return nil
}

// In appends an input parameter.
func (s *ParamSet) In(name string, v any) error {
	return s.Add(Param{Name: name, Value: v})
}

// Out appends an output parameter of the given type.
func (s *ParamSet) Out(name string, t field.Type) error {
	return s.Add(Param{Name: name, Direction: Out, Type: t})
}

// Set updates the value of an existing parameter.
func (s *ParamSet) Set(name string, v any) bool {
	if s == nil || s.index == nil {
		return false
	}
	i, ok := s.index[name]
	if ok {
		s.params[i].Value = v
	}
	return ok
}

// Rename renames a parameter keeping its value, direction and position.
func (s *ParamSet) Rename(from, to string) error {
	if from == to {
		return nil
	}
	i, ok := s.index[from]
	if !ok {
		return fmt.Errorf("dialect/sql: rename unknown parameter %q", from)
	}
	if s.Has(to) {
		return fmt.Errorf("%w: %q", pgdal.ErrParamCollision, to)
	}
	delete(s.index, from)
	s.params[i].Name = to
	s.index[to] = i
	return nil
}

// Collisions returns the names present in both sets.
func (s *ParamSet) Collisions(o *ParamSet) []string {
	var names []string
	for _, p := range o.Params() {
		if s.Has(p.Name) {
			names = append(names, p.Name)
		}
	}
	return names
}

// Union appends every parameter of o. Nothing is appended if a name is
// present in both sets; callers rename the colliding side first.
func (s *ParamSet) Union(o *ParamSet) error {
	if names := s.Collisions(o); len(names) > 0 {
		return fmt.Errorf("%w: %s", pgdal.ErrParamCollision, strings.Join(names, ", "))
	}
	for _, p := range o.Params() {
		if err := s.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a copy of the set.
func (s *ParamSet) Clone() *ParamSet {
	c := &ParamSet{}
	for _, p := range s.Params() {
		_ = c.Add(p)
	}
	return c
}

// Outputs returns the output parameters.
func (s *ParamSet) Outputs() []Param {
	var out []Param
	for _, p := range s.Params() {
		if p.Direction == Out {
			out = append(out, p)
		}
	}
	return out
}

// Bind rewrites the named parameters of text (":name") into positional
// placeholders ("$1") and returns the matching argument list. A name
// referenced several times is bound once. Quoted literals, quoted
// identifiers, comments and "::" casts are left untouched.
func Bind(text string, s *ParamSet) (string, []any, error) {
	var (
		args []any
		pos  = make(map[string]int)
	)
	out, err := rewriteParams(text, func(name string) (string, error) {
		if n, ok := pos[name]; ok {
			return "$" + strconv.Itoa(n), nil
		}
		p, ok := s.Get(name)
		if !ok {
			return "", fmt.Errorf("dialect/sql: statement references unknown parameter %q", name)
		}
		if p.Direction == Out {
			return "", fmt.Errorf("dialect/sql: output parameter %q cannot be bound", name)
		}
		args = append(args, p.Value)
		pos[name] = len(args)
		return "$" + strconv.Itoa(len(args)), nil
	})
	if err != nil {
		return "", nil, err
	}
	return out, args, nil
}

// RenameParam rewrites every reference to the parameter from into to.
func RenameParam(text, from, to string) string {
	out, _ := rewriteParams(text, func(name string) (string, error) {
		if name == from {
			return ":" + to, nil
		}
		return ":" + name, nil
	})
	return out
}

// ParamRefs returns the distinct parameter names referenced by text, in
// order of first appearance.
func ParamRefs(text string) []string {
	var names []string
	_, _ = rewriteParams(text, func(name string) (string, error) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
		return ":" + name, nil
	})
	return names
}

// rewriteParams calls fn for every ":name" reference of text and replaces
// the reference with its result.
func rewriteParams(text string, fn func(string) (string, error)) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\'' || c == '"':
			j := skipQuoted(text, i, c)
			b.WriteString(text[i:j])
			i = j
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			j := strings.IndexByte(text[i:], '\n')
			if j < 0 {
				j = len(text) - i
			}
			b.WriteString(text[i : i+j])
			i += j
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			j := strings.Index(text[i+2:], "*/")
			end := len(text)
			if j >= 0 {
				end = i + 2 + j + 2
			}
			b.WriteString(text[i:end])
			i = end
		case c == ':' && i+1 < len(text) && text[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == ':' && i+1 < len(text) && isIdentStart(text[i+1]):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			r, err := fn(text[i+1 : j])
			if err != nil {
				return "", err
			}
			b.WriteString(r)
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// skipQuoted returns the index after the quoted section starting at i.
// Doubled quotes inside the section are escapes.
func skipQuoted(text string, i int, q byte) int {
	for j := i + 1; j < len(text); j++ {
		if text[j] != q {
			continue
		}
		if j+1 < len(text) && text[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(text)
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// ParamName returns a valid parameter base name for s.
func ParamName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isIdentPart(c):
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || !isIdentStart(name[0]) {
		name = "p" + name
	}
	return name
}
