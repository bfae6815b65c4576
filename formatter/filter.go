package formatter

import (
	"reflect"
	"strings"
)

// FieldFilter decides whether a struct field is serialized. declaringType
// is the struct type that declares the field and name is the field's
// serialized name. Implementations must be pure.
type FieldFilter interface {
	IncludeField(declaringType reflect.Type, name string) bool
}

// PredicateFilter adapts a function to FieldFilter.
type PredicateFilter func(declaringType reflect.Type, name string) bool

// IncludeField calls f.
func (f PredicateFilter) IncludeField(declaringType reflect.Type, name string) bool {
	return f(declaringType, name)
}

// SkipFilter rejects fields whose name is in a fixed set, whatever type
// declares them.
type SkipFilter struct {
	names map[string]struct{}
}

// NewSkipFilter creates a filter rejecting the given field names.
func NewSkipFilter(names ...string) *SkipFilter {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &SkipFilter{names: set}
}

// IncludeField reports whether name is absent from the skip set.
func (f *SkipFilter) IncludeField(_ reflect.Type, name string) bool {
	_, skipped := f.names[name]
	return !skipped
}

// Names returns the skipped names in no particular order.
func (f *SkipFilter) Names() []string {
	names := make([]string, 0, len(f.names))
	for n := range f.names {
		names = append(names, n)
	}
	return names
}

// CompositeFilter includes a field only if every registered filter
// includes it. An empty composite includes everything.
//
// Add is meant for construction; once a composite is part of a Policy it
// must not be modified.
type CompositeFilter struct {
	filters []FieldFilter
}

// NewCompositeFilter creates a composite of the given filters.
func NewCompositeFilter(filters ...FieldFilter) *CompositeFilter {
	c := &CompositeFilter{}
	for _, f := range filters {
		c.Add(f)
	}
	return c
}

// Add registers a filter. Nil filters are ignored.
func (c *CompositeFilter) Add(f FieldFilter) {
	if f == nil {
		return
	}
	c.filters = append(c.filters, f)
}

// Len returns the number of registered filters.
func (c *CompositeFilter) Len() int {
	return len(c.filters)
}

// IncludeField evaluates every filter, stopping at the first rejection.
func (c *CompositeFilter) IncludeField(declaringType reflect.Type, name string) bool {
	for _, f := range c.filters {
		if !f.IncludeField(declaringType, name) {
			return false
		}
	}
	return true
}

var sensitiveNames = []string{"password", "passwd", "secret", "token", "apikey", "api_key", "credential"}

// SensitiveFilter rejects fields whose name looks like it carries a
// credential.
func SensitiveFilter() FieldFilter {
	return PredicateFilter(func(_ reflect.Type, name string) bool {
		lower := strings.ToLower(name)
		for _, s := range sensitiveNames {
			if strings.Contains(lower, s) {
				return false
			}
		}
		return true
	})
}
