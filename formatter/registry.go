package formatter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// ErrUnknownLocator is returned when no factory is registered under a
// locator.
var ErrUnknownLocator = errors.New("formatter: unknown locator")

// FilterFactory builds a field filter referenced by a locator.
type FilterFactory func() (FieldFilter, error)

// ConverterFactory builds a type converter referenced by a locator.
type ConverterFactory func() (TypeConverter, error)

// Registry maps locators of the form "name" or "name, module" to the
// factories that build field filters and type converters. Lookups try the
// full locator first and then the bare name.
type Registry struct {
	mu         sync.RWMutex
	filters    map[string]FilterFactory
	converters map[string]ConverterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		filters:    make(map[string]FilterFactory),
		converters: make(map[string]ConverterFactory),
	}
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry, pre-populated with
// the built-in filters and converters.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		RegisterBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// RegisterBuiltins adds the built-in filters and converters to r.
func RegisterBuiltins(r *Registry) {
	r.RegisterFilter("sensitive", func() (FieldFilter, error) {
		return SensitiveFilter(), nil
	})
	r.RegisterConverter("unix-time", func() (TypeConverter, error) {
		return UnixTimeConverter{}, nil
	})
	r.RegisterConverter("duration-string", func() (TypeConverter, error) {
		return DurationConverter{}, nil
	})
	r.RegisterConverter("stringer", func() (TypeConverter, error) {
		return StringerConverter{}, nil
	})
}

// RegisterFilter registers a filter factory, replacing any previous one.
func (r *Registry) RegisterFilter(locator string, factory FilterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[normalizeLocator(locator)] = factory
}

// RegisterConverter registers a converter factory, replacing any previous one.
func (r *Registry) RegisterConverter(locator string, factory ConverterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[normalizeLocator(locator)] = factory
}

// NewFilter builds the filter registered under locator. A panicking
// factory is reported as an error.
func (r *Registry) NewFilter(locator string) (f FieldFilter, err error) {
	r.mu.RLock()
	factory, ok := lookup(r.filters, locator)
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: filter %q", ErrUnknownLocator, locator)
	}
	defer recoverFactory(locator, &err)
	f, err = factory()
	if err == nil && isNil(f) {
		err = fmt.Errorf("formatter: filter %q: factory returned nil", locator)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// NewConverter builds the converter registered under locator. A panicking
// factory is reported as an error.
func (r *Registry) NewConverter(locator string) (c TypeConverter, err error) {
	r.mu.RLock()
	factory, ok := lookup(r.converters, locator)
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: converter %q", ErrUnknownLocator, locator)
	}
	defer recoverFactory(locator, &err)
	c, err = factory()
	if err == nil && isNil(c) {
		err = fmt.Errorf("formatter: converter %q: factory returned nil", locator)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every filter or converter locator that has no factory.
func (r *Registry) Validate(filters, converters []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var err error
	for _, loc := range filters {
		if _, ok := lookup(r.filters, loc); !ok {
			err = multierr.Append(err, fmt.Errorf("%w: filter %q", ErrUnknownLocator, loc))
		}
	}
	for _, loc := range converters {
		if _, ok := lookup(r.converters, loc); !ok {
			err = multierr.Append(err, fmt.Errorf("%w: converter %q", ErrUnknownLocator, loc))
		}
	}
	return err
}

func lookup[F any](m map[string]F, locator string) (F, bool) {
	key := normalizeLocator(locator)
	if f, ok := m[key]; ok {
		return f, true
	}
	if name, _, found := strings.Cut(key, ","); found {
		f, ok := m[name]
		return f, ok
	}
	var zero F
	return zero, false
}

// normalizeLocator trims the parts of "name, module" and joins them with a
// bare comma.
func normalizeLocator(locator string) string {
	name, module, found := strings.Cut(locator, ",")
	name = strings.TrimSpace(name)
	if module = strings.TrimSpace(module); !found || module == "" {
		return name
	}
	return name + "," + module
}

// isNil also catches typed nils such as a nil PredicateFilter.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func recoverFactory(locator string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("formatter: factory for %q panicked: %v", locator, r)
	}
}
