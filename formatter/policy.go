package formatter

import (
	"go.uber.org/zap"
)

// Policy is a complete serialization configuration. A policy handed to a
// layout is treated as immutable.
type Policy struct {
	LoopHandling LoopHandling
	// DateTimeFormat is the Go layout used by the built-in date converter.
	DateTimeFormat string
	Filter         FieldFilter
	// Converters are tried in order; the first one accepting a type wins.
	Converters []TypeConverter
}

// policyBuilder resolves layout options against settings and a registry.
type policyBuilder struct {
	opts     *Options
	defaults *Settings
	registry *Registry
	log      *zap.Logger
	stats    *Stats
}

func (b *policyBuilder) build() *Policy {
	p := &Policy{
		LoopHandling:   b.opts.LoopHandling,
		DateTimeFormat: TimeLayout(firstNonEmpty(b.opts.DateTimeFormat, b.defaults.DateTimeFormat, DefaultDateTimeFormat)),
	}
	if p.LoopHandling == LoopDefault {
		p.LoopHandling = b.defaults.LoopHandling
	}
	if p.LoopHandling == LoopDefault {
		p.LoopHandling = LoopIgnore
	}

	for _, loc := range b.opts.TypeConverters {
		c, err := b.registry.NewConverter(loc)
		if err != nil {
			b.reject("type converter", loc, err)
			continue
		}
		p.Converters = append(p.Converters, c)
	}
	p.Converters = append(p.Converters, &DateTimeConverter{Layout: p.DateTimeFormat})

	filter := NewCompositeFilter()
	if skipped := b.skippedProperties(); len(skipped) > 0 {
		filter.Add(NewSkipFilter(skipped...))
	} else if b.defaults.AdvancedFilter != nil {
		filter.Add(PredicateFilter(b.defaults.AdvancedFilter))
	}
	for _, loc := range b.opts.ContractResolvers {
		f, err := b.registry.NewFilter(loc)
		if err != nil {
			b.reject("field filter", loc, err)
			continue
		}
		filter.Add(f)
	}
	p.Filter = filter
	return p
}

func (b *policyBuilder) skippedProperties() []string {
	if names := SplitProperties(b.opts.SkippedProperties); len(names) > 0 {
		return names
	}
	return b.defaults.SkippedProperties
}

func (b *policyBuilder) reject(kind, locator string, err error) {
	b.stats.rejected.Add(1)
	b.log.Warn("skipping "+kind+" that cannot be loaded",
		zap.String("locator", locator),
		zap.Error(err),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
