package cv

import "github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"

// Option configures a Matcher
type Option func(*Matcher)

// WithLogger routes match diagnostics to l
func WithLogger(l *logging.Logger) Option {
	return func(m *Matcher) {
		m.logger = l
	}
}

// WithCache shares a template cache between matchers
func WithCache(c *TemplateCache) Option {
	return func(m *Matcher) {
		m.cache = c
	}
}

// WithSearchBudget sets the exhaustive-scan cost above which the
// coarse-to-fine search is used
func WithSearchBudget(ops float64) Option {
	return func(m *Matcher) {
		m.budget = ops
	}
}
