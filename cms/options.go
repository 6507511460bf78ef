package cms

import (
	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/observability"
)

// Option configures a Manager.
type Option func(*Manager)

// WithFactory sets the engine. The default is cmm.NewFactory().
func WithFactory(f cmm.Factory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithTracer sets the tracer.
func WithTracer(t observability.Tracer) Option {
	return func(m *Manager) {
		m.tracer = t
	}
}

// WithPolicy sets the initial policy. The default is DefaultPolicy().
func WithPolicy(p Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithSession sets the session id attached to log lines. A random id is
// used otherwise.
func WithSession(id string) Option {
	return func(m *Manager) {
		m.session = id
	}
}
