package tracer

import (
	"github.com/smykla-labs/crashtrace/pkg/clock"
	"github.com/smykla-labs/crashtrace/pkg/handler"
	"github.com/smykla-labs/crashtrace/pkg/logger"
	"github.com/smykla-labs/crashtrace/pkg/report"
)

// Option configures a Tracer.
type Option func(*Tracer)

// WithLogger sets the logger used by the tracer and its components.
func WithLogger(log logger.Logger) Option {
	return func(t *Tracer) {
		if log != nil {
			t.log = log
		}
	}
}

// WithStorage replaces the OS filesystem used for reports.
func WithStorage(s report.Storage) Option {
	return func(t *Tracer) {
		if s != nil {
			t.storage = s
		}
	}
}

// WithClock sets the time source for event stamps and report names.
func WithClock(c clock.Clock) Option {
	return func(t *Tracer) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithJSONHeaders adds providers for top-level keys of the structured report.
func WithJSONHeaders(providers ...report.HeaderProvider) Option {
	return func(t *Tracer) {
		t.headers.JSON = append(t.headers.JSON, providers...)
	}
}

// WithFileHeaders adds providers for the base info section of the text report.
func WithFileHeaders(providers ...report.HeaderProvider) Option {
	return func(t *Tracer) {
		t.headers.File = append(t.headers.File, providers...)
	}
}

// WithStatus adds providers for the status section of the text report.
func WithStatus(providers ...report.HeaderProvider) Option {
	return func(t *Tracer) {
		t.headers.Status = append(t.headers.Status, providers...)
	}
}

// WithRegistry replaces the handler registry built from the configuration.
func WithRegistry(r *handler.Registry) Option {
	return func(t *Tracer) {
		if r != nil {
			t.registry = r
		}
	}
}
