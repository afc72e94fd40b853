package report

import (
	"fmt"
	"maps"

	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
	"github.com/smykla-labs/crashtrace/pkg/logger"
)

// HeaderProvider contributes key/value pairs to a report at persistence time.
type HeaderProvider interface {
	Headers() map[string]crashinfo.Value
}

// HeaderFunc adapts a function to HeaderProvider.
type HeaderFunc func() map[string]crashinfo.Value

// Headers implements HeaderProvider.
func (f HeaderFunc) Headers() map[string]crashinfo.Value {
	return f()
}

// StaticHeaders is a HeaderProvider returning a fixed set of pairs.
type StaticHeaders map[string]crashinfo.Value

// Headers implements HeaderProvider.
func (s StaticHeaders) Headers() map[string]crashinfo.Value {
	return maps.Clone(s)
}

// Headers groups the providers for each destination.
type Headers struct {
	// JSON providers add top-level keys to the structured document.
	JSON []HeaderProvider

	// File providers add lines to the base info section of the text document.
	File []HeaderProvider

	// Status providers fill the status section of the text document.
	Status []HeaderProvider
}

// collect merges providers in order; later providers win on key conflicts.
// A provider that panics contributes nothing.
func collect(log logger.Logger, providers []HeaderProvider) map[string]crashinfo.Value {
	out := make(map[string]crashinfo.Value)

	for _, p := range providers {
		if p == nil {
			continue
		}

		maps.Copy(out, safeHeaders(log, p))
	}

	return out
}

func safeHeaders(log logger.Logger, p HeaderProvider) (h map[string]crashinfo.Value) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("header provider panicked", "panic", fmt.Sprint(rec))

			h = nil
		}
	}()

	return p.Headers()
}
