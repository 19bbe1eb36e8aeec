package watcher

import (
	"path/filepath"
	"strings"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// Options configures the watcher behavior.
type Options struct {
	// EventTypes is the set of event kinds to subscribe to. Must not be
	// empty; an empty set would install a watch that reports nothing.
	EventTypes []event.Type

	IgnorePatterns []string
	IgnoreHidden   bool
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	// Set default ignore patterns if none specified (nil, not just empty).
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.temp",
			"Thumbs.db",
		}
		// Also default to ignoring hidden files when no custom config
		// provided. If patterns were explicitly set (even to an empty
		// slice), respect the caller's IgnoreHidden choice.
		o.IgnoreHidden = true
	}
}

// validate rejects configurations that cannot produce a working watch.
func (o *Options) validate() error {
	if len(o.EventTypes) == 0 {
		return errors.Configuration("at least one event type must be requested")
	}
	for _, t := range o.EventTypes {
		if !t.Valid() {
			return errors.Configurationf("invalid event type %d", t)
		}
	}
	return nil
}

// wants reports whether t is among the requested event types.
func (o *Options) wants(t event.Type) bool {
	for _, want := range o.EventTypes {
		if want == t {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a path matches ignore patterns.
func (o *Options) shouldIgnore(path string) bool {
	// Check if hidden and we're ignoring hidden files.
	if o.IgnoreHidden {
		parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
		for _, part := range parts {
			if strings.HasPrefix(part, ".") && part != "." && part != ".." {
				return true
			}
		}
	}

	// Check against ignore patterns.
	base := filepath.Base(path)
	for _, pattern := range o.IgnorePatterns {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return true
		}
	}

	return false
}
