package watcher

import (
	"context"

	"github.com/pathledger/pathledger/internal/event"
)

// Backend defines the platform-specific notification source.
type Backend interface {
	// Watch adds a path to be monitored. The path can be a file or directory.
	// If the path is a directory, it will be watched recursively.
	Watch(path string) error

	// Start begins watching for events. This method blocks until the
	// context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop stops the watcher and releases all resources.
	Stop() error

	// Events returns the channel for receiving normalized events.
	Events() <-chan event.Event

	// Errors returns the channel for receiving errors.
	Errors() <-chan error
}
