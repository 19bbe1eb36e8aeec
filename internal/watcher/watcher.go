// Package watcher converts kernel file-change notifications into the
// normalized event stream consumed by the submission pipeline.
package watcher

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// Watcher monitors a directory tree for file-system changes.
type Watcher struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a new file watcher for the requested event types.
// The watcher selects the best backend for the current platform:
// Linux uses inotify directly; everything else goes through fsnotify.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var backend Backend
	var err error

	if runtime.GOOS == "linux" {
		backend, err = newLinuxBackend(logger, opts)
		logger.Info("using Linux inotify backend")
	} else {
		backend, err = newFallbackBackend(logger, opts)
		logger.Info("using fsnotify fallback backend", "platform", runtime.GOOS)
	}

	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to create backend")
	}

	return &Watcher{
		backend: backend,
		logger:  logger,
	}, nil
}

// Watch adds a path to be monitored.
// The path can be a file or directory. Directories are watched recursively.
func (w *Watcher) Watch(path string) error {
	return w.backend.Watch(path)
}

// Start begins watching for events.
// This method blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	return w.backend.Start(ctx)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	return w.backend.Stop()
}

// Events returns the channel for receiving normalized events.
func (w *Watcher) Events() <-chan event.Event {
	return w.backend.Events()
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.backend.Errors()
}
