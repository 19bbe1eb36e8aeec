//go:build !linux

package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// fallbackBackend implements Backend using fsnotify on platforms without
// direct inotify access. fsnotify cannot distinguish a move's source and
// destination or report opens, so MovedTo and Opened are never produced
// here; renames surface as MovedFrom.
type fallbackBackend struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	events chan event.Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// opFlags maps fsnotify operations to domain event types, in ordinal
// order so a combined op always decodes deterministically.
var opFlags = [...]struct {
	typ event.Type
	op  fsnotify.Op
}{
	{event.AttributeChanged, fsnotify.Chmod},
	{event.Created, fsnotify.Create},
	{event.Deleted, fsnotify.Remove},
	{event.MovedFrom, fsnotify.Rename},
	{event.Written, fsnotify.Write},
}

// newFallbackBackend creates a fallback backend using fsnotify.
func newFallbackBackend(logger *slog.Logger, opts Options) (Backend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to create fsnotify watcher")
	}

	return &fallbackBackend{
		logger:  logger,
		opts:    opts,
		watcher: watcher,
		events:  make(chan event.Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a path to be monitored.
func (b *fallbackBackend) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(err, errors.CodeNotFound, "watch root does not exist: %s", path)
		}
		if os.IsPermission(err) {
			return errors.Wrapf(err, errors.CodePermissionDenied, "watch root not accessible: %s", path)
		}
		return errors.Wrapf(err, errors.CodeIO, "failed to stat watch root: %s", path)
	}

	if info.IsDir() {
		return b.watchDir(path)
	}
	return b.watcher.Add(filepath.Dir(path))
}

// watchDir recursively watches a directory.
func (b *fallbackBackend) watchDir(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			b.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}

		if b.opts.shouldIgnore(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if err := b.watcher.Add(p); err != nil {
			b.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}

		b.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start begins watching for events.
func (b *fallbackBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.processLoop(ctx)

	<-ctx.Done()
	return nil
}

// processLoop forwards fsnotify notifications until shutdown.
func (b *fallbackBackend) processLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case fsEvent, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handle(fsEvent)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.errors <- err
		}
	}
}

// handle normalizes one fsnotify notification. Each notification is its
// own batch of one, so the metadata read happens at most once per call.
func (b *fallbackBackend) handle(fsEvent fsnotify.Event) {
	path := fsEvent.Name

	if b.opts.shouldIgnore(path) {
		return
	}

	// A new directory needs its own watch before events inside it can
	// be seen.
	if fsEvent.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := b.watchDir(path); err != nil {
				b.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
		}
	}

	var types []event.Type
	for _, m := range &opFlags {
		if fsEvent.Op&m.op != 0 && b.opts.wants(m.typ) {
			types = append(types, m.typ)
		}
	}
	if len(types) == 0 {
		return
	}

	var info *event.FileInfo
	if needed := func() bool {
		for _, t := range types {
			if t != event.Deleted {
				return true
			}
		}
		return false
	}(); needed {
		if fi, err := readFileInfo(path); err == nil {
			info = &fi
		} else if !errors.Is(err, errors.ErrNotFound) {
			b.logger.Warn("failed to read file metadata", "path", path, "error", err)
		}
	}

	for _, typ := range types {
		ev := event.Event{
			Path:       path,
			Type:       typ,
			ReceivedAt: event.ReceivedAtUnassigned,
		}
		if typ != event.Deleted && info != nil {
			snapshot := *info
			ev.Info = &snapshot
		}
		b.emit(ev)
	}
}

// emit forwards an event with a best-effort send.
func (b *fallbackBackend) emit(ev event.Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	default:
		b.logger.Warn("dropping event, consumer not keeping up", "path", ev.Path, "type", ev.Type.String())
	}
}

// Events returns the events channel.
func (b *fallbackBackend) Events() <-chan event.Event {
	return b.events
}

// Errors returns the errors channel.
func (b *fallbackBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher.
func (b *fallbackBackend) Stop() error {
	close(b.done)

	closeErr := b.watcher.Close()

	b.wg.Wait()

	close(b.events)
	close(b.errors)

	return closeErr
}

// newLinuxBackend is a stub that should never be called off Linux.
// It exists only to satisfy the compiler when watcher.go references it.
func newLinuxBackend(_ *slog.Logger, _ Options) (Backend, error) {
	return nil, errors.Configuration("Linux backend not available on this platform")
}
