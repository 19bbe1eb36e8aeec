//go:build linux

package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// linuxBackend implements Backend using inotify directly.
type linuxBackend struct {
	logger  *slog.Logger
	watches map[string]int
	wdPaths map[int]string
	events  chan event.Event
	errors  chan error
	done    chan struct{}
	opts    Options
	mask    uint32
	wg      sync.WaitGroup
	fd      int
	wake    [2]int
	mu      sync.RWMutex
}

// newLinuxBackend creates a new Linux-specific watcher backend subscribed
// to exactly the requested event types.
//
// The inotify fd is nonblocking: the read loop waits in poll(2) instead
// of read(2), alongside a wakeup pipe. Closing an fd does not interrupt
// a thread blocked in read(2), so a blocking fd would leave Stop waiting
// for the next filesystem event before the loop could exit.
func newLinuxBackend(logger *slog.Logger, opts Options) (*linuxBackend, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to initialize inotify")
	}

	var wake [2]int
	if err := unix.Pipe2(wake[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, errors.CodeIO, "failed to create wakeup pipe")
	}

	return &linuxBackend{
		logger:  logger,
		opts:    opts,
		fd:      fd,
		wake:    wake,
		mask:    watchMask(opts.EventTypes),
		watches: make(map[string]int),
		wdPaths: make(map[int]string),
		events:  make(chan event.Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a path to be monitored.
func (b *linuxBackend) Watch(path string) error {
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
	// A single file is watched through its parent directory.
	return b.addWatch(filepath.Dir(path))
}

// watchDir recursively watches a directory.
func (b *linuxBackend) watchDir(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			b.logger.Warn("failed to access path", "path", p, "error", err)
			return nil // Continue walking
		}

		if b.opts.shouldIgnore(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Only directories carry watches.
		if !info.IsDir() {
			return nil
		}

		if err := b.addWatch(p); err != nil {
			b.logger.Error("failed to add watch", "path", p, "error", err)
			return nil // Continue walking
		}

		return nil
	})
}

// addWatch installs an inotify watch for a directory. IN_DELETE_SELF is
// always included so watches on removed directories can be cleaned up.
func (b *linuxBackend) addWatch(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.watches[path]; exists {
		return nil
	}

	wd, err := unix.InotifyAddWatch(b.fd, path, b.mask|unix.IN_DELETE_SELF)
	if err != nil {
		if os.IsPermission(err) {
			return errors.Wrapf(err, errors.CodePermissionDenied, "inotify_add_watch %s", path)
		}
		return errors.Wrapf(err, errors.CodeIO, "inotify_add_watch %s", path)
	}

	b.watches[path] = wd
	b.wdPaths[wd] = path
	b.logger.Debug("added watch", "path", path, "wd", wd)

	return nil
}

// removeWatch removes an inotify watch for a path.
func (b *linuxBackend) removeWatch(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wd, exists := b.watches[path]
	if !exists {
		return
	}

	// Ignore errors, the directory may already be gone.
	//nolint:gosec // G115: wd is always a small non-negative int from inotify
	_, _ = unix.InotifyRmWatch(b.fd, uint32(wd))

	delete(b.watches, path)
	delete(b.wdPaths, wd)
	b.logger.Debug("removed watch", "path", path, "wd", wd)
}

// Start begins watching for events.
func (b *linuxBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.readLoop(ctx)

	<-ctx.Done()
	return nil
}

// readLoop polls the inotify fd and the wakeup pipe, drains each ready
// batch, and forwards the resulting events. It runs until Stop signals
// the pipe or the context is cancelled; a bad record or unreadable path
// never stops it.
func (b *linuxBackend) readLoop(ctx context.Context) {
	defer b.wg.Done()

	// Room for a full batch; inotify rejects reads that cannot hold at
	// least one maximal event (struct + NAME_MAX).
	buf := make([]byte, 64*unix.SizeofInotifyEvent+64*unix.NAME_MAX)

	fds := []unix.PollFd{
		{Fd: int32(b.fd), Events: unix.POLLIN},
		{Fd: int32(b.wake[0]), Events: unix.POLLIN},
	}

	for {
		fds[0].Revents = 0
		fds[1].Revents = 0

		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			select {
			case <-b.done:
			case <-ctx.Done():
			default:
				b.errors <- errors.Wrap(err, errors.CodeIO, "failed to poll inotify fd")
			}
			return
		}

		// Stop closed its end of the pipe; shut down before any fd is
		// closed so no read can hit a reused descriptor number.
		if fds[1].Revents != 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if fds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) == 0 {
			continue
		}

		if !b.drain(ctx, buf) {
			return
		}
	}
}

// drain reads every pending batch off the nonblocking fd. It reports
// false when the loop should exit.
func (b *linuxBackend) drain(ctx context.Context, buf []byte) bool {
	for {
		n, err := unix.Read(b.fd, buf)
		if err != nil {
			if err == unix.EAGAIN {
				return true
			}
			if err == unix.EINTR {
				continue
			}
			select {
			case <-b.done:
			case <-ctx.Done():
			default:
				b.errors <- errors.Wrap(err, errors.CodeIO, "failed to read inotify events")
			}
			return false
		}

		if n < unix.SizeofInotifyEvent {
			return true
		}

		recs := b.parseBatch(buf[:n])
		for _, ev := range extractBatch(recs, readFileInfo, b.logger) {
			b.emit(ev)
		}
	}
}

// parseBatch splits one read's worth of bytes into raw records, resolving
// each watch descriptor to its directory. Watch bookkeeping (new
// subdirectories, deleted watch targets) happens here, before extraction.
func (b *linuxBackend) parseBatch(buf []byte) []rawRecord {
	var recs []rawRecord

	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		//nolint:gosec // G103: syscall interface, the buffer holds packed InotifyEvent structs
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameBytes := buf[offset+unix.SizeofInotifyEvent : offset+unix.SizeofInotifyEvent+int(raw.Len)]
		offset += unix.SizeofInotifyEvent + int(raw.Len)

		b.mu.RLock()
		dir, ok := b.wdPaths[int(raw.Wd)]
		b.mu.RUnlock()
		if !ok {
			continue
		}

		if raw.Mask&unix.IN_DELETE_SELF != 0 {
			b.removeWatch(dir)
			continue
		}

		name := string(nameBytes[:clen(nameBytes)])
		if name == "" {
			// No addressable path; extraction has nothing to report.
			continue
		}

		path := filepath.Join(dir, name)
		if b.opts.shouldIgnore(path) {
			continue
		}

		// A new directory needs its own watch before events inside it
		// can be seen.
		if raw.Mask&unix.IN_CREATE != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := b.watchDir(path); err != nil {
					b.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
		}

		recs = append(recs, rawRecord{dir: dir, name: name, mask: raw.Mask})
	}

	return recs
}

// emit forwards an event with a best-effort send: a full or departed
// consumer costs us the event, never the read loop.
func (b *linuxBackend) emit(ev event.Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	default:
		b.logger.Warn("dropping event, consumer not keeping up", "path", ev.Path, "type", ev.Type.String())
	}
}

// Events returns the events channel.
func (b *linuxBackend) Events() <-chan event.Event {
	return b.events
}

// Errors returns the errors channel.
func (b *linuxBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher. Closing the write end of the wakeup pipe
// makes the poll return; the fds are closed only after the read loop
// has exited, so it never touches a reused descriptor.
func (b *linuxBackend) Stop() error {
	close(b.done)
	_ = unix.Close(b.wake[1])

	b.wg.Wait()

	var closeErr error
	if b.fd >= 0 {
		closeErr = unix.Close(b.fd)
	}
	_ = unix.Close(b.wake[0])

	close(b.events)
	close(b.errors)

	return closeErr
}

// clen returns the length of a null-terminated byte slice.
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}

// newFallbackBackend is a stub that should never be called on Linux.
// It exists only to satisfy the compiler when watcher.go references it.
func newFallbackBackend(_ *slog.Logger, _ Options) (Backend, error) {
	return nil, errors.Configuration("fallback backend not available on Linux")
}
