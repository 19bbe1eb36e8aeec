//go:build linux

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathledger/pathledger/internal/event"
)

// waitForType drains the events channel until an event of the wanted
// type arrives for path, or the deadline passes.
func waitForType(t *testing.T, events <-chan event.Event, path string, typ event.Type) event.Event {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Path == path && ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s on %s", typ, path)
		}
	}
}

func startWatcher(t *testing.T, dir string, types []event.Type) *Watcher {
	t.Helper()

	w, err := New(testLogger(), Options{EventTypes: types})
	require.NoError(t, err)

	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	// Give the read loop a moment to come up before mutating the tree.
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestWatcher_CreateAndWrite(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, []event.Type{event.Created, event.Written})

	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	created := waitForType(t, w.Events(), path, event.Created)
	assert.Equal(t, int64(event.ReceivedAtUnassigned), created.ReceivedAt)

	written := waitForType(t, w.Events(), path, event.Written)
	require.NotNil(t, written.Info)
	assert.Equal(t, uint64(7), written.Info.Size)
	assert.NotNil(t, written.Info.ModifyTS)
}

func TestWatcher_Delete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "victim.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := startWatcher(t, dir, []event.Type{event.Deleted})

	require.NoError(t, os.Remove(path))

	deleted := waitForType(t, w.Events(), path, event.Deleted)
	assert.Nil(t, deleted.Info)
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, []event.Type{event.Created, event.Written})

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitForType(t, w.Events(), sub, event.Created)

	// The watch on the new directory is installed before its Created
	// event is emitted, so seeing the event means writes below it are
	// already visible.
	path := filepath.Join(sub, "inner.txt")
	require.NoError(t, os.WriteFile(path, []byte("deep"), 0o644))

	written := waitForType(t, w.Events(), path, event.Written)
	require.NotNil(t, written.Info)
	assert.Equal(t, uint64(4), written.Info.Size)
}

func TestWatcher_IgnoredFilesProduceNothing(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, []event.Type{event.Created, event.Written})

	ignored := filepath.Join(dir, "scratch.tmp")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))

	kept := filepath.Join(dir, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	// Events arrive in kernel order, so anything for scratch.tmp would
	// land before kept.txt's. Drain until kept.txt's write shows up and
	// fail if the ignored path surfaces on the way.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			assert.NotEqual(t, ignored, ev.Path)
			if ev.Path == kept && ev.Type == event.Written {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for kept.txt events")
		}
	}
}

func TestWatcher_StopUnblocksReadLoop(t *testing.T) {
	dir := t.TempDir()

	w, err := New(testLogger(), Options{EventTypes: []event.Type{event.Written}})
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// No filesystem activity and a still-live context: Stop's wakeup
	// alone must get the idle loop to exit.
	done := make(chan struct{})
	go func() {
		_ = w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not unblock the read loop")
	}
}

func TestWatcher_StopAfterCancel(t *testing.T) {
	dir := t.TempDir()

	w, err := New(testLogger(), Options{EventTypes: []event.Type{event.Written}})
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		cancel()
		_ = w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after cancellation")
	}

	// Channels are closed once the loop is down.
	_, ok := <-w.Events()
	assert.False(t, ok)
}
