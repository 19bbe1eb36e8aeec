package watcher

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_NoEventTypes(t *testing.T) {
	_, err := New(testLogger(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestNew(t *testing.T) {
	w, err := New(testLogger(), Options{
		EventTypes: []event.Type{event.Created, event.Written, event.Deleted},
	})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.NotNil(t, w.Events())
	assert.NotNil(t, w.Errors())
}

func TestWatch_MissingRoot(t *testing.T) {
	w, err := New(testLogger(), Options{
		EventTypes: []event.Type{event.Written},
	})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	err = w.Watch("/does/not/exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
