package submit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient records calls and returns canned results.
type fakeClient struct {
	initErr   error
	clockTS   int64
	clockErr  error
	submitErr error

	initCalls int
	submitted []event.Event
}

func (f *fakeClient) InitAccount(context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeClient) Clock(context.Context) (int64, error) {
	return f.clockTS, f.clockErr
}

func (f *fakeClient) SubmitEvent(_ context.Context, ev event.Event) error {
	f.submitted = append(f.submitted, ev)
	return f.submitErr
}

// fakeLedger records applied events.
type fakeLedger struct {
	applyErr error
	applied  []event.Event
}

func (f *fakeLedger) Apply(ev event.Event) error {
	f.applied = append(f.applied, ev)
	return f.applyErr
}

// runEvents feeds the events through a submitter and returns after the
// stream drains.
func runEvents(t *testing.T, client *fakeClient, ledger *fakeLedger, evs ...event.Event) error {
	t.Helper()

	events := make(chan event.Event, len(evs))
	for _, ev := range evs {
		events <- ev
	}
	close(events)

	s := New(client, ledger, testLogger())
	return s.Run(context.Background(), events)
}

func TestRun_StampsAndSubmits(t *testing.T) {
	client := &fakeClient{clockTS: 1_700_000_000}
	ledger := &fakeLedger{}

	err := runEvents(t, client, ledger, event.Event{Path: "/data/a.txt", Type: event.Written})
	require.NoError(t, err)

	assert.Equal(t, 1, client.initCalls)
	require.Len(t, ledger.applied, 1)
	assert.Equal(t, int64(1_700_000_000), ledger.applied[0].ReceivedAt)
	require.Len(t, client.submitted, 1)
	assert.Equal(t, int64(1_700_000_000), client.submitted[0].ReceivedAt)
}

func TestRun_InitFailureIsFatal(t *testing.T) {
	client := &fakeClient{initErr: errors.Transport("endpoint down")}

	err := runEvents(t, client, &fakeLedger{}, event.Event{Path: "/data/a.txt"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransport))
	assert.Empty(t, client.submitted)
}

func TestRun_ClockFailureDegradesStamp(t *testing.T) {
	client := &fakeClient{clockErr: errors.Transport("clock unreachable")}
	ledger := &fakeLedger{}

	err := runEvents(t, client, ledger, event.Event{Path: "/data/a.txt", Type: event.Created})
	require.NoError(t, err)

	require.Len(t, ledger.applied, 1)
	assert.Equal(t, event.ReceivedAtUnknown, ledger.applied[0].ReceivedAt)
	require.Len(t, client.submitted, 1)
	assert.Equal(t, event.ReceivedAtUnknown, client.submitted[0].ReceivedAt)
}

func TestRun_LedgerFailureDoesNotBlockSubmission(t *testing.T) {
	client := &fakeClient{clockTS: 42}
	ledger := &fakeLedger{applyErr: errors.IO("region wedged")}

	err := runEvents(t, client, ledger,
		event.Event{Path: "/data/a.txt", Type: event.Written},
		event.Event{Path: "/data/b.txt", Type: event.Written})
	require.NoError(t, err)

	assert.Len(t, client.submitted, 2)
}

func TestRun_SubmitFailureContinuesStream(t *testing.T) {
	client := &fakeClient{clockTS: 42, submitErr: errors.Rejected("account full")}
	ledger := &fakeLedger{}

	err := runEvents(t, client, ledger,
		event.Event{Path: "/data/a.txt", Type: event.Written},
		event.Event{Path: "/data/b.txt", Type: event.Written})
	require.NoError(t, err)

	// Both events were still recorded locally and attempted.
	assert.Len(t, ledger.applied, 2)
	assert.Len(t, client.submitted, 2)
}

func TestRun_ContextCancellation(t *testing.T) {
	client := &fakeClient{clockTS: 1}
	events := make(chan event.Event)

	s := New(client, &fakeLedger{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, events) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
