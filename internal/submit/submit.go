// Package submit drives the event pipeline: it stamps each watcher
// event with the remote ledger clock, records it in the local ledger,
// and submits it to the remote endpoint.
package submit

import (
	"context"
	"log/slog"

	"github.com/pathledger/pathledger/internal/event"
)

// LedgerApplier records events in the local ledger.
type LedgerApplier interface {
	Apply(ev event.Event) error
}

// Client is the remote ledger surface the submitter needs.
type Client interface {
	InitAccount(ctx context.Context) error
	Clock(ctx context.Context) (int64, error)
	SubmitEvent(ctx context.Context, ev event.Event) error
}

// Submitter consumes normalized events and pushes them through the
// clock-stamp, record, submit sequence.
type Submitter struct {
	client Client
	ledger LedgerApplier
	logger *slog.Logger
}

// New creates a submitter.
func New(client Client, ledger LedgerApplier, logger *slog.Logger) *Submitter {
	return &Submitter{
		client: client,
		ledger: ledger,
		logger: logger,
	}
}

// Run processes events until the context is cancelled or the channel
// closes. The agent's ledger account is initialized first; that failing
// is fatal, while per-event failures are logged and the stream
// continues.
func (s *Submitter) Run(ctx context.Context, events <-chan event.Event) error {
	if err := s.client.InitAccount(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.process(ctx, ev)
		}
	}
}

// process handles one event. A clock read failure degrades the stamp
// rather than dropping the event; ledger and submission failures are
// independent of each other.
func (s *Submitter) process(ctx context.Context, ev event.Event) {
	ts, err := s.client.Clock(ctx)
	if err != nil {
		s.logger.Warn("remote clock unavailable", "path", ev.Path, "error", err)
		ev.ReceivedAt = event.ReceivedAtUnknown
	} else {
		ev.ReceivedAt = ts
	}

	if err := s.ledger.Apply(ev); err != nil {
		s.logger.Error("failed to record event in ledger", "path", ev.Path, "error", err)
	}

	if err := s.client.SubmitEvent(ctx, ev); err != nil {
		s.logger.Error("failed to submit event", "path", ev.Path, "type", ev.Type.String(), "error", err)
		return
	}

	s.logger.Debug("event processed", "path", ev.Path, "type", ev.Type.String(), "received_at", ev.ReceivedAt)
}
