// Package ledger maintains the per-path "latest event" state: a map
// from path to the most recent event seen for it, kept in a growable
// byte region in a deterministic binary encoding.
package ledger

import (
	"log/slog"
	"sort"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// Ledger applies events to the encoded state held in a Storage region.
type Ledger struct {
	storage Storage
	logger  *slog.Logger
}

// New creates a ledger over the given region.
func New(storage Storage, logger *slog.Logger) *Ledger {
	return &Ledger{storage: storage, logger: logger}
}

// Upsert merges one event into an encoded state and returns the new
// encoding. The entry for the event's path is replaced if present and
// added otherwise; no other entry changes.
//
// Undecodable state is treated as empty: the ledger bootstraps fresh
// rather than wedging on a corrupt or zero-filled region.
func (l *Ledger) Upsert(state []byte, ev event.Event) ([]byte, error) {
	entries, err := decodeEntries(state)
	if err != nil {
		l.logger.Warn("ledger state undecodable, starting fresh", "error", err, "state_len", len(state))
		entries = make(map[string]event.Event)
	}

	if prev, ok := entries[ev.Path]; ok {
		l.logger.Debug("replacing previous event",
			"path", ev.Path,
			"previous_type", prev.Type.String(),
			"type", ev.Type.String())
	}
	entries[ev.Path] = ev

	return encodeEntries(entries), nil
}

// Apply reads the region, merges the event, and writes the result back,
// resizing the region first when the encoded length changed.
func (l *Ledger) Apply(ev event.Event) error {
	state, err := l.storage.Read()
	if err != nil {
		return err
	}

	next, err := l.Upsert(state, ev)
	if err != nil {
		return err
	}

	if len(next) != len(state) {
		if err := l.storage.Resize(len(next)); err != nil {
			return err
		}
	}

	return l.storage.Write(next)
}

// Snapshot decodes and returns the current entries.
func (l *Ledger) Snapshot() (map[string]event.Event, error) {
	state, err := l.storage.Read()
	if err != nil {
		return nil, err
	}
	return decodeEntries(state)
}

// encodeEntries produces the deterministic encoding of the entries: a
// u32 entry count, then each path and its event, sorted by path so that
// identical content always yields identical bytes.
func encodeEntries(entries map[string]event.Event) []byte {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	//nolint:gosec // G115: entry counts are far below uint32 range
	buf := event.AppendUint32(nil, uint32(len(entries)))
	for _, k := range keys {
		buf = event.AppendString(buf, k)
		buf = event.AppendEvent(buf, entries[k])
	}
	return buf
}

// decodeEntries parses an encoded state. Empty input decodes to an
// empty map; anything else must parse exactly, trailing bytes included.
func decodeEntries(data []byte) (map[string]event.Event, error) {
	entries := make(map[string]event.Event)
	if len(data) == 0 {
		return entries, nil
	}

	d := event.NewDecoder(data)
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < count; i++ {
		key, err := d.String()
		if err != nil {
			return nil, err
		}
		ev, err := d.Event()
		if err != nil {
			return nil, err
		}
		entries[key] = ev
	}

	if d.Remaining() != 0 {
		return nil, errors.Serializationf("%d trailing bytes after %d ledger entries", d.Remaining(), count)
	}
	return entries, nil
}
