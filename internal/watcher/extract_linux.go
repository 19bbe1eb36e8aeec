//go:build linux

package watcher

import (
	"log/slog"
	"path/filepath"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// rawRecord is one kernel notification: the directory of the watch it was
// reported against, the raw mask, and the entry name. The name is empty
// when the notification refers to the watched directory itself.
type rawRecord struct {
	dir  string
	name string
	mask uint32
}

// extractBatch turns one blocking read's worth of raw records into
// normalized events.
//
// A raw mask can encode several event kinds at once, so each record may
// yield multiple events, in decodeMask's fixed order. Metadata is read at
// most once per distinct path per batch: the cache lives for exactly one
// call, which bounds stat cost when a burst of records hits the same file.
// A failed read degrades that path's events to carry no metadata; it never
// aborts the batch.
func extractBatch(recs []rawRecord, stat metadataFunc, logger *slog.Logger) []event.Event {
	infos := make(map[string]*event.FileInfo)
	var out []event.Event

	for _, rec := range recs {
		if rec.name == "" {
			// No addressable path, nothing to report.
			continue
		}

		types := decodeMask(rec.mask)
		if len(types) == 0 {
			continue
		}

		path := filepath.Join(rec.dir, rec.name)

		info, attempted := infos[path]
		if !attempted && needsMetadata(types) {
			info = readInfo(path, stat, logger)
			infos[path] = info
		}

		for _, typ := range types {
			ev := event.Event{
				Path:       path,
				Type:       typ,
				ReceivedAt: event.ReceivedAtUnassigned,
			}
			// Metadata for a removed file would be stale and misleading,
			// so Deleted events never carry it, cached or not.
			if typ != event.Deleted && info != nil {
				snapshot := *info
				ev.Info = &snapshot
			}
			out = append(out, ev)
		}
	}

	return out
}

// needsMetadata reports whether any decoded type wants a metadata
// snapshot. A record that decodes to Deleted alone never triggers a stat.
func needsMetadata(types []event.Type) bool {
	for _, t := range types {
		if t != event.Deleted {
			return true
		}
	}
	return false
}

// readInfo reads a path's metadata, degrading to nil on failure.
func readInfo(path string, stat metadataFunc, logger *slog.Logger) *event.FileInfo {
	fi, err := stat(path)
	if err != nil {
		// NotFound is the file vanishing under us, a normal outcome.
		if !errors.Is(err, errors.ErrNotFound) {
			logger.Warn("failed to read file metadata", "path", path, "error", err)
		}
		return nil
	}
	return &fi
}
