//go:build linux

package watcher

import (
	"golang.org/x/sys/unix"

	"github.com/pathledger/pathledger/internal/event"
)

// maskFlags maps each event type to its inotify bit, in ordinal order.
// The raw bitmask vocabulary stays inside this file; everything else in
// the pipeline sees only event.Type.
var maskFlags = [...]struct {
	typ  event.Type
	flag uint32
}{
	{event.AttributeChanged, unix.IN_ATTRIB},
	{event.Created, unix.IN_CREATE},
	{event.Deleted, unix.IN_DELETE},
	{event.MovedFrom, unix.IN_MOVED_FROM},
	{event.MovedTo, unix.IN_MOVED_TO},
	{event.Opened, unix.IN_OPEN},
	{event.Written, unix.IN_CLOSE_WRITE},
}

// decodeMask expands a raw notification mask into domain event types.
// decodeMask walks maskFlags front to back, so identical masks always
// decode to identically ordered types. Unrecognized bits are ignored; a
// mask with no recognized bits decodes to nothing and the record is
// dropped by the extractor.
func decodeMask(mask uint32) []event.Type {
	var types []event.Type
	for _, m := range &maskFlags {
		if mask&m.flag != 0 {
			types = append(types, m.typ)
		}
	}
	return types
}

// watchMask folds the requested event types into an inotify watch mask.
func watchMask(types []event.Type) uint32 {
	var mask uint32
	for _, t := range types {
		for _, m := range &maskFlags {
			if m.typ == t {
				mask |= m.flag
			}
		}
	}
	return mask
}
