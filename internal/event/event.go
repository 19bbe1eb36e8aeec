// Package event defines the normalized file-system event model and its
// deterministic binary wire format. Events originate in the watcher, are
// stamped by the submission pipeline, and end up as ledger entries keyed
// by path.
package event

import (
	"strings"

	"github.com/pathledger/pathledger/internal/errors"
)

// Type identifies the kind of file-system change an Event describes.
//
// The ordinal values are part of the wire format: they are the tag bytes of
// the serialized representation and must never be reordered.
type Type uint8

const (
	// AttributeChanged is emitted when a file's metadata changes.
	AttributeChanged Type = iota
	// Created is emitted when a file or directory appears.
	Created
	// Deleted is emitted when a file or directory is removed.
	Deleted
	// MovedFrom is emitted when a file is moved out of the watched tree.
	MovedFrom
	// MovedTo is emitted when a file is moved into the watched tree.
	MovedTo
	// Opened is emitted when a file is opened.
	Opened
	// Written is emitted when a file is closed after being written.
	Written

	numTypes
)

// String returns the canonical name of the event type.
func (t Type) String() string {
	switch t {
	case AttributeChanged:
		return "AttributeChanged"
	case Created:
		return "Created"
	case Deleted:
		return "Deleted"
	case MovedFrom:
		return "MovedFrom"
	case MovedTo:
		return "MovedTo"
	case Opened:
		return "Opened"
	case Written:
		return "Written"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the defined event types.
func (t Type) Valid() bool {
	return t < numTypes
}

// AllTypes returns every defined event type in ordinal order.
func AllTypes() []Type {
	types := make([]Type, 0, numTypes)
	for t := Type(0); t < numTypes; t++ {
		types = append(types, t)
	}
	return types
}

// ParseType converts a configuration string like "written" or
// "moved_from" into its event type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attribute_changed", "attrib":
		return AttributeChanged, nil
	case "created", "create":
		return Created, nil
	case "deleted", "delete":
		return Deleted, nil
	case "moved_from":
		return MovedFrom, nil
	case "moved_to":
		return MovedTo, nil
	case "opened", "open":
		return Opened, nil
	case "written", "write":
		return Written, nil
	default:
		return 0, errors.Configurationf("unknown event type %q", s)
	}
}

// ParseTypes converts a list of configuration strings into event types.
func ParseTypes(names []string) ([]Type, error) {
	types := make([]Type, 0, len(names))
	for _, name := range names {
		t, err := ParseType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// ReceivedAt sentinel values. The watcher never assigns timestamps; the
// meaningful notion of "received time" is the remote ledger's clock, read
// by the submitter just before submission.
const (
	// ReceivedAtUnassigned marks an event that has not passed through the
	// submitter yet.
	ReceivedAtUnassigned int64 = 0
	// ReceivedAtUnknown marks an event submitted while the remote clock
	// was unavailable.
	ReceivedAtUnknown int64 = -1
)

// FileInfo is a snapshot of file metadata taken when the event was
// extracted. Timestamps are unix nanoseconds; any of them may be absent
// when the file system does not report them.
type FileInfo struct {
	AccessTS  *int64
	ModifyTS  *int64
	CreatedTS *int64

	Size uint64
	Mode uint32
}

// Event is one normalized file-system change.
type Event struct {
	// Path is the absolute path the event refers to.
	Path string

	// Type is the kind of change.
	Type Type

	// ReceivedAt is the remote ledger clock value (unix seconds) assigned
	// by the submitter. ReceivedAtUnassigned until then.
	ReceivedAt int64

	// Info is the metadata snapshot. Always nil for Deleted events, and
	// nil when the metadata read failed.
	Info *FileInfo
}

// String returns "path: Type" for logging.
func (e Event) String() string {
	return e.Path + ": " + e.Type.String()
}
