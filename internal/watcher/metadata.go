package watcher

import (
	"os"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// metadataFunc reads a path's metadata snapshot. Swappable in tests.
type metadataFunc func(path string) (event.FileInfo, error)

// readFileInfo stats path and builds the metadata snapshot attached to
// events. A vanished path yields ErrNotFound, which callers treat as an
// expected outcome for fast-moving files, never logging it as an error.
func readFileInfo(path string) (event.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return event.FileInfo{}, errors.Wrapf(err, errors.CodeNotFound, "path vanished: %s", path)
		}
		return event.FileInfo{}, errors.Wrapf(err, errors.CodeIO, "failed to stat %s", path)
	}

	fi := event.FileInfo{
		//nolint:gosec // G115: sizes reported by stat are non-negative
		Size: uint64(info.Size()),
		Mode: uint32(info.Mode().Perm()),
	}
	fi.AccessTS, fi.ModifyTS, fi.CreatedTS = statTimes(info)
	return fi, nil
}
