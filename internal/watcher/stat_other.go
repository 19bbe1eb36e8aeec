//go:build !linux

package watcher

import "os"

// statTimes extracts timestamps from os.FileInfo. Only the modification
// time is portable; access and birth times vary per platform and are left
// absent here.
func statTimes(info os.FileInfo) (access, modify, created *int64) {
	mod := info.ModTime().UnixNano()
	return nil, &mod, nil
}
