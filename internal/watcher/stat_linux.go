//go:build linux

package watcher

import (
	"os"
	"syscall"
)

// statTimes extracts access/modify/creation timestamps (unix nanoseconds)
// from os.FileInfo. Birth time would need statx(2) and not every file
// system reports one, so CreatedTS stays absent on Linux.
func statTimes(info os.FileInfo) (access, modify, created *int64) {
	mod := info.ModTime().UnixNano()
	modify = &mod

	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		a := stat.Atim.Nano()
		access = &a
	}
	return access, modify, nil
}
