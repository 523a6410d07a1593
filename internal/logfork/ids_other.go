//go:build !linux

package logfork

import "os"

// Thread IDs are not exposed portably; the pid stands in.
func currentIDs() (pid, tid uint32) {
	pid = uint32(os.Getpid())
	return pid, pid
}
