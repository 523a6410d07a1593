//go:build linux

package logfork

import "golang.org/x/sys/unix"

func currentIDs() (pid, tid uint32) {
	return uint32(unix.Getpid()), uint32(unix.Gettid())
}
