//go:build !linux

package hides

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"
)

// Non-Linux hosts get a stub backend so the package still builds for
// development; the vendor driver only exists on Linux.
type fallbackSys struct{}

func newSysops() sysops { return fallbackSys{} }

func (fallbackSys) open(path string) (int, error) {
	return -1, fmt.Errorf("IT950x device access requires Linux")
}

func (fallbackSys) close(fd int) error { return nil }

func (fallbackSys) ioctl(fd int, code uint32, arg unsafe.Pointer) syscall.Errno {
	return syscall.ENOSYS
}

func (fallbackSys) write(fd int, p []byte) (int64, syscall.Errno) {
	return -1, syscall.ENOSYS
}

func (fallbackSys) clockResolution() time.Duration { return 0 }
