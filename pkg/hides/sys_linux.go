//go:build linux

package hides

import (
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type linuxSys struct{}

func newSysops() sysops { return linuxSys{} }

func (linuxSys) open(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}

func (linuxSys) close(fd int) error {
	return unix.Close(fd)
}

func (linuxSys) ioctl(fd int, code uint32, arg unsafe.Pointer) syscall.Errno {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(code), uintptr(arg))
	return errno
}

func (linuxSys) write(fd int, p []byte) (int64, syscall.Errno) {
	var base unsafe.Pointer
	if len(p) > 0 {
		base = unsafe.Pointer(&p[0])
	}
	r1, _, errno := unix.Syscall(unix.SYS_WRITE, uintptr(fd), uintptr(base), uintptr(len(p)))
	// Conversion through int keeps the -1 error return negative on 32-bit
	// targets.
	return int64(int(r1)), errno
}

func (linuxSys) clockResolution() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}
