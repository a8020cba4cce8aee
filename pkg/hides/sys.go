package hides

import (
	"syscall"
	"time"
	"unsafe"
)

// sysops is the thin seam between the device handle and the kernel. The
// real implementation is platform-specific; MockBackend substitutes a
// scripted driver for tests and for the daemon's mock mode.
type sysops interface {
	open(path string) (int, error)
	close(fd int) error
	ioctl(fd int, code uint32, arg unsafe.Pointer) syscall.Errno
	// write issues one raw write(2) and returns its signed return value
	// untouched. The modulator driver uses that value as a status code
	// (0 = whole buffer accepted, anything else = driver error), never as
	// a byte count.
	write(fd int, p []byte) (int64, syscall.Errno)
	clockResolution() time.Duration
}
