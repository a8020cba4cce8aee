package hides

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel errors for the handle state machine.
var (
	// ErrNotOpen is returned by operations that need an open device.
	ErrNotOpen = errors.New("device not open")
	// ErrAlreadyOpen is returned by a repeated open attempt.
	ErrAlreadyOpen = errors.New("device already open")
	// ErrNotFound is returned when an index is out of range or a device
	// node does not exist.
	ErrNotFound = errors.New("device not found")
	// ErrNotTransmitting is returned by send and stop when transmission
	// was never started.
	ErrNotTransmitting = errors.New("device not transmitting")
	// ErrTransmitting is returned by start when transmission is already
	// running.
	ErrTransmitting = errors.New("device already transmitting")
)

// IoctlError reports a failed driver request: the syscall failed, the
// driver wrote a non-zero value into the request's error field, or both.
type IoctlError struct {
	Op           string
	Path         string
	DriverStatus int64
	Errno        syscall.Errno
}

func (e *IoctlError) Error() string {
	msg := HiDesErrorMessage(e.DriverStatus, e.Errno)
	if msg == "" {
		return fmt.Sprintf("%s: %s failed", e.Path, e.Op)
	}
	return fmt.Sprintf("%s: %s failed: %s", e.Path, e.Op, msg)
}

// WriteError reports a burst that exhausted its retry budget in send.
type WriteError struct {
	Path         string
	DriverStatus int64
	Errno        syscall.Errno
}

func (e *WriteError) Error() string {
	msg := HiDesErrorMessage(e.DriverStatus, e.Errno)
	if msg == "" {
		return fmt.Sprintf("%s: write failed", e.Path)
	}
	return fmt.Sprintf("%s: write failed: %s", e.Path, msg)
}

// UnsupportedParameterError reports a tuning or gain parameter outside the
// set the modulator supports.
type UnsupportedParameterError struct {
	Which string
	Value string
}

func (e *UnsupportedParameterError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("unsupported %s", e.Which)
	}
	return fmt.Sprintf("unsupported %s %s", e.Which, e.Value)
}

// hidesErrorNames is a transcribed subset of the vendor SDK error table.
// Codes without an entry render as bare hex.
var hidesErrorNames = map[uint32]string{
	0x01: "reserved",
	0x02: "invalid device type",
	0x03: "invalid generate mechanism",
	0x04: "null pointer",
	0x05: "invalid pointer",
	0x06: "invalid operation",
	0x07: "load firmware failed",
	0x08: "invalid crystal frequency",
	0x09: "invalid tuner type",
	0x0A: "boot failed",
	0x0B: "invalid bus type",
	0x0C: "write register timeout",
	0x0D: "read register timeout",
	0x0E: "write tuner timeout",
	0x0F: "read tuner timeout",
	0x10: "invalid baud rate",
	0x11: "firmware not ready",
	0x12: "reboot failed",
	0x13: "unsupported architecture",
	0x14: "invalid register address",
	0x15: "invalid index",
	0x16: "read timeout",
	0x17: "write timeout",
	0x18: "channel scan timeout",
	0x19: "unsupported channel",
	0x1A: "invalid channel",
	0x1B: "no such address",
	0x1C: "interface not supported",
	0x1D: "interface locked",
	0x1E: "invalid handle",
	0x1F: "unsupported interface",
	0x20: "command timeout",
	0x37: "not supported",
	0x38: "not implemented",
	0x39: "resource busy",
	0x3A: "out of memory",
	0x3B: "buffer insufficient",
	0x3C: "not ready",
	0x3D: "driver invalid state",
}

// HiDesErrorMessage renders the combination of a driver status code and a
// host errno as a human-readable string. A non-zero status is rendered
// hex-first with its symbolic name when known; a non-zero errno distinct
// from the status appends its system message after a comma. Both zero
// yields the empty string.
func HiDesErrorMessage(driverStatus int64, errno syscall.Errno) string {
	var msg string
	// Driver status codes can arrive negative; the table is keyed on the
	// absolute value. Zero means no driver error.
	if driverStatus != 0 {
		status := driverStatus
		if status < 0 {
			status = -status
		}
		if name, ok := hidesErrorNames[uint32(status)]; ok {
			msg = fmt.Sprintf("0x%08X (%s)", uint32(status), name)
		} else {
			msg = fmt.Sprintf("0x%08X", uint32(status))
		}
	}
	if errno != 0 && int64(errno) != driverStatus {
		if msg != "" {
			msg += ", "
		}
		msg += errno.Error()
	}
	return msg
}
