// Package hides drives HiDes / ITE IT950x USB DVB-T modulators through the
// vendor kernel driver: device discovery, open/close lifecycle, channel
// tuning via structured ioctls, and a bitrate-regulated transmission engine
// that feeds 188-byte transport packets to the character device.
//
// A Device is single-caller: its operations mutate handle state and must be
// serialized by the owner (the daemon engine does this behind its own
// mutex). Handles to distinct devices are independent.
package hides

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
	"unsafe"
)

// DeviceNodePattern matches the device nodes the vendor driver creates.
const DeviceNodePattern = "/dev/usb-it95?x*"

// rxNameMarker flags receiver-variant nodes, which cannot transmit.
const rxNameMarker = "-rx"

// DeviceInfo describes one modulator, collected at open time from the
// three driver identity requests. Immutable after a successful open.
type DeviceInfo struct {
	Index      int    `json:"index"` // -1 when opened directly by path
	Name       string `json:"name"`
	Path       string `json:"path"`
	ChipType   uint16 `json:"chip_type"`
	DeviceType int    `json:"device_type"`

	DriverVersion string `json:"driver_version"`
	APIVersion    string `json:"api_version"`
	LinkFWVersion string `json:"link_fw_version"`
	OFDMFWVersion string `json:"ofdm_fw_version"`
	Company       string `json:"company"`
	HardwareInfo  string `json:"hardware_info"`
}

// String renders the info as aligned "name: value" lines, one field per
// line, empty fields omitted.
func (i DeviceInfo) String() string {
	var b strings.Builder
	line := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-16s %s\n", name+":", value)
		}
	}
	if i.Index >= 0 {
		line("index", fmt.Sprintf("%d", i.Index))
	} else {
		line("index", "unknown")
	}
	line("name", i.Name)
	line("path", i.Path)
	line("chip type", fmt.Sprintf("0x%04X", i.ChipType))
	line("device type", fmt.Sprintf("%d", i.DeviceType))
	line("driver version", i.DriverVersion)
	line("API version", i.APIVersion)
	line("link firmware", i.LinkFWVersion)
	line("OFDM firmware", i.OFDMFWVersion)
	line("company", i.Company)
	line("hardware info", i.HardwareInfo)
	return b.String()
}

// Stats is a snapshot of the per-session transmission counters.
type Stats struct {
	Transmitting bool   `json:"transmitting"`
	Bitrate      uint64 `json:"bitrate"`       // b/s, from the last successful tune
	BytesSent    uint64 `json:"bytes_sent"`    // bytes accepted by the driver this session
	Writes       uint64 `json:"writes"`        // write syscalls attempted
	FailedWrites uint64 `json:"failed_writes"` // writes that returned a non-zero status
}

// Device is a handle to one modulator. The zero value is not usable;
// construct with NewDevice or NewMockDevice, then open.
type Device struct {
	rep Reporter
	sys sysops

	fd   int
	info DeviceInfo

	transmitting bool
	bitrate      uint64
	pace         pacer

	// Session counters, reset by StartTransmission. pktSent counts
	// driver-facing bytes, the unit the pacing arithmetic works in.
	pktSent   uint64
	allWrite  uint64
	failWrite uint64
}

// NewDevice returns a closed handle backed by the real kernel driver.
// rep may be nil, which logs through the standard logger.
func NewDevice(rep Reporter) *Device {
	return newDevice(rep, newSysops())
}

// NewMockDevice returns a closed handle driven by the given mock backend
// instead of the kernel. The daemon's mock mode and the package tests run
// the full engine this way.
func NewMockDevice(rep Reporter, mock *MockBackend) *Device {
	return newDevice(rep, mock)
}

func newDevice(rep Reporter, sys sysops) *Device {
	if rep == nil {
		rep = StdReporter{}
	}
	return &Device{rep: rep, sys: sys, fd: -1, pace: newPacer()}
}

// ListDeviceNodes returns the transmitter device nodes present on the host
// in lexical order. Receiver variants are filtered out. The position of a
// path in the result is its device index.
func ListDeviceNodes() ([]string, error) {
	paths, err := filepath.Glob(DeviceNodePattern)
	if err != nil {
		return nil, fmt.Errorf("device node scan: %w", err)
	}
	return filterDeviceNodes(paths), nil
}

func filterDeviceNodes(paths []string) []string {
	sort.Strings(paths)
	nodes := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.Contains(filepath.Base(p), rxNameMarker) {
			continue
		}
		nodes = append(nodes, p)
	}
	return nodes
}

// ListDevices opens every transmitter node transiently to collect its
// DeviceInfo. Per-device failures are reported and leave a partially
// filled entry; only a failing node scan aborts the listing.
func ListDevices(rep Reporter) ([]DeviceInfo, error) {
	if rep == nil {
		rep = StdReporter{}
	}
	nodes, err := ListDeviceNodes()
	if err != nil {
		return nil, err
	}
	infos := make([]DeviceInfo, 0, len(nodes))
	for i, path := range nodes {
		dev := NewDevice(rep)
		if err := dev.openPath(path, i); err != nil {
			rep.Errorf("listing %s: %v", path, err)
		}
		infos = append(infos, dev.info)
		dev.Close()
	}
	return infos, nil
}

// OpenIndex opens the index-th transmitter node as listed by
// ListDeviceNodes.
func (d *Device) OpenIndex(index int) error {
	if d.fd >= 0 {
		return d.reportErr(ErrAlreadyOpen)
	}
	nodes, err := ListDeviceNodes()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(nodes) {
		return d.reportErr(fmt.Errorf("device index %d: %w", index, ErrNotFound))
	}
	return d.openPath(nodes[index], index)
}

// OpenPath opens a transmitter by device node path. The resulting info
// carries index -1 (unknown).
func (d *Device) OpenPath(path string) error {
	if d.fd >= 0 {
		return d.reportErr(ErrAlreadyOpen)
	}
	return d.openPath(path, -1)
}

func (d *Device) openPath(path string, index int) error {
	d.info = DeviceInfo{Index: index, Name: filepath.Base(path), Path: path}

	fd, err := d.sys.open(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		d.rep.Errorf("opening %s: %v", path, err)
		return err
	}
	d.fd = fd

	// All three identity requests are attempted so that every failure gets
	// reported, but a single failure still fails the open as a whole.
	var firstErr error

	var chip txGetChipTypeRequest
	if err := d.ioctlRequest(opGetChipType, iocGetChipType, unsafe.Pointer(&chip), &chip.Error); err != nil {
		d.rep.Errorf("%v", err)
		firstErr = err
	} else {
		d.info.ChipType = uint16(chip.ChipType)
	}

	var dtype txGetDeviceTypeRequest
	if err := d.ioctlRequest(opGetDeviceType, iocGetDeviceType, unsafe.Pointer(&dtype), &dtype.Error); err != nil {
		d.rep.Errorf("%v", err)
		if firstErr == nil {
			firstErr = err
		}
	} else {
		d.info.DeviceType = int(dtype.DeviceType)
	}

	var drv txModDriverInfo
	if err := d.ioctlRequest(opGetDriverInfo, iocGetDriverInfo, unsafe.Pointer(&drv), &drv.Error); err != nil {
		d.rep.Errorf("%v", err)
		if firstErr == nil {
			firstErr = err
		}
	} else {
		d.info.DriverVersion = cstring(drv.DriverVerion[:])
		d.info.APIVersion = cstring(drv.APIVerion[:])
		d.info.LinkFWVersion = cstring(drv.FWVerionLink[:])
		d.info.OFDMFWVersion = cstring(drv.FWVerionOFDM[:])
		d.info.Company = cstring(drv.Company[:])
		d.info.HardwareInfo = cstring(drv.SupportHWInfo[:])
	}

	if firstErr != nil {
		d.sys.close(d.fd)
		d.fd = -1
		return firstErr
	}

	d.rep.Debugf("opened %s (chip type 0x%04X)", path, d.info.ChipType)
	return nil
}

// Close is idempotent. A transmitting device is stopped first: both stop
// requests are always issued, in order, and their errors are discarded,
// because the descriptor must be released no matter what.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	if d.transmitting {
		var stop txStopTransferRequest
		_ = d.ioctlRequest(opStopTransfer, iocStopTransfer, unsafe.Pointer(&stop), &stop.Error)
		var mode txModeRequest
		_ = d.ioctlRequest(opDisableTxMode, iocEnableTxMode, unsafe.Pointer(&mode), &mode.Error)
		d.transmitting = false
	}
	err := d.sys.close(d.fd)
	d.fd = -1
	return err
}

// IsOpen reports whether the handle owns a descriptor.
func (d *Device) IsOpen() bool { return d.fd >= 0 }

// Transmitting reports whether the handle is between a successful start
// and stop.
func (d *Device) Transmitting() bool { return d.transmitting }

// Bitrate returns the nominal bitrate stored by the last successful tune,
// 0 when transmission is unregulated.
func (d *Device) Bitrate() uint64 { return d.bitrate }

// Info returns the device description collected at open time.
func (d *Device) Info() DeviceInfo { return d.info }

// Stats returns a snapshot of the transmission counters.
func (d *Device) Stats() Stats {
	return Stats{
		Transmitting: d.transmitting,
		Bitrate:      d.bitrate,
		BytesSent:    d.pktSent,
		Writes:       d.allWrite,
		FailedWrites: d.failWrite,
	}
}

// ioctlRequest issues one driver request. The call fails when the syscall
// itself fails or when the driver writes a non-zero value into the
// request's error field; both channels fold into the returned IoctlError.
// Request structs arrive zero-initialized from the callers.
func (d *Device) ioctlRequest(op string, code uint32, arg unsafe.Pointer, devErr *uint32) error {
	errno := d.sys.ioctl(d.fd, code, arg)
	if errno != 0 || *devErr != 0 {
		return &IoctlError{Op: op, Path: d.info.Path, DriverStatus: int64(*devErr), Errno: errno}
	}
	return nil
}

// reportErr logs err through the report sink and returns it. Ioctl and
// write errors carry the device path themselves.
func (d *Device) reportErr(err error) error {
	d.rep.Errorf("%v", err)
	return err
}

// cstring decodes a fixed-size NUL-padded driver string. The final byte is
// forced to NUL first so an unterminated field cannot run past its array;
// invalid UTF-8 decodes with replacement runes.
func cstring(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	b[len(b)-1] = 0
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// clockPrecisionOnce guards the process-wide monotonic clock resolution
// probe performed at the first transmission start.
var clockPrecisionOnce sync.Once
