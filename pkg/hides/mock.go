package hides

import (
	"fmt"
	"log"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

// Backend call log entries that are not ioctl operations.
const (
	opOpen  = "open"
	opClose = "close"
	opWrite = "write"
)

// WriteResult scripts the outcome of one mock write: the driver status
// the write returns and the host errno accompanying it.
type WriteResult struct {
	Status int64
	Errno  syscall.Errno
}

// MockBackend stands in for the kernel driver. The daemon's mock mode
// runs the full engine against it, and the package tests use it to script
// driver failures. It records every backend call in order.
//
// The zero value answers every request with zeroed identity; NewMockBackend
// fills in a plausible device.
type MockBackend struct {
	mu sync.Mutex

	// Identity served by the info requests.
	ChipType      uint32
	DeviceType    uint32
	DriverVersion string
	APIVersion    string
	LinkFWVersion string
	OFDMFWVersion string
	Company       string
	HardwareInfo  string

	// Gain state. Adjust requests clamp into [MinGain, MaxGain].
	Gain    int32
	MinGain int32
	MaxGain int32

	ClockRes time.Duration

	// OpenErr fails every open. FailOps makes the named operations report
	// a driver status in their error field; ErrnoOps fails their syscall
	// with an errno instead. WriteScript is consumed one entry per write,
	// after which writes succeed.
	OpenErr     error
	FailOps     map[string]uint32
	ErrnoOps    map[string]syscall.Errno
	WriteScript []WriteResult

	// Call log: operation names in order, write sizes in bytes, and the
	// last parameters each configuration request carried.
	Ops           []string
	Bursts        []int
	LastChannel   txAcquireChannelRequest
	LastModule    txSetModuleRequest
	LastInversion uint8

	fds    map[int]string
	nextFD int
}

// NewMockBackend returns a backend that identifies as an IT9507 Eagle
// transmitter with a small gain range.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		ChipType:      0x9507,
		DeviceType:    11,
		DriverVersion: "16.11.10.1",
		APIVersion:    "1.3.20160929.0",
		LinkFWVersion: "255.39.2.0",
		OFDMFWVersion: "255.9.11.0",
		Company:       "ITEtech",
		HardwareInfo:  "Eagle DVB-T",
		MinGain:       -8,
		MaxGain:       4,
		ClockRes:      time.Millisecond,
	}
}

func (m *MockBackend) open(path string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, opOpen)
	if m.OpenErr != nil {
		return -1, m.OpenErr
	}
	if m.fds == nil {
		m.fds = make(map[int]string)
		m.nextFD = 3
	}
	fd := m.nextFD
	m.nextFD++
	m.fds[fd] = path
	log.Printf("MockHiDes: opened %s as fd %d", path, fd)
	return fd, nil
}

func (m *MockBackend) close(fd int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, opClose)
	if _, ok := m.fds[fd]; !ok {
		return syscall.EBADF
	}
	delete(m.fds, fd)
	log.Printf("MockHiDes: closed fd %d", fd)
	return nil
}

func (m *MockBackend) ioctl(fd int, code uint32, arg unsafe.Pointer) syscall.Errno {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, devErr := decodeRequest(code, arg)
	m.Ops = append(m.Ops, op)

	if _, ok := m.fds[fd]; !ok {
		return syscall.EBADF
	}
	if errno, ok := m.ErrnoOps[op]; ok {
		return errno
	}
	if status, ok := m.FailOps[op]; ok {
		if devErr != nil {
			*devErr = status
		}
		return 0
	}
	m.fill(code, arg)
	return 0
}

func (m *MockBackend) write(fd int, p []byte) (int64, syscall.Errno) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Ops = append(m.Ops, opWrite)
	m.Bursts = append(m.Bursts, len(p))

	if _, ok := m.fds[fd]; !ok {
		return -1, syscall.EBADF
	}
	if len(m.WriteScript) > 0 {
		r := m.WriteScript[0]
		m.WriteScript = m.WriteScript[1:]
		return r.Status, r.Errno
	}
	return 0, 0
}

func (m *MockBackend) clockResolution() time.Duration {
	return m.ClockRes
}

// decodeRequest names the operation an ioctl code carries and locates the
// request's driver error field. Enable and disable TX mode share a code
// and are told apart by the request's OnOff flag.
func decodeRequest(code uint32, arg unsafe.Pointer) (op string, devErr *uint32) {
	switch code {
	case iocGetChipType:
		return opGetChipType, &(*txGetChipTypeRequest)(arg).Error
	case iocGetDeviceType:
		return opGetDeviceType, &(*txGetDeviceTypeRequest)(arg).Error
	case iocGetDriverInfo:
		return opGetDriverInfo, &(*txModDriverInfo)(arg).Error
	case iocEnableTxMode:
		r := (*txModeRequest)(arg)
		if r.OnOff != 0 {
			return opEnableTxMode, &r.Error
		}
		return opDisableTxMode, &r.Error
	case iocStartTransfer:
		return opStartTransfer, &(*txStartTransferRequest)(arg).Error
	case iocStopTransfer:
		return opStopTransfer, &(*txStopTransferRequest)(arg).Error
	case iocAcquireChannel:
		return opAcquireChannel, &(*txAcquireChannelRequest)(arg).Error
	case iocSetModule:
		return opSetModule, &(*txSetModuleRequest)(arg).Error
	case iocSetSpectralInversion:
		return opSetSpectralInversion, &(*txSetSpectralInversionRequest)(arg).Error
	case iocAdjustOutputGain:
		return opAdjustOutputGain, &(*txSetGainRequest)(arg).Error
	case iocGetOutputGain:
		return opGetOutputGain, &(*txGetOutputGainRequest)(arg).Error
	case iocGetGainRange:
		return opGetGainRange, &(*txGetGainRangeRequest)(arg).Error
	default:
		return fmt.Sprintf("ioctl 0x%08X", code), nil
	}
}

// fill writes the happy-path outputs of one request.
func (m *MockBackend) fill(code uint32, arg unsafe.Pointer) {
	switch code {
	case iocGetChipType:
		(*txGetChipTypeRequest)(arg).ChipType = m.ChipType
	case iocGetDeviceType:
		(*txGetDeviceTypeRequest)(arg).DeviceType = m.DeviceType
	case iocGetDriverInfo:
		r := (*txModDriverInfo)(arg)
		putCString(r.DriverVerion[:], m.DriverVersion)
		putCString(r.APIVerion[:], m.APIVersion)
		putCString(r.FWVerionLink[:], m.LinkFWVersion)
		putCString(r.FWVerionOFDM[:], m.OFDMFWVersion)
		putCString(r.Company[:], m.Company)
		putCString(r.SupportHWInfo[:], m.HardwareInfo)
	case iocAcquireChannel:
		m.LastChannel = *(*txAcquireChannelRequest)(arg)
	case iocSetModule:
		m.LastModule = *(*txSetModuleRequest)(arg)
	case iocSetSpectralInversion:
		m.LastInversion = (*txSetSpectralInversionRequest)(arg).IsInversion
	case iocAdjustOutputGain:
		r := (*txSetGainRequest)(arg)
		if r.GainValue < m.MinGain {
			r.GainValue = m.MinGain
		}
		if r.GainValue > m.MaxGain {
			r.GainValue = m.MaxGain
		}
		m.Gain = r.GainValue
	case iocGetOutputGain:
		(*txGetOutputGainRequest)(arg).Gain = m.Gain
	case iocGetGainRange:
		r := (*txGetGainRangeRequest)(arg)
		r.MinGain = m.MinGain
		r.MaxGain = m.MaxGain
	}
}

// putCString copies s into a fixed driver string field, truncating to
// leave room for the terminating NUL.
func putCString(dst []byte, s string) {
	if len(s) >= len(dst) {
		s = s[:len(dst)-1]
	}
	copy(dst, s)
	for i := len(s); i < len(dst); i++ {
		dst[i] = 0
	}
}
