// Transcription of the IT950x vendor driver interface (usb-it950x.h):
// request structures and ioctl command numbers for the modulator half of
// the driver. Scalar widths follow the vendor typedefs (Byte = uint8,
// Dword = uint32); layouts rely on natural alignment, which matches the
// kernel's view of the same structs. Every request carries an Error field
// the driver writes, plus a reserved tail.

package hides

import "unsafe"

// Classic Linux _IOC encoding.
const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

// itMagic is the ioctl magic the vendor driver registers.
const itMagic = 'k'

// iowr builds a read/write ioctl command number. Every modulator request
// is bidirectional: the caller fills inputs, the driver writes results and
// the error field back.
func iowr(nr, size uintptr) uint32 {
	return uint32(iocRead|iocWrite)<<iocDirShift |
		uint32(itMagic)<<iocTypeShift |
		uint32(nr)<<iocNrShift |
		uint32(size)<<iocSizeShift
}

// Operation names for error messages and the mock backend's call log.
// Enable and disable share one ioctl but are distinct operations.
const (
	opGetChipType          = "get chip type"
	opGetDeviceType        = "get device type"
	opGetDriverInfo        = "get driver info"
	opEnableTxMode         = "enable transmission mode"
	opDisableTxMode        = "disable transmission mode"
	opStartTransfer        = "start transfer"
	opStopTransfer         = "stop transfer"
	opAcquireChannel       = "acquire channel"
	opSetModule            = "set modulation"
	opSetSpectralInversion = "set spectral inversion"
	opAdjustOutputGain     = "adjust output gain"
	opGetOutputGain        = "get output gain"
	opGetGainRange         = "get gain range"
)

var (
	iocGetChipType          = iowr(0x01, unsafe.Sizeof(txGetChipTypeRequest{}))
	iocGetDeviceType        = iowr(0x02, unsafe.Sizeof(txGetDeviceTypeRequest{}))
	iocGetDriverInfo        = iowr(0x03, unsafe.Sizeof(txModDriverInfo{}))
	iocEnableTxMode         = iowr(0x04, unsafe.Sizeof(txModeRequest{}))
	iocStartTransfer        = iowr(0x05, unsafe.Sizeof(txStartTransferRequest{}))
	iocStopTransfer         = iowr(0x06, unsafe.Sizeof(txStopTransferRequest{}))
	iocAcquireChannel       = iowr(0x14, unsafe.Sizeof(txAcquireChannelRequest{}))
	iocSetModule            = iowr(0x15, unsafe.Sizeof(txSetModuleRequest{}))
	iocSetSpectralInversion = iowr(0x16, unsafe.Sizeof(txSetSpectralInversionRequest{}))
	iocAdjustOutputGain     = iowr(0x17, unsafe.Sizeof(txSetGainRequest{}))
	iocGetOutputGain        = iowr(0x18, unsafe.Sizeof(txGetOutputGainRequest{}))
	iocGetGainRange         = iowr(0x19, unsafe.Sizeof(txGetGainRangeRequest{}))
)

type txGetChipTypeRequest struct {
	ChipType uint32
	Error    uint32
	Reserved [16]byte
}

type txGetDeviceTypeRequest struct {
	DeviceType uint32
	Error      uint32
	Reserved   [16]byte
}

// txModDriverInfo carries the driver and firmware identity strings.
// Field spellings ("Verion") follow the vendor header.
type txModDriverInfo struct {
	DriverVerion  [16]byte
	APIVerion     [32]byte
	FWVerionLink  [16]byte
	FWVerionOFDM  [16]byte
	DateTime      [24]byte
	Company       [8]byte
	SupportHWInfo [32]byte
	Error         uint32
	Reserved      [128]byte
}

// txModeRequest enables (OnOff=1) or disables (OnOff=0) transmit mode.
type txModeRequest struct {
	OnOff    uint8
	Error    uint32
	Reserved [16]byte
}

type txStartTransferRequest struct {
	Error    uint32
	Reserved [16]byte
}

type txStopTransferRequest struct {
	Error    uint32
	Reserved [16]byte
}

type txAcquireChannelRequest struct {
	Frequency uint32 // kHz
	Bandwidth uint32 // kHz
	Error     uint32
	Reserved  [16]byte
}

// txSetModuleRequest carries the DVB-T modulation parameters as driver
// byte codes. LowCodeRate belongs to the hierarchical mode the modulator
// does not implement; it stays zero.
type txSetModuleRequest struct {
	Constellation    uint8
	HighCodeRate     uint8
	LowCodeRate      uint8
	Interval         uint8
	TransmissionMode uint8
	Error            uint32
	Reserved         [16]byte
}

type txSetSpectralInversionRequest struct {
	IsInversion uint8
	Error       uint32
	Reserved    [16]byte
}

// txSetGainRequest is in/out: the caller requests a gain in dB, the driver
// writes back the value actually applied.
type txSetGainRequest struct {
	GainValue int32
	Error     uint32
	Reserved  [16]byte
}

type txGetOutputGainRequest struct {
	Gain     int32 // dB
	Error    uint32
	Reserved [16]byte
}

type txGetGainRangeRequest struct {
	Frequency uint32 // kHz
	Bandwidth uint32 // kHz
	MaxGain   int32  // dB
	MinGain   int32  // dB
	Error     uint32
	Reserved  [16]byte
}
