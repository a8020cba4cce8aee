package hides

import (
	"unsafe"

	"github.com/dvbtx/hidesd/pkg/dvbt"
)

// SetGain asks the driver to adjust the output gain to the requested dB
// value and returns the gain actually applied, which the hardware may
// have clamped.
func (d *Device) SetGain(gain int) (int, error) {
	if d.fd < 0 {
		return 0, d.reportErr(ErrNotOpen)
	}
	req := txSetGainRequest{GainValue: int32(gain)}
	if err := d.ioctlRequest(opAdjustOutputGain, iocAdjustOutputGain, unsafe.Pointer(&req), &req.Error); err != nil {
		return 0, d.reportErr(err)
	}
	d.rep.Debugf("%s output gain set to %d dB", d.info.Path, req.GainValue)
	return int(req.GainValue), nil
}

// GetGain returns the current output gain in dB.
func (d *Device) GetGain() (int, error) {
	if d.fd < 0 {
		return 0, d.reportErr(ErrNotOpen)
	}
	var req txGetOutputGainRequest
	if err := d.ioctlRequest(opGetOutputGain, iocGetOutputGain, unsafe.Pointer(&req), &req.Error); err != nil {
		return 0, d.reportErr(err)
	}
	return int(req.Gain), nil
}

// GainRange returns the hardware's minimum and maximum output gain in dB
// for a frequency and bandwidth. The range depends on both.
func (d *Device) GainRange(frequency uint64, bandwidth dvbt.Bandwidth) (min, max int, err error) {
	if d.fd < 0 {
		return 0, 0, d.reportErr(ErrNotOpen)
	}
	bandwidthKHz := bandwidth.KHz()
	if bandwidthKHz == 0 {
		return 0, 0, d.reportErr(&UnsupportedParameterError{Which: "bandwidth", Value: bandwidth.String()})
	}
	req := txGetGainRangeRequest{
		Frequency: uint32(frequency / 1000),
		Bandwidth: uint32(bandwidthKHz),
	}
	if err := d.ioctlRequest(opGetGainRange, iocGetGainRange, unsafe.Pointer(&req), &req.Error); err != nil {
		return 0, 0, d.reportErr(err)
	}
	return int(req.MinGain), int(req.MaxGain), nil
}
