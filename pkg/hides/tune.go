package hides

import (
	"unsafe"

	"github.com/dvbtx/hidesd/pkg/dvbt"
)

// The IT950x driver takes modulation parameters as single-byte codes from
// its own header. The tables below are the fixed bijection between the
// dvbt enumerations and those codes; anything absent is not supported by
// this hardware.

func constellationCode(c dvbt.Constellation) (uint8, error) {
	switch c {
	case dvbt.QPSK:
		return 0, nil
	case dvbt.QAM16:
		return 1, nil
	case dvbt.QAM64:
		return 2, nil
	default:
		return 0, &UnsupportedParameterError{Which: "constellation", Value: c.String()}
	}
}

func codeRateCode(r dvbt.CodeRate) (uint8, error) {
	switch r {
	case dvbt.Rate1_2:
		return 0, nil
	case dvbt.Rate2_3:
		return 1, nil
	case dvbt.Rate3_4:
		return 2, nil
	case dvbt.Rate5_6:
		return 3, nil
	case dvbt.Rate7_8:
		return 4, nil
	default:
		return 0, &UnsupportedParameterError{Which: "code rate", Value: r.String()}
	}
}

func guardCode(g dvbt.GuardInterval) (uint8, error) {
	switch g {
	case dvbt.Guard1_32:
		return 0, nil
	case dvbt.Guard1_16:
		return 1, nil
	case dvbt.Guard1_8:
		return 2, nil
	case dvbt.Guard1_4:
		return 3, nil
	default:
		return 0, &UnsupportedParameterError{Which: "guard interval", Value: g.String()}
	}
}

func modeCode(m dvbt.TransmissionMode) (uint8, error) {
	switch m {
	case dvbt.Mode2K:
		return 0, nil
	case dvbt.Mode4K:
		return 1, nil
	case dvbt.Mode8K:
		return 2, nil
	default:
		return 0, &UnsupportedParameterError{Which: "transmission mode", Value: m.String()}
	}
}

// inversionCode returns the driver flag and whether the inversion request
// should be issued at all. Auto leaves the driver default untouched.
func inversionCode(i dvbt.SpectralInversion) (uint8, bool, error) {
	switch i {
	case dvbt.InversionAuto:
		return 0, false, nil
	case dvbt.InversionOff:
		return 0, true, nil
	case dvbt.InversionOn:
		return 1, true, nil
	default:
		return 0, false, &UnsupportedParameterError{Which: "spectral inversion", Value: i.String()}
	}
}

// Tune programs the modulator for one channel: acquire the channel
// (frequency and bandwidth), set the modulation parameters, then set
// spectral inversion unless it is auto. Validation happens up front, so a
// bad parameter never reaches the driver, and the first driver failure
// stops the sequence. On full success the handle stores the parameter
// set's theoretical bitrate for the send pacer.
func (d *Device) Tune(params dvbt.TuneParameters) error {
	if d.fd < 0 {
		return d.reportErr(ErrNotOpen)
	}

	bandwidthKHz := params.Bandwidth.KHz()
	if bandwidthKHz == 0 {
		return d.reportErr(&UnsupportedParameterError{Which: "bandwidth", Value: params.Bandwidth.String()})
	}
	constellation, err := constellationCode(params.Constellation)
	if err != nil {
		return d.reportErr(err)
	}
	highRate, err := codeRateCode(params.CodeRate)
	if err != nil {
		return d.reportErr(err)
	}
	guard, err := guardCode(params.Guard)
	if err != nil {
		return d.reportErr(err)
	}
	mode, err := modeCode(params.Mode)
	if err != nil {
		return d.reportErr(err)
	}
	inversion, setInversion, err := inversionCode(params.Inversion)
	if err != nil {
		return d.reportErr(err)
	}

	acquire := txAcquireChannelRequest{
		Frequency: uint32(params.Frequency / 1000),
		Bandwidth: uint32(bandwidthKHz),
	}
	if err := d.ioctlRequest(opAcquireChannel, iocAcquireChannel, unsafe.Pointer(&acquire), &acquire.Error); err != nil {
		return d.reportErr(err)
	}

	module := txSetModuleRequest{
		Constellation:    constellation,
		HighCodeRate:     highRate,
		Interval:         guard,
		TransmissionMode: mode,
	}
	if err := d.ioctlRequest(opSetModule, iocSetModule, unsafe.Pointer(&module), &module.Error); err != nil {
		return d.reportErr(err)
	}

	if setInversion {
		inv := txSetSpectralInversionRequest{IsInversion: inversion}
		if err := d.ioctlRequest(opSetSpectralInversion, iocSetSpectralInversion, unsafe.Pointer(&inv), &inv.Error); err != nil {
			return d.reportErr(err)
		}
	}

	d.bitrate = params.TheoreticalBitrate()
	d.rep.Infof("%s tuned: %s, %d b/s", d.info.Path, params, d.bitrate)
	return nil
}
