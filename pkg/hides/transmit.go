package hides

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/dvbtx/hidesd/pkg/mpegts"
)

// MaxBurstPackets is the largest number of transport packets passed to the
// driver in one write: half of the driver's documented 348-packet URB
// staging buffer.
const MaxBurstPackets = 172

const maxBurstBytes = MaxBurstPackets * mpegts.PacketSize

// The driver does not block when its URB buffer is full; it fails the
// write with a status code instead. Failed bursts are retried after a
// short pause, up to maxRetries times per burst.
const (
	errorBackoff = 100 * time.Microsecond
	maxRetries   = 100
)

// StartTransmission puts the modulator into transmit mode and starts the
// transfer engine. Counters reset on success. The monotonic clock
// resolution is probed once per process and logged; pacing does not
// depend on the probe.
func (d *Device) StartTransmission() error {
	if d.fd < 0 {
		return d.reportErr(ErrNotOpen)
	}
	if d.transmitting {
		return d.reportErr(ErrTransmitting)
	}

	clockPrecisionOnce.Do(func() {
		if res := d.sys.clockResolution(); res > 0 {
			d.rep.Debugf("monotonic clock resolution %s", res)
		}
	})

	mode := txModeRequest{OnOff: 1}
	if err := d.ioctlRequest(opEnableTxMode, iocEnableTxMode, unsafe.Pointer(&mode), &mode.Error); err != nil {
		return d.reportErr(err)
	}
	var start txStartTransferRequest
	if err := d.ioctlRequest(opStartTransfer, iocStartTransfer, unsafe.Pointer(&start), &start.Error); err != nil {
		return d.reportErr(err)
	}

	d.transmitting = true
	d.pktSent = 0
	d.allWrite = 0
	d.failWrite = 0
	d.rep.Infof("%s transmission started", d.info.Path)
	return nil
}

// StopTransmission stops the transfer engine and takes the modulator out
// of transmit mode, in that order. The first failure aborts the sequence.
func (d *Device) StopTransmission() error {
	if d.fd < 0 {
		return d.reportErr(ErrNotOpen)
	}
	if !d.transmitting {
		return d.reportErr(ErrNotTransmitting)
	}

	var stop txStopTransferRequest
	if err := d.ioctlRequest(opStopTransfer, iocStopTransfer, unsafe.Pointer(&stop), &stop.Error); err != nil {
		return d.reportErr(err)
	}
	var mode txModeRequest
	if err := d.ioctlRequest(opDisableTxMode, iocEnableTxMode, unsafe.Pointer(&mode), &mode.Error); err != nil {
		return d.reportErr(err)
	}

	d.transmitting = false
	d.rep.Infof("%s transmission stopped", d.info.Path)
	return nil
}

// Send delivers whole transport packets to the modulator in bursts of at
// most MaxBurstPackets, pacing each burst against the nominal bitrate
// when one is known. pkts is not retained.
//
// The driver's write returns a status code, never a byte count, and does
// not block on a full URB buffer, so every non-zero status is retried
// after errorBackoff until the per-burst budget runs out. An interrupted
// syscall retries without consuming budget. On exhaustion the remaining
// packets are dropped from this call and the device stays transmitting;
// a later Send may pick up where the stream left off.
func (d *Device) Send(pkts []byte) error {
	if d.fd < 0 {
		return d.reportErr(ErrNotOpen)
	}
	if !d.transmitting {
		return d.reportErr(ErrNotTransmitting)
	}
	if len(pkts)%mpegts.PacketSize != 0 {
		return d.reportErr(fmt.Errorf("send of %d bytes is not whole %d-byte packets", len(pkts), mpegts.PacketSize))
	}

	if d.bitrate > 0 {
		if d.pktSent == 0 {
			d.pace.reset()
		} else if late := d.pace.late(); late > 0 {
			// The caller fell behind the nominal bitrate. Restart the
			// pacing baseline at the current instant instead of bursting
			// to catch up.
			d.rep.Debugf("%s late by %s, resetting pacing", d.info.Path, late)
			d.pace.reset()
			d.pktSent = 0
		}
	}

	remain := len(pkts)
	cursor := 0
	retry := 0
	for remain > 0 {
		burst := remain
		if burst > maxBurstBytes {
			burst = maxBurstBytes
		}
		if retry == 0 && d.bitrate > 0 {
			d.pace.waitUntilDue()
		}

		status, errno := d.sys.write(d.fd, pkts[cursor:cursor+burst])
		d.allWrite++
		if status != 0 {
			d.failWrite++
		}

		switch {
		case status == 0:
			cursor += burst
			remain -= burst
			d.pktSent += uint64(burst)
			if d.bitrate > 0 {
				d.pace.advance(burst, d.bitrate)
			}
			retry = 0
		case errno == syscall.EINTR:
			d.rep.Debugf("%s write interrupted, retrying", d.info.Path)
		case retry < maxRetries:
			d.pace.sleep(errorBackoff)
			retry++
		default:
			return d.reportErr(&WriteError{Path: d.info.Path, DriverStatus: status, Errno: errno})
		}
	}
	return nil
}
