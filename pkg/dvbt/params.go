// Package dvbt models DVB-T modulation parameters and the standard
// net-bitrate computation from EN 300 744.
package dvbt

import (
	"fmt"
	"strings"
)

// Constellation is the DVB-T modulation constellation.
type Constellation int

const (
	QPSK Constellation = iota
	QAM16
	QAM64
	// QAM256 is part of the shared front-end vocabulary (DVB-T2, DVB-C)
	// but is not modulated by DVB-T proper.
	QAM256
)

func (c Constellation) String() string {
	switch c {
	case QPSK:
		return "QPSK"
	case QAM16:
		return "16-QAM"
	case QAM64:
		return "64-QAM"
	case QAM256:
		return "256-QAM"
	default:
		return fmt.Sprintf("Constellation(%d)", int(c))
	}
}

// BitsPerSymbol returns the number of bits carried per OFDM cell,
// or 0 for an unknown constellation.
func (c Constellation) BitsPerSymbol() uint64 {
	switch c {
	case QPSK:
		return 2
	case QAM16:
		return 4
	case QAM64:
		return 6
	case QAM256:
		return 8
	default:
		return 0
	}
}

// ParseConstellation parses a constellation name such as "QPSK" or "64-QAM".
func ParseConstellation(s string) (Constellation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QPSK":
		return QPSK, nil
	case "16-QAM", "QAM-16", "QAM16":
		return QAM16, nil
	case "64-QAM", "QAM-64", "QAM64":
		return QAM64, nil
	case "256-QAM", "QAM-256", "QAM256":
		return QAM256, nil
	default:
		return 0, fmt.Errorf("unknown constellation %q", s)
	}
}

// CodeRate is the convolutional FEC rate of the high-priority stream.
type CodeRate int

const (
	Rate1_2 CodeRate = iota
	Rate2_3
	Rate3_4
	Rate5_6
	Rate7_8
)

func (r CodeRate) String() string {
	num, den := r.Fraction()
	if den == 0 {
		return fmt.Sprintf("CodeRate(%d)", int(r))
	}
	return fmt.Sprintf("%d/%d", num, den)
}

// Fraction returns the rate as numerator/denominator, or 0/0 when unknown.
func (r CodeRate) Fraction() (num, den uint64) {
	switch r {
	case Rate1_2:
		return 1, 2
	case Rate2_3:
		return 2, 3
	case Rate3_4:
		return 3, 4
	case Rate5_6:
		return 5, 6
	case Rate7_8:
		return 7, 8
	default:
		return 0, 0
	}
}

// ParseCodeRate parses a FEC rate such as "2/3".
func ParseCodeRate(s string) (CodeRate, error) {
	switch strings.TrimSpace(s) {
	case "1/2":
		return Rate1_2, nil
	case "2/3":
		return Rate2_3, nil
	case "3/4":
		return Rate3_4, nil
	case "5/6":
		return Rate5_6, nil
	case "7/8":
		return Rate7_8, nil
	default:
		return 0, fmt.Errorf("unknown code rate %q", s)
	}
}

// GuardInterval is the OFDM guard interval as a fraction of the useful
// symbol duration.
type GuardInterval int

const (
	Guard1_32 GuardInterval = iota
	Guard1_16
	Guard1_8
	Guard1_4
)

func (g GuardInterval) String() string {
	num, den := g.Fraction()
	if den == 0 {
		return fmt.Sprintf("GuardInterval(%d)", int(g))
	}
	return fmt.Sprintf("%d/%d", num, den)
}

// Fraction returns the guard interval as numerator/denominator,
// or 0/0 when unknown.
func (g GuardInterval) Fraction() (num, den uint64) {
	switch g {
	case Guard1_32:
		return 1, 32
	case Guard1_16:
		return 1, 16
	case Guard1_8:
		return 1, 8
	case Guard1_4:
		return 1, 4
	default:
		return 0, 0
	}
}

// ParseGuardInterval parses a guard interval such as "1/32".
func ParseGuardInterval(s string) (GuardInterval, error) {
	switch strings.TrimSpace(s) {
	case "1/32":
		return Guard1_32, nil
	case "1/16":
		return Guard1_16, nil
	case "1/8":
		return Guard1_8, nil
	case "1/4":
		return Guard1_4, nil
	default:
		return 0, fmt.Errorf("unknown guard interval %q", s)
	}
}

// TransmissionMode is the OFDM transmission mode (carrier count).
type TransmissionMode int

const (
	Mode2K TransmissionMode = iota
	Mode4K
	Mode8K
)

func (m TransmissionMode) String() string {
	switch m {
	case Mode2K:
		return "2K"
	case Mode4K:
		return "4K"
	case Mode8K:
		return "8K"
	default:
		return fmt.Sprintf("TransmissionMode(%d)", int(m))
	}
}

// ParseTransmissionMode parses a transmission mode such as "8K".
func ParseTransmissionMode(s string) (TransmissionMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "2K":
		return Mode2K, nil
	case "4K":
		return Mode4K, nil
	case "8K":
		return Mode8K, nil
	default:
		return 0, fmt.Errorf("unknown transmission mode %q", s)
	}
}

// SpectralInversion selects whether the modulator inverts the RF spectrum.
// Auto leaves the driver default in place.
type SpectralInversion int

const (
	InversionAuto SpectralInversion = iota
	InversionOff
	InversionOn
)

func (i SpectralInversion) String() string {
	switch i {
	case InversionAuto:
		return "auto"
	case InversionOff:
		return "off"
	case InversionOn:
		return "on"
	default:
		return fmt.Sprintf("SpectralInversion(%d)", int(i))
	}
}

// ParseSpectralInversion parses "off", "on" or "auto".
func ParseSpectralInversion(s string) (SpectralInversion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return InversionAuto, nil
	case "off":
		return InversionOff, nil
	case "on":
		return InversionOn, nil
	default:
		return 0, fmt.Errorf("unknown spectral inversion %q", s)
	}
}

// Bandwidth is the channel bandwidth.
type Bandwidth int

const (
	BandwidthAuto Bandwidth = iota
	Bandwidth5MHz
	Bandwidth6MHz
	Bandwidth7MHz
	Bandwidth8MHz
)

func (b Bandwidth) String() string {
	switch b {
	case BandwidthAuto:
		return "auto"
	case Bandwidth5MHz:
		return "5-MHz"
	case Bandwidth6MHz:
		return "6-MHz"
	case Bandwidth7MHz:
		return "7-MHz"
	case Bandwidth8MHz:
		return "8-MHz"
	default:
		return fmt.Sprintf("Bandwidth(%d)", int(b))
	}
}

// KHz returns the bandwidth in kilohertz. Auto and unknown values map to 0.
func (b Bandwidth) KHz() uint64 {
	switch b {
	case Bandwidth5MHz:
		return 5000
	case Bandwidth6MHz:
		return 6000
	case Bandwidth7MHz:
		return 7000
	case Bandwidth8MHz:
		return 8000
	default:
		return 0
	}
}

// Hz returns the bandwidth in hertz. Auto and unknown values map to 0.
func (b Bandwidth) Hz() uint64 {
	return b.KHz() * 1000
}

// ParseBandwidth parses a bandwidth such as "8-MHz", "8MHz" or "8".
func ParseBandwidth(s string) (Bandwidth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return BandwidthAuto, nil
	case "5", "5mhz", "5-mhz":
		return Bandwidth5MHz, nil
	case "6", "6mhz", "6-mhz":
		return Bandwidth6MHz, nil
	case "7", "7mhz", "7-mhz":
		return Bandwidth7MHz, nil
	case "8", "8mhz", "8-mhz":
		return Bandwidth8MHz, nil
	default:
		return 0, fmt.Errorf("unknown bandwidth %q", s)
	}
}

// TuneParameters is the full DVB-T tuning parameter set for one channel.
type TuneParameters struct {
	Frequency     uint64 // center frequency in Hz
	Bandwidth     Bandwidth
	Constellation Constellation
	CodeRate      CodeRate // high-priority stream
	Guard         GuardInterval
	Mode          TransmissionMode
	Inversion     SpectralInversion
}

func (p TuneParameters) String() string {
	return fmt.Sprintf("%d Hz, %s, %s, FEC %s, guard %s, %s, inversion %s",
		p.Frequency, p.Bandwidth, p.Constellation, p.CodeRate, p.Guard, p.Mode, p.Inversion)
}

// TheoreticalBitrate returns the DVB-T net bitrate in bits per second for
// the parameter set, based on 188-byte packets.
//
// Reference: ETSI EN 300 744, with the 204/188 Reed-Solomon overhead and the
// OFDM symbol arithmetic folded into the 423/544 ratio:
//
//	bitrate = (423 * guard_den * bw_hz * bits_per_symbol * fec_num)
//	        / (544 * (guard_den + guard_num) * fec_den)
//
// The transmission mode cancels out of the symbol-rate computation and does
// not appear. Returns 0 when any parameter is outside the supported set or
// the bandwidth is auto/unknown.
func (p TuneParameters) TheoreticalBitrate() uint64 {
	switch p.Constellation {
	case QPSK, QAM16, QAM64:
	default:
		// DVB-T does not modulate other constellations.
		return 0
	}
	bps := p.Constellation.BitsPerSymbol()
	fecNum, fecDen := p.CodeRate.Fraction()
	guardNum, guardDen := p.Guard.Fraction()
	bw := p.Bandwidth.Hz()

	if bps == 0 || fecDen == 0 || guardDen == 0 || bw == 0 {
		return 0
	}
	return (423 * guardDen * bw * bps * fecNum) / (544 * (guardDen + guardNum) * fecDen)
}
