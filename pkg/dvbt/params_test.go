package dvbt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTheoreticalBitrate(t *testing.T) {
	// Expected values cross-checked against the published DVB-T net
	// bitrate tables for 188-byte packets.
	tests := []struct {
		name   string
		params TuneParameters
		want   uint64
	}{
		{
			name: "8MHz 64-QAM 2/3 guard 1/4",
			params: TuneParameters{
				Bandwidth:     Bandwidth8MHz,
				Constellation: QAM64,
				CodeRate:      Rate2_3,
				Guard:         Guard1_4,
				Mode:          Mode8K,
			},
			want: 19905882,
		},
		{
			name: "8MHz 64-QAM 7/8 guard 1/32",
			params: TuneParameters{
				Bandwidth:     Bandwidth8MHz,
				Constellation: QAM64,
				CodeRate:      Rate7_8,
				Guard:         Guard1_32,
				Mode:          Mode2K,
			},
			want: 31668449,
		},
		{
			name: "8MHz QPSK 1/2 guard 1/4",
			params: TuneParameters{
				Bandwidth:     Bandwidth8MHz,
				Constellation: QPSK,
				CodeRate:      Rate1_2,
				Guard:         Guard1_4,
				Mode:          Mode8K,
			},
			want: 4976470,
		},
		{
			name: "6MHz 16-QAM 3/4 guard 1/8",
			params: TuneParameters{
				Bandwidth:     Bandwidth6MHz,
				Constellation: QAM16,
				CodeRate:      Rate3_4,
				Guard:         Guard1_8,
				Mode:          Mode4K,
			},
			want: 12441176,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.TheoreticalBitrate())
		})
	}
}

func TestTheoreticalBitrateModeIndependent(t *testing.T) {
	base := TuneParameters{
		Bandwidth:     Bandwidth8MHz,
		Constellation: QAM64,
		CodeRate:      Rate2_3,
		Guard:         Guard1_4,
	}

	for _, mode := range []TransmissionMode{Mode2K, Mode4K, Mode8K} {
		p := base
		p.Mode = mode
		assert.Equal(t, uint64(19905882), p.TheoreticalBitrate(),
			"bitrate should not depend on transmission mode %s", mode)
	}
}

func TestTheoreticalBitrateUnsupported(t *testing.T) {
	t.Run("Auto Bandwidth", func(t *testing.T) {
		p := TuneParameters{
			Bandwidth:     BandwidthAuto,
			Constellation: QAM64,
			CodeRate:      Rate2_3,
			Guard:         Guard1_4,
		}
		assert.Zero(t, p.TheoreticalBitrate())
	})

	t.Run("Unknown Constellation", func(t *testing.T) {
		p := TuneParameters{
			Bandwidth:     Bandwidth8MHz,
			Constellation: Constellation(99),
			CodeRate:      Rate2_3,
			Guard:         Guard1_4,
		}
		assert.Zero(t, p.TheoreticalBitrate())
	})

	t.Run("256-QAM Outside DVB-T", func(t *testing.T) {
		p := TuneParameters{
			Bandwidth:     Bandwidth8MHz,
			Constellation: QAM256,
			CodeRate:      Rate2_3,
			Guard:         Guard1_4,
		}
		assert.Zero(t, p.TheoreticalBitrate())
	})
}

func TestParseConstellation(t *testing.T) {
	c, err := ParseConstellation("64-QAM")
	require.NoError(t, err)
	assert.Equal(t, QAM64, c)

	c, err = ParseConstellation("qpsk")
	require.NoError(t, err)
	assert.Equal(t, QPSK, c)

	c, err = ParseConstellation("QAM16")
	require.NoError(t, err)
	assert.Equal(t, QAM16, c)

	c, err = ParseConstellation("256-QAM")
	require.NoError(t, err)
	assert.Equal(t, QAM256, c)

	_, err = ParseConstellation("1024-QAM")
	assert.Error(t, err)
}

func TestParseCodeRate(t *testing.T) {
	r, err := ParseCodeRate("2/3")
	require.NoError(t, err)
	assert.Equal(t, Rate2_3, r)

	_, err = ParseCodeRate("4/5")
	assert.Error(t, err)
}

func TestParseGuardInterval(t *testing.T) {
	g, err := ParseGuardInterval("1/32")
	require.NoError(t, err)
	assert.Equal(t, Guard1_32, g)

	_, err = ParseGuardInterval("1/64")
	assert.Error(t, err)
}

func TestParseTransmissionMode(t *testing.T) {
	m, err := ParseTransmissionMode("8k")
	require.NoError(t, err)
	assert.Equal(t, Mode8K, m)

	_, err = ParseTransmissionMode("16K")
	assert.Error(t, err)
}

func TestParseSpectralInversion(t *testing.T) {
	i, err := ParseSpectralInversion("")
	require.NoError(t, err)
	assert.Equal(t, InversionAuto, i)

	i, err = ParseSpectralInversion("ON")
	require.NoError(t, err)
	assert.Equal(t, InversionOn, i)

	_, err = ParseSpectralInversion("maybe")
	assert.Error(t, err)
}

func TestParseBandwidth(t *testing.T) {
	b, err := ParseBandwidth("8-MHz")
	require.NoError(t, err)
	assert.Equal(t, Bandwidth8MHz, b)
	assert.Equal(t, uint64(8000), b.KHz())
	assert.Equal(t, uint64(8000000), b.Hz())

	b, err = ParseBandwidth("6")
	require.NoError(t, err)
	assert.Equal(t, Bandwidth6MHz, b)

	_, err = ParseBandwidth("9MHz")
	assert.Error(t, err)
}

func TestStringRoundTrip(t *testing.T) {
	assert.Equal(t, "64-QAM", QAM64.String())
	assert.Equal(t, "2/3", Rate2_3.String())
	assert.Equal(t, "1/4", Guard1_4.String())
	assert.Equal(t, "8K", Mode8K.String())
	assert.Equal(t, "auto", InversionAuto.String())
	assert.Equal(t, "8-MHz", Bandwidth8MHz.String())
}
