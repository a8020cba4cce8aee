package mpegts

import (
	"bufio"
	"io"
)

// Reader extracts whole transport packets from a byte stream. A packet
// must open with the sync byte; anything else is skipped until the next
// sync byte, which recovers streams cut mid-packet. A trailing truncated
// packet reads as EOF.
type Reader struct {
	src  io.Reader
	seek io.Seeker // non-nil loops to the start at EOF
	br   *bufio.Reader

	packets uint64
	skipped uint64
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: r, br: bufio.NewReaderSize(r, 256*PacketSize)}
}

// NewLoopReader returns a Reader that rewinds rs at EOF and keeps
// reading, turning a finite file into an endless stream. A source that
// never yields a packet still reads as EOF.
func NewLoopReader(rs io.ReadSeeker) *Reader {
	r := NewReader(rs)
	r.seek = rs
	return r
}

// Packets returns the number of whole packets delivered so far.
func (r *Reader) Packets() uint64 { return r.packets }

// Skipped returns the number of bytes dropped while hunting for a sync
// byte.
func (r *Reader) Skipped() uint64 { return r.skipped }

// ReadBurst fills buf with as many whole packets as it holds, returning
// the byte count, always a multiple of PacketSize. A short source returns
// what it had; only a burst with zero packets returns io.EOF. buf must
// hold at least one packet.
func (r *Reader) ReadBurst(buf []byte) (int, error) {
	max := (len(buf) / PacketSize) * PacketSize
	if max == 0 {
		return 0, io.ErrShortBuffer
	}
	n := 0
	for n < max {
		if err := r.readPacket(buf[n : n+PacketSize]); err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		n += PacketSize
	}
	return n, nil
}

func (r *Reader) readPacket(p []byte) error {
	for {
		err := r.readPacketOnce(p)
		if err == io.EOF && r.seek != nil && r.packets > 0 {
			if _, serr := r.seek.Seek(0, io.SeekStart); serr != nil {
				return serr
			}
			r.br.Reset(r.src)
			continue
		}
		return err
	}
}

func (r *Reader) readPacketOnce(p []byte) error {
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return err
		}
		if b == SyncByte {
			p[0] = b
			break
		}
		r.skipped++
	}
	if _, err := io.ReadFull(r.br, p[1:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return err
	}
	r.packets++
	return nil
}
