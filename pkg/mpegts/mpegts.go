// Package mpegts supplies transport-stream input for the transmission
// engine: packet framing constants, a resynchronizing packet reader, and
// a reusable burst buffer pool. Packet contents are opaque here; the
// engine transmits already-formed packets and never parses tables.
package mpegts

const (
	// PacketSize is the fixed size of an MPEG transport packet.
	PacketSize = 188
	// SyncByte opens every transport packet.
	SyncByte = 0x47
)
