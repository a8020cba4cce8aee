package hides

import "time"

// pacer tracks the absolute monotonic instant before which the next burst
// must not be written. Scheduling against a cumulative absolute cursor
// rather than per-burst delays keeps long transmissions from drifting.
// time.Time carries the monotonic clock reading, so wall-clock jumps do
// not disturb the cursor.
type pacer struct {
	due   time.Time
	now   func() time.Time
	sleep func(time.Duration)
}

func newPacer() pacer {
	return pacer{now: time.Now, sleep: time.Sleep}
}

// reset moves the due cursor to the current instant.
func (p *pacer) reset() {
	p.due = p.now()
}

// late reports how far the current instant has run past the due cursor.
// Zero or negative means the cursor is still ahead.
func (p *pacer) late() time.Duration {
	return p.now().Sub(p.due)
}

// advance pushes the due cursor forward by the nominal transmission time
// of burst bytes at bitrate bits per second. Integer division, truncating.
func (p *pacer) advance(burst int, bitrate uint64) {
	p.due = p.due.Add(time.Duration(uint64(burst) * 8 * 1000000000 / bitrate))
}

// waitUntilDue blocks until the monotonic clock reaches the due cursor.
func (p *pacer) waitUntilDue() {
	if d := p.due.Sub(p.now()); d > 0 {
		p.sleep(d)
	}
}
