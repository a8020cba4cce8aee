package hides

import (
	"testing"
	"time"
)

// fakeClock drives the pacer deterministically: time stands still except
// when something sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestPacer(clk *fakeClock) pacer {
	return pacer{now: clk.Now, sleep: clk.Sleep}
}

func TestPacerAdvanceTruncates(t *testing.T) {
	clk := newFakeClock()
	p := newTestPacer(clk)
	p.reset()

	// 188 bytes at 7 b/s: 1504e9/7 ns, truncated.
	p.advance(188, 7)
	want := time.Duration(214857142857)
	if got := p.due.Sub(clk.now); got != want {
		t.Errorf("due advanced by %d, want %d", got, want)
	}
}

func TestPacerAdvanceAccumulates(t *testing.T) {
	clk := newFakeClock()
	p := newTestPacer(clk)
	p.reset()

	for i := 0; i < 3; i++ {
		p.advance(188, 7)
	}
	want := 3 * time.Duration(214857142857)
	if got := p.due.Sub(clk.now); got != want {
		t.Errorf("due advanced by %d, want %d", got, want)
	}
}

func TestPacerWaitUntilDue(t *testing.T) {
	t.Run("SleepsUntilDue", func(t *testing.T) {
		clk := newFakeClock()
		p := newTestPacer(clk)
		p.reset()
		p.due = p.due.Add(5 * time.Millisecond)

		p.waitUntilDue()
		if len(clk.sleeps) != 1 || clk.sleeps[0] != 5*time.Millisecond {
			t.Errorf("Expected one 5 ms sleep, got %v", clk.sleeps)
		}
	})

	t.Run("NoSleepWhenPastDue", func(t *testing.T) {
		clk := newFakeClock()
		p := newTestPacer(clk)
		p.reset()
		clk.Advance(time.Second)

		p.waitUntilDue()
		if len(clk.sleeps) != 0 {
			t.Errorf("Expected no sleep, got %v", clk.sleeps)
		}
	})
}

func TestPacerLate(t *testing.T) {
	clk := newFakeClock()
	p := newTestPacer(clk)
	p.reset()

	if p.late() > 0 {
		t.Error("Fresh pacer should not be late")
	}
	clk.Advance(3 * time.Millisecond)
	if p.late() != 3*time.Millisecond {
		t.Errorf("Expected 3 ms late, got %v", p.late())
	}
}
