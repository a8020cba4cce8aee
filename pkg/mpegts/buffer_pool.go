package mpegts

import (
	"sync"
	"sync/atomic"
)

// BurstBuffer is a reusable packet-aligned buffer that remembers the pool
// it came from.
type BurstBuffer struct {
	Data []byte
	pool *BurstPool
}

// Release returns the buffer to its pool. The caller must not touch Data
// afterwards.
func (b *BurstBuffer) Release() {
	if b.pool != nil {
		b.pool.Put(b)
	}
}

// BurstPool recycles burst buffers between the stream reader and the
// device writer. One size class: every buffer holds a whole burst.
type BurstPool struct {
	pool sync.Pool
	size int

	gets   int64
	allocs int64
}

// NewBurstPool returns a pool of buffers sized for bursts of the given
// packet count.
func NewBurstPool(packets int) *BurstPool {
	p := &BurstPool{size: packets * PacketSize}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.allocs, 1)
		return &BurstBuffer{Data: make([]byte, p.size), pool: p}
	}
	return p
}

// Get returns a buffer of the pool's full burst size. Contents are
// whatever the last user left; callers slice to what they read.
func (p *BurstPool) Get() *BurstBuffer {
	atomic.AddInt64(&p.gets, 1)
	b := p.pool.Get().(*BurstBuffer)
	b.Data = b.Data[:p.size]
	return b
}

// Put returns a buffer for reuse. Buffers that did not come from this
// pool are dropped for the collector.
func (p *BurstPool) Put(b *BurstBuffer) {
	if b == nil || b.Data == nil || cap(b.Data) != p.size {
		return
	}
	p.pool.Put(b)
}

// Stats reports pool turnover since creation: total Gets and how many of
// them had to allocate.
func (p *BurstPool) Stats() (gets, allocs int64) {
	return atomic.LoadInt64(&p.gets), atomic.LoadInt64(&p.allocs)
}
