// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/pmem"
	"code.hybscloud.com/spin"
)

const mailboxEntrySize = 8

// Grid is the persistent T×M mailbox matrix. A pointer to its
// reservation is published into the pool's static area the first time
// Open is called against a given pool; subsequent Opens (after a
// restart) find it there and reclaim any mailboxes left non-null by a
// crashed previous run.
type Grid struct {
	pool      *pmem.Pool
	threads   int
	mailboxes int
	base      pmem.Offset
}

// Open reserves the T×M mailbox grid on first use, or finds it via the
// pointer a previous run published into the pool's static area. Either
// way, any mailbox slot still holding a non-null offset from a crashed
// previous run is freed (its slot reset to null), matching
// mt_pmemalloc_test.c's startup sweep.
func Open(pool *pmem.Pool, threads, mailboxes int) (*Grid, error) {
	g := &Grid{pool: pool, threads: threads, mailboxes: mailboxes}

	sa := pool.StaticArea()
	root := pmem.Offset(readUint64(sa))

	if root == pmem.NullOffset {
		n := threads * mailboxes * mailboxEntrySize
		off, err := pool.Reserve(n)
		if err != nil {
			return nil, err
		}
		region := pool.At(off, n)
		for i := range region {
			region[i] = 0
		}
		pool.Persist(region)

		pool.OnActive(off, pmem.StaticAreaOffset, uint64(off))
		pool.Activate(off)

		g.base = off
		return g, nil
	}

	g.base = root
	g.reclaim()
	return g, nil
}

// reclaim frees every mailbox slot still holding a live offset,
// publishing null back into the slot as it goes.
func (g *Grid) reclaim() {
	n := g.threads * g.mailboxes
	for i := 0; i < n; i++ {
		g.freeSlot(i)
	}
}

func (g *Grid) slotOffset(i int) pmem.Offset {
	return g.base + pmem.Offset(i*mailboxEntrySize)
}

// SlotOffset returns the pool offset of mailbox row thread, column
// mailbox. It is exposed for callers (and tests) that need to publish
// or inspect a mailbox entry directly rather than through Run's
// goroutines.
func (g *Grid) SlotOffset(thread, mailbox int) pmem.Offset {
	return g.slotOffset(thread*g.mailboxes + mailbox)
}

// readSlot loads slot i's current payload offset with a single atomic
// word read. allocLoop's Activate and freeLoop's reads of the same row
// race by design (neither goroutine takes the pool's allocMu for this),
// so the load must pair with writeUint64's atomic store to rule out a
// torn read of a half-written offset.
func (g *Grid) readSlot(i int) pmem.Offset {
	return pmem.Offset(readUint64(g.pool.At(g.slotOffset(i), mailboxEntrySize)))
}

// freeSlot frees the payload in slot i, if any, publishing null back
// into the slot atomically with respect to crash (on_free registers
// the retraction, free executes it).
func (g *Grid) freeSlot(i int) {
	v := g.readSlot(i)
	if v == pmem.NullOffset {
		return
	}
	g.pool.OnFree(v, g.slotOffset(i), 0)
	g.pool.Free(v)
}

// readUint64 loads an 8-byte persistent word with a single atomic
// access rather than a byte-by-byte loop, so it can race safely against
// a concurrent writeUint64 (see pmem's runIntentions) instead of ever
// observing a torn value.
func readUint64(b []byte) uint64 {
	return atomic.LoadUint64((*uint64)(unsafe.Pointer(&b[0])))
}

// Run starts one allocator and one freeing goroutine per thread row of
// g, releases them together with a start barrier, and runs them until
// stop is closed. It returns once every goroutine has observed the
// close and finished its final pass (the freeing goroutines drain
// their row before exiting, so Run never returns with live,
// unreferenced mailboxes that a concurrent caller couldn't see).
func Run(pool *pmem.Pool, threads, mailboxes, maxAlloc int, stop <-chan struct{}) error {
	g, err := Open(pool, threads, mailboxes)
	if err != nil {
		return err
	}

	var start sync.WaitGroup
	start.Add(1)
	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(2)
		go func(t int) {
			defer wg.Done()
			start.Wait()
			g.allocLoop(t, maxAlloc, stop)
		}(t)
		go func(t int) {
			defer wg.Done()
			start.Wait()
			g.freeLoop(t, stop)
		}(t)
	}
	start.Done()
	wg.Wait()
	return nil
}

// allocLoop is one allocator thread's main loop: scan the row for an
// empty mailbox, reserve/on_active/activate a random-sized payload into
// it. On OutOfMemory, back off to let the paired freeing thread catch
// up, the same sleep(0)-on-failure pattern the source uses.
func (g *Grid) allocLoop(t, maxAlloc int, stop <-chan struct{}) {
	row := t * g.mailboxes
	var bo iox.Backoff
	for {
		select {
		case <-stop:
			return
		default:
		}
		for m := 0; m < g.mailboxes; m++ {
			i := row + m
			if g.readSlot(i) != pmem.NullOffset {
				continue
			}
			size := 0
			if maxAlloc > 0 {
				size = rand.Intn(maxAlloc)
			}
			off, err := g.pool.Reserve(size)
			if err != nil {
				bo.Wait()
				continue
			}
			g.pool.OnActive(off, g.slotOffset(i), uint64(off))
			g.pool.Activate(off)
		}
	}
}

// freeLoop is one freeing thread's main loop: pick a random slot on the
// row and, if non-empty, on_free/free it. On stop, it makes one final
// pass over the whole row to free whatever remains, matching the
// source's shutdown behavior.
func (g *Grid) freeLoop(t int, stop <-chan struct{}) {
	row := t * g.mailboxes
	var sw spin.Wait
	for {
		select {
		case <-stop:
			for m := 0; m < g.mailboxes; m++ {
				g.freeSlot(row + m)
			}
			return
		default:
		}
		m := rand.Intn(g.mailboxes)
		if g.readSlot(row+m) == pmem.NullOffset {
			sw.Once()
			continue
		}
		g.freeSlot(row + m)
	}
}
