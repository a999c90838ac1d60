// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// minSplitRemainder is the smallest leftover span worth splitting off as
// its own FREE clump; below this, the whole scanned clump is handed to
// the reservation instead (the remainder would be a lone 64-byte header
// that could only ever satisfy a zero-byte reservation).
const minSplitRemainder = 128

// roundUpClump rounds a user-requested payload size up to a clump span:
// the 64-byte header plus size, rounded up to ClumpAlign.
func roundUpClump(size int) uint64 {
	n := uint64(size) + clumpHeaderSize
	return (n + ClumpAlign - 1) &^ (ClumpAlign - 1)
}

// Reserve finds the first FREE clump able to hold size bytes of payload,
// splits it if the remainder is worth keeping as its own FREE clump, and
// marks the chosen clump RESERVED. It returns the payload offset
// (64 bytes past the clump header) or ErrOutOfMemory if no clump is
// large enough.
//
// Reserve takes the pool-wide lock; callers must not call it
// concurrently with Free or another Reserve on the same pool expecting
// disjoint-clump parallelism beyond what the mutex already serializes.
func (p *Pool) Reserve(size int) (Offset, error) {
	if size < 0 {
		return NullOffset, fmt.Errorf("%w: negative reserve size %d", ErrInvalidArgument, size)
	}
	nsize := roundUpClump(size)

	p.allocMu.Lock()
	defer p.allocMu.Unlock()

	off := Offset(ClumpRegionOffset)
	for {
		c := p.clump(off)
		word := c.SizeAndState
		span := spanOf(word)
		if span == 0 {
			if off == ClumpRegionOffset {
				corrupt("terminator found as first clump")
			}
			break
		}
		if stateOf(word) == Free && span >= nsize {
			return p.reserveFrom(off, span, nsize), nil
		}
		off += Offset(span)
	}
	return NullOffset, ErrOutOfMemory
}

// reserveFrom commits clp (a FREE clump of the given span) to a
// reservation of nsize bytes, splitting off a remainder clump when
// worthwhile, and returns the new clump's payload offset.
func (p *Pool) reserveFrom(clp Offset, span, nsize uint64) Offset {
	c := p.clump(clp)
	if span-nsize >= minSplitRemainder {
		rem := clp + Offset(nsize)
		remClump := p.clump(rem)
		remClump.SizeAndState = sizeAndState(span-nsize, Free)
		p.persistClump(rem)

		c.clearIntentions()
		c.SizeAndState = sizeAndState(nsize, Reserved)
		p.persistClump(clp)
	} else {
		c.clearIntentions()
		c.SizeAndState = sizeAndState(span, Reserved)
		p.persistClump(clp)
	}
	return clp + clumpHeaderSize
}

// clumpOffsetOf returns the clump header offset owning payload offset
// off, and the clump itself.
func (p *Pool) clumpOffsetOf(payload Offset) (Offset, *clump) {
	clp := payload - clumpHeaderSize
	return clp, p.clump(clp)
}

// OnActive registers a pointer publication for a RESERVED clump:
// Activate will later store value at base+parentOffset. It must be
// called only on a RESERVED clump, and at most three times per clump
// between Reserve and Activate.
//
// The two-step persist (value field, then offset field) is mandatory:
// it guarantees a crash mid-registration never leaves a slot with a
// non-zero offset pointing at an undefined value.
func (p *Pool) OnActive(payload, parentOffset Offset, value uint64) {
	_, c := p.clumpOffsetOf(payload)
	if stateOf(c.SizeAndState) != Reserved {
		violation("on_active on non-RESERVED clump")
	}
	p.registerIntention(payload, c, parentOffset, value)
}

// OnFree registers a pointer retraction for an ACTIVE clump, identical
// in mechanics to OnActive but only valid on a clump that has already
// been activated; Free will later execute the registered stores.
func (p *Pool) OnFree(payload, parentOffset Offset, value uint64) {
	_, c := p.clumpOffsetOf(payload)
	if stateOf(c.SizeAndState) != Active {
		violation("on_free on non-ACTIVE clump")
	}
	p.registerIntention(payload, c, parentOffset, value)
}

func (p *Pool) registerIntention(payload Offset, c *clump, parentOffset Offset, value uint64) {
	i := c.firstFreeSlot()
	if i < 0 {
		violation("more than three intentions registered on one clump")
	}
	clp := payload - clumpHeaderSize
	c.On[i].Value = value
	p.persistClump(clp)
	c.On[i].Offset = uint64(parentOffset)
	p.persistClump(clp)
}

// Activate commits a RESERVED clump: it persists the user payload,
// transitions RESERVED -> ACTIVATING (the durable commit point), runs
// the registered intentions in order, clears them, then transitions to
// ACTIVE. Each step is persisted before the next so that a crash at any
// point leaves the pool in a state recovery (§4.5) can complete.
func (p *Pool) Activate(payload Offset) {
	clp, c := p.clumpOffsetOf(payload)
	if stateOf(c.SizeAndState) != Reserved {
		violation("activate on non-RESERVED clump")
	}

	span := spanOf(c.SizeAndState)
	p.backend.Persist(p.data[payload : clp+Offset(span)])

	c.SizeAndState = sizeAndState(span, Activating)
	p.persistClump(clp)

	p.runIntentions(c)
	p.persistClump(clp)

	c.SizeAndState = sizeAndState(span, Active)
	p.persistClump(clp)
}

// runIntentions executes every registered (offset, value) store in
// order, stopping at the first zero-offset slot, then clears all three
// slots in reverse order. It does not persist the clump header itself;
// callers persist once after calling this, matching the source's single
// trailing persist for the cleared intention list.
//
// Each store goes through writeUint64, which installs the value with a
// single atomic word write: a published pointer is read concurrently by
// other goroutines (the stress package's mailbox grid reads a slot with
// no lock of its own, by design — see its doc comment), and a plain
// byte-by-byte store would let a reader observe a torn value.
func (p *Pool) runIntentions(c *clump) {
	for i := 0; i < len(c.On); i++ {
		if c.On[i].Offset == 0 {
			break
		}
		dst := Offset(c.On[i].Offset)
		p.writeUint64(dst, c.On[i].Value)
		p.backend.Persist(p.data[dst : dst+8])
	}
	for i := len(c.On) - 1; i >= 0; i-- {
		c.On[i] = intention{}
	}
}

func (p *Pool) writeUint64(off Offset, v uint64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&p.data[off])), v)
}

// Free releases an ACTIVE or RESERVED clump. A RESERVED clump skips the
// intention phase (nothing was ever published); an ACTIVE clump
// transitions ACTIVE -> FREEING (executing and clearing its pending
// on_free intentions) before transitioning to FREE. Free then runs the
// coalescing pass.
//
// Free takes the pool-wide lock.
func (p *Pool) Free(payload Offset) {
	p.allocMu.Lock()
	defer p.allocMu.Unlock()

	clp, c := p.clumpOffsetOf(payload)
	span := spanOf(c.SizeAndState)
	switch stateOf(c.SizeAndState) {
	case Reserved:
		// Nothing was ever published; fall straight to FREE.
	case Active:
		c.SizeAndState = sizeAndState(span, Freeing)
		p.persistClump(clp)
		p.runIntentions(c)
		p.persistClump(clp)
	default:
		violation("free on clump that is neither RESERVED nor ACTIVE")
	}

	c.SizeAndState = sizeAndState(span, Free)
	p.persistClump(clp)

	p.coalesce()
}
