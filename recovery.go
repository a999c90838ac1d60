// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

// recover runs the idempotent left-to-right recovery scan over every
// clump in the pool, completing or rolling back whatever operation was
// in flight when the process last exited. It is run once by Init, after
// mapping and before the pool is handed back to the caller.
//
// Replaying recover on an already-recovered pool is a no-op: the first
// pass leaves every clump FREE or ACTIVE, both of which the scan skips,
// so a second pass in a row issues no persisted stores at all.
func (p *Pool) recover() {
	off := Offset(ClumpRegionOffset)
	for {
		c := p.clump(off)
		span := spanOf(c.SizeAndState)
		if span == 0 {
			if off != p.terminatorOffset() {
				corrupt("clump walk did not reach terminator")
			}
			return
		}

		switch stateOf(c.SizeAndState) {
		case Free, Active:
			// Nothing was in flight.
		case Reserved:
			// The reservation was never committed (Activate never ran
			// OnActive's registrations into durable intentions list);
			// return the clump to the free pool.
			c.clearIntentions()
			c.SizeAndState = sizeAndState(span, Free)
			p.persistClump(off)
		case Activating:
			p.runIntentions(c)
			p.persistClump(off)
			c.SizeAndState = sizeAndState(span, Active)
			p.persistClump(off)
		case Freeing:
			p.runIntentions(c)
			p.persistClump(off)
			c.SizeAndState = sizeAndState(span, Free)
			p.persistClump(off)
		default:
			corrupt("impossible clump state byte")
		}

		off += Offset(span)
	}
}

// terminatorOffset returns the expected offset of the zero-size
// terminator clump, derived from the pool's mapped size the same way
// bootstrap computed it when the pool was created.
func (p *Pool) terminatorOffset() Offset {
	return Offset((p.size &^ (ClumpAlign - 1)) - clumpHeaderSize)
}
