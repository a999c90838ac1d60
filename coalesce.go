// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

// coalesce runs a second left-to-right pass merging every run of two or
// more adjacent FREE clumps into one. It is invoked after Init's
// recovery scan and after every Free.
//
// TODO: this is an O(clumps) full-pool scan on every call, same as the
// source. PrevSize is carried in the clump struct but left unpopulated
// in this revision (see Open Questions in DESIGN.md); populating it
// would let a future revision back-merge the clump immediately
// preceding a freed one in O(1) instead of rescanning from the region
// start.
func (p *Pool) coalesce() {
	var firstFree, lastFree Offset
	haveFirst := false
	var coalescedSpan uint64

	flush := func() {
		if haveFirst && lastFree != 0 {
			c := p.clump(firstFree)
			c.SizeAndState = sizeAndState(coalescedSpan, Free)
			p.persistClump(firstFree)
		}
		haveFirst = false
		lastFree = 0
		coalescedSpan = 0
	}

	off := Offset(ClumpRegionOffset)
	for {
		c := p.clump(off)
		span := spanOf(c.SizeAndState)
		if span == 0 {
			break
		}

		if stateOf(c.SizeAndState) == Free {
			if !haveFirst {
				firstFree = off
				haveFirst = true
				coalescedSpan = span
			} else {
				lastFree = off
				coalescedSpan += span
			}
		} else {
			flush()
		}

		off += Offset(span)
	}
	flush()
}
