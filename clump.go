// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

import "unsafe"

// State is a clump's position in the five-state allocation lifecycle,
// encoded in the low 6 bits of its size word (clump.go's spanOf/stateOf
// are the only code allowed to touch those bits directly).
type State byte

const (
	Free State = iota
	Reserved
	Activating
	Active
	Freeing
	numStates
)

func (s State) String() string {
	switch s {
	case Free:
		return "FREE"
	case Reserved:
		return "RESERVED"
	case Activating:
		return "ACTIVATING"
	case Active:
		return "ACTIVE"
	case Freeing:
		return "FREEING"
	default:
		return "UNKNOWN"
	}
}

// stateMask covers the low 6 bits of a size-and-state word; ClumpAlign
// (64) guarantees spans never set bits below it, so the two fields share
// one 64-bit word without overlap.
const stateMask = ClumpAlign - 1

// stateOf extracts the state from a clump's size-and-state word.
func stateOf(word uint64) State {
	return State(word & stateMask)
}

// spanOf extracts the span (total clump size including its 64-byte
// header) from a clump's size-and-state word.
func spanOf(word uint64) uint64 {
	return word &^ stateMask
}

// sizeAndState packs a span and state back into one word. span must
// already be a multiple of ClumpAlign.
func sizeAndState(span uint64, state State) uint64 {
	return span | uint64(state)
}

// intention is one (offset, value) entry in a clump's publication list:
// at activate/free time, value is stored at base+offset.
type intention struct {
	Offset uint64
	Value  uint64
}

// clump is the 64-byte, naturally aligned on-media allocation header.
// clumpAt reinterprets pool bytes directly as *clump; no field is ever
// copied out and written back piecemeal, so every store through a field
// goes straight to the mapped region.
type clump struct {
	SizeAndState uint64
	PrevSize     uint64
	On           [3]intention
}

const clumpHeaderSize = 64

func init() {
	if unsafe.Sizeof(clump{}) != clumpHeaderSize {
		panic("pmem: clump header size drifted from 64 bytes")
	}
}

// clumpAt reinterprets the 64 bytes at byte offset off in data as a
// *clump. Callers must ensure off+64 <= len(data) and off is 64-byte
// aligned.
func clumpAt(data []byte, off Offset) *clump {
	return (*clump)(unsafe.Pointer(&data[off]))
}

// clearIntentions zeroes all three intention slots in place.
func (c *clump) clearIntentions() {
	c.On[0] = intention{}
	c.On[1] = intention{}
	c.On[2] = intention{}
}

// firstFreeSlot returns the index of the first intention slot whose
// Offset field is zero, or -1 if all three are occupied.
func (c *clump) firstFreeSlot() int {
	for i := range c.On {
		if c.On[i].Offset == 0 {
			return i
		}
	}
	return -1
}
