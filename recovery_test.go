// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

import (
	"path/filepath"
	"testing"
)

// openForInternalTest is the package-internal equivalent of the exported
// test helpers in the _test package: it opens a fresh pool without
// running the usual external-package Init call chain twice.
func openForInternalTest(t *testing.T, size int64) *Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool")
	p, err := Init(path, size)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// TestRecover_ActivatingClumpFinishesForward simulates a crash between
// the ACTIVATING state transition and the pointer-publication step: it
// reserves a clump, registers one intention, sets the state to
// Activating by hand (skipping the normal Activate call that would run
// the intention itself), then runs recover directly and checks the
// intention was executed and the clump ended up ACTIVE.
func TestRecover_ActivatingClumpFinishesForward(t *testing.T) {
	p := openForInternalTest(t, MinPoolSize)

	off, err := p.Reserve(16)
	if err != nil {
		t.Fatalf("Reserve() failed: %v", err)
	}
	clp, c := p.clumpOffsetOf(off)
	c.On[0] = intention{Offset: uint64(StaticAreaOffset), Value: uint64(off)}
	span := spanOf(c.SizeAndState)
	c.SizeAndState = sizeAndState(span, Activating)
	p.persistClump(clp)

	p.recover()

	if stateOf(p.clump(clp).SizeAndState) != Active {
		t.Fatalf("expected clump to end ACTIVE after recovery, got %s", stateOf(p.clump(clp).SizeAndState))
	}
	got := p.readUint64Test(Offset(StaticAreaOffset))
	if Offset(got) != off {
		t.Fatalf("static area word = %d, want %d", got, off)
	}
	if p.clump(clp).firstFreeSlot() != 0 {
		t.Fatal("expected intention list cleared after recovery")
	}
}

// TestRecover_ReservedClumpReturnsToFree simulates a crash after a
// reservation's split but before any OnActive call: the clump must come
// back as FREE with an empty intention list.
func TestRecover_ReservedClumpReturnsToFree(t *testing.T) {
	p := openForInternalTest(t, MinPoolSize)

	off, err := p.Reserve(16)
	if err != nil {
		t.Fatalf("Reserve() failed: %v", err)
	}
	clp, _ := p.clumpOffsetOf(off)

	p.recover()

	if stateOf(p.clump(clp).SizeAndState) != Free {
		t.Fatalf("expected RESERVED clump to revert to FREE, got %s", stateOf(p.clump(clp).SizeAndState))
	}
	if p.clump(clp).firstFreeSlot() != 0 {
		t.Fatal("expected intention list empty after recovery")
	}
}

// TestRecover_IsIdempotent checks that running recover twice in a row
// produces the same on-media state the second time.
func TestRecover_IsIdempotent(t *testing.T) {
	p := openForInternalTest(t, MinPoolSize)

	off, err := p.Reserve(16)
	if err != nil {
		t.Fatalf("Reserve() failed: %v", err)
	}
	clp, c := p.clumpOffsetOf(off)
	c.On[0] = intention{Offset: uint64(StaticAreaOffset), Value: uint64(off)}
	span := spanOf(c.SizeAndState)
	c.SizeAndState = sizeAndState(span, Activating)
	p.persistClump(clp)

	p.recover()
	first := p.clump(clp).SizeAndState
	p.recover()
	second := p.clump(clp).SizeAndState

	if first != second {
		t.Fatalf("recover is not idempotent: first=%d second=%d", first, second)
	}
}

func (p *Pool) readUint64Test(off Offset) uint64 {
	b := p.data[off : off+8]
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
