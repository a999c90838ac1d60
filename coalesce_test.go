// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem_test

import (
	"testing"

	"code.hybscloud.com/pmem"
)

func TestCoalesce_MergesAdjacentFreesAfterFree(t *testing.T) {
	p := openFreshPool(t, pmem.MinPoolSize)

	before := p.check(t)

	a, err := p.Reserve(64)
	if err != nil {
		t.Fatalf("Reserve() failed: %v", err)
	}
	b, err := p.Reserve(64)
	if err != nil {
		t.Fatalf("Reserve() failed: %v", err)
	}
	p.OnActive(a, pmem.StaticAreaOffset, uint64(a))
	p.Activate(a)
	p.OnActive(b, pmem.StaticAreaOffset, uint64(b))
	p.Activate(b)

	// Freeing both adjacent clumps must collapse them back into the
	// original single free run; check reports the same free byte total
	// as before any reservation happened.
	p.OnFree(a, pmem.StaticAreaOffset, 0)
	p.Free(a)
	p.OnFree(b, pmem.StaticAreaOffset, 0)
	p.Free(b)

	after := p.check(t)
	if after.ByState[pmem.Free].Count != before.ByState[pmem.Free].Count {
		t.Fatalf("expected coalescing to restore a single free clump, got %d free clumps",
			after.ByState[pmem.Free].Count)
	}
	if after.ByState[pmem.Free].Bytes != before.ByState[pmem.Free].Bytes {
		t.Fatalf("free byte total after coalescing = %d, want %d",
			after.ByState[pmem.Free].Bytes, before.ByState[pmem.Free].Bytes)
	}
}

func TestCoalesce_LoneFreeClumpIsUntouched(t *testing.T) {
	p := openFreshPool(t, pmem.MinPoolSize)

	before := p.check(t)
	if before.ByState[pmem.Free].Count != 1 {
		t.Fatalf("expected a fresh pool to report exactly 1 free clump, got %d", before.ByState[pmem.Free].Count)
	}
}
