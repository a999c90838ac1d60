// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !amd64

package internal

import (
	"sync/atomic"
	"unsafe"
)

// ClflushLine is the non-amd64 fallback. Go exposes no portable intrinsic
// for a hardware cache-line writeback outside of per-arch assembly (ARM64's
// DC CVAC, RISC-V's CBO.FLUSH), so this falls back to a dummy atomic load
// that forces the compiler to treat addr as observed, giving the Go memory
// model's happens-before guarantee but not an actual cache writeback. Pools
// opened on these architectures should prefer the PageSync backend, whose
// msync call is a real durability barrier regardless of CPU cache behavior.
func ClflushLine(addr unsafe.Pointer) {
	p := (*uint64)(addr)
	atomic.LoadUint64(p)
}

// Sfence is the non-amd64 fallback store fence.
func Sfence() {
	var dummy uint64
	atomic.AddUint64(&dummy, 0)
}

// HaveClflush is false outside amd64: ClflushLine above is a simulated
// flush, not a real one.
const HaveClflush = false
