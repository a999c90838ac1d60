// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build amd64

package internal

import "unsafe"

// ClflushLine evicts the cache line containing addr back to memory using the
// CLFLUSH instruction. The Go assembler has no CLFLUSH mnemonic, so the
// implementation in flush_amd64.s emits the raw opcode bytes (the same
// trick libpmem's pmem_cl.c reaches for via the GCC __builtin_ia32_clflush
// intrinsic).
func ClflushLine(addr unsafe.Pointer)

// Sfence issues an SFENCE, ordering all prior stores ahead of it against
// stores that follow. Used after a run of ClflushLine calls, mirroring
// libpmem's clflush-then-sfence sequence.
func Sfence()

// HaveClflush reports whether the CLFLUSH primitives above are safe to use
// on the running CPU. CLFLUSH has been present on every mainstream x86-64
// chip since the introduction of SSE2, so this is true unconditionally on
// amd64; it exists as a single place a future CPUID-gated backend could
// override.
const HaveClflush = true
