// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build riscv64

package internal

// CacheLineSize is the flush granularity the Cacheline persistence backend
// walks a byte range with on RISC-V. Common implementations (SiFive,
// T-Head) use 64-byte cache lines.
const CacheLineSize = 64
