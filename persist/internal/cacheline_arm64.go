// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build arm64

package internal

// CacheLineSize is the flush granularity the Cacheline persistence backend
// walks a byte range with on ARM64. Apple Silicon uses 128-byte L2 lines
// while L1 is 64 bytes; use the conservative 128-byte value so a flush never
// undershoots the line that actually needs writing back.
const CacheLineSize = 128
