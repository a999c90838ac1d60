// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build mips64 || mips64le || ppc64 || ppc64le || s390x || wasm

package internal

// CacheLineSize is the flush granularity the Cacheline persistence backend
// walks a byte range with on other 64-bit architectures. 64 bytes is the
// most common cache line size on modern CPUs.
const CacheLineSize = 64
