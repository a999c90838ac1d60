// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build amd64

package internal

// CacheLineSize is the flush granularity the Cacheline persistence backend
// walks a byte range with. All modern Intel and AMD processors use 64-byte
// cache lines, matching the on-media clump alignment exactly.
const CacheLineSize = 64
