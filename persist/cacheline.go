// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package persist

import (
	"os"
	"unsafe"

	"code.hybscloud.com/pmem/persist/internal"
	"golang.org/x/sys/unix"
)

// cacheline is the clflush + sfence backend. It assumes the platform drains
// hardware store buffers to media automatically on power loss (Intel ADR or
// equivalent) so Drain is a no-op, matching pmem_cl.c.
type cacheline struct{}

func (*cacheline) Map(f *os.File, size int64) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (*cacheline) Persist(region []byte) {
	flushRange(region)
	internal.Sfence()
}

func (*cacheline) Drain() {
	// Nothing to do: the platform is assumed to flush hardware buffers to
	// media automatically on power loss.
}

func (*cacheline) Fence() {
	internal.Sfence()
}

func (*cacheline) Unmap(region []byte) error {
	return unix.Munmap(region)
}

// flushRange evicts every cache line intersecting region, rounding outward
// to internal.CacheLineSize boundaries the way pmem_flush_cache_cl does.
func flushRange(region []byte) {
	if len(region) == 0 {
		return
	}
	align := uintptr(internal.CacheLineSize)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(region)))
	start := base &^ (align - 1)
	end := base + uintptr(len(region))
	for p := start; p < end; p += align {
		internal.ClflushLine(unsafe.Pointer(p))
	}
}
