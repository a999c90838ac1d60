// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package persist

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pageSize is the msync granularity. Fixed at 4096 per the pool's own
// page-aligned layout (spec §3); not read from the OS since the on-media
// format itself is defined in terms of 4096-byte sections.
const pageSize = 4096

// pageSync rounds every persisted range outward to a page boundary and
// calls msync(MS_SYNC), for pools backed by a traditional page-cache
// filesystem rather than real persistent memory.
type pageSync struct {
	f *os.File
}

func (b *pageSync) Map(f *os.File, size int64) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	b.f = f
	return data, nil
}

func (b *pageSync) Persist(region []byte) {
	if len(region) == 0 {
		return
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(region)))
	start := base &^ (pageSize - 1)
	end := (base + uintptr(len(region)) + pageSize - 1) &^ (pageSize - 1)
	aligned := unsafe.Slice((*byte)(unsafe.Pointer(start)), end-start)
	if err := unix.Msync(aligned, unix.MS_SYNC); err != nil {
		panic("pmem/persist: msync failed: " + err.Error())
	}
	b.Fence()
	b.Drain()
}

func (b *pageSync) Drain() {
	// msync(MS_SYNC) already blocks until the write-back completes.
}

func (b *pageSync) Fence() {
	fenceStore()
}

func (b *pageSync) Unmap(region []byte) error {
	return unix.Munmap(region)
}
