// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package persist

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// faultInjection maps the pool MAP_PRIVATE (copy-on-write) and makes a
// range durable by writing each 64-byte chunk straight back to the file
// with a positioned write, matching pmem_fit.c. Because the mapping is
// private, anything the process has not yet persisted never reaches the
// file: killing the process (or simply skipping the Persist call at a
// chosen point) reproduces exactly the
// "crash before this store was made durable" scenario without needing a
// real persistent-memory device or an external debugger.
type faultInjection struct {
	fd   int
	base uintptr
}

func (b *faultInjection) Map(f *os.File, size int64) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	dupFd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	b.fd = dupFd
	b.base = uintptr(unsafe.Pointer(unsafe.SliceData(data)))
	return data, nil
}

func (b *faultInjection) Persist(region []byte) {
	if len(region) == 0 {
		return
	}
	const chunk = 64
	base := uintptr(unsafe.Pointer(unsafe.SliceData(region)))
	start := base &^ (chunk - 1)
	end := base + uintptr(len(region))
	for p := start; p < end; p += chunk {
		line := unsafe.Slice((*byte)(unsafe.Pointer(p)), chunk)
		off := int64(p - b.base)
		if _, err := unix.Pwrite(b.fd, line, off); err != nil {
			panic("pmem/persist: pwrite failed: " + err.Error())
		}
	}
	b.Fence()
	b.Drain()
}

func (b *faultInjection) Drain() {
	// Nothing further: pwrite above already wrote the bytes to the file;
	// there is no HW buffer to drain in the fault-injection simulation.
}

func (b *faultInjection) Fence() {
	fenceStore()
}

func (b *faultInjection) Unmap(region []byte) error {
	if err := unix.Close(b.fd); err != nil {
		return err
	}
	return unix.Munmap(region)
}
