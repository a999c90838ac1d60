// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

// Offset is a byte offset from the pool base. It is the only persistent
// reference type: code must never store a process-absolute unsafe.Pointer
// inside the mapped pool, since the mmap base address can differ across
// runs. Zero always means null; the reserved NULL page at offset 0 makes
// this safe, since no real clump ever starts there.
type Offset uint64

// NullOffset is the offset value that means "no pointer".
const NullOffset Offset = 0

// noCopy is a sentinel embedded in Pool to make `go vet` flag accidental
// copies of a value that holds a live mmap and file descriptor.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
