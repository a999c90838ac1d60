// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package persist

import (
	"os"

	"golang.org/x/sys/unix"
)

// OpenReadOnly maps size bytes of f at offset 0 for reading only. It
// backs Check, which must never write to or recover a pool; a regular
// Backend always maps for read/write since every mode but Check's
// caller eventually mutates the pool.
func OpenReadOnly(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

// CloseReadOnly unmaps a region returned by OpenReadOnly.
func CloseReadOnly(region []byte) error {
	return unix.Munmap(region)
}
