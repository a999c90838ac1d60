// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

import "errors"

// Errors returned to the caller. InvalidArgument, OutOfMemory, and
// IoFailure are ordinary returns: the caller is expected to check them.
// Corruption and ContractViolation panic instead of being returned,
// since the in-memory state machine has no safe next step once either
// is detected; the one exception is Check, which returns ErrCorruption
// (see ErrCorruption/ErrContractViolation below).
var (
	// ErrInvalidArgument is returned when size is below MinPoolSize for
	// a new pool, or another argument fails a precondition check that
	// doesn't touch already-committed pool state.
	ErrInvalidArgument = errors.New("pmem: invalid argument")

	// ErrIoFailure reports an open/stat/fallocate/mmap/write/sync/close
	// failure from the underlying OS call. The returned error wraps this
	// sentinel; the OS error itself appears only in the message text and
	// is not wrapped, so errors.Is cannot match the specific syscall error.
	ErrIoFailure = errors.New("pmem: I/O failure")

	// ErrOutOfMemory is returned by Reserve when no free clump large
	// enough for the request exists.
	ErrOutOfMemory = errors.New("pmem: out of memory")

	// ErrCorruption names the condition raised by corruption detection:
	// a missing/garbled pool signature, a clump walk that never reaches
	// the terminator, an impossible state byte, or (in Check) region byte
	// accounting that does not add up to the file size. Everywhere but Check, corruption is fatal and this
	// sentinel only ever appears inside a panic message; a recover() at
	// a process boundary is the supported way to turn it back into an
	// error. Check is the one operation that never aborts on content
	// errors (it is read-only and exists to report them), so it wraps
	// this sentinel in an ordinary returned error instead of panicking.
	ErrCorruption = errors.New("pmem: corruption detected")

	// ErrContractViolation is the sentinel named in panic messages for
	// caller misuse that the allocator has no way to recover from: an
	// on_active/on_free on a clump in the wrong state, more than three
	// intentions registered on one clump, or reserve/activate called
	// out of order.
	ErrContractViolation = errors.New("pmem: contract violation")
)

func corrupt(msg string) {
	panic(ErrCorruption.Error() + ": " + msg)
}

func violation(msg string) {
	panic(ErrContractViolation.Error() + ": " + msg)
}
