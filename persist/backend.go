// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package persist provides the pluggable durability backends a pmem pool
// maps itself through: Cacheline (clflush + sfence), PageSync (msync), and
// FaultInjection (copy-on-write shadow, for crash-simulation tests).
//
// Exactly one backend is selected at process start via SelectPersistenceMode
// (or ModeFromEnv) and is fixed for the lifetime of the pool; changing it
// after a pool has been opened is undefined, matching the source library's
// process-wide mode assumption. The pool itself holds the chosen Backend by
// value rather than dispatching through a mode variable at every call.
package persist

import (
	"os"
	"strings"
)

// Mode selects which Backend Open returns.
type Mode int

const (
	// Cacheline flushes individual 64-byte lines with CLFLUSH + SFENCE.
	// Appropriate for memory that is genuinely byte-addressable persistent
	// memory (or an emulation of it) where the platform guarantees hardware
	// store buffers drain on power loss (e.g. Intel ADR).
	Cacheline Mode = iota
	// PageSync rounds every persisted range out to page boundaries and
	// calls msync(MS_SYNC). Appropriate for a pool backed by a traditional
	// page-cache filesystem.
	PageSync
	// FaultInjection maps the pool copy-on-write and persists by writing
	// each 64-byte chunk back to the file with a positioned write. Used by
	// crash-simulation tests: killing the process (or simply not calling
	// Persist on the remainder of an operation) never lets a crash observe
	// dirty, unflushed pages.
	FaultInjection
)

// String returns the lowercase name used by ModeFromEnv.
func (m Mode) String() string {
	switch m {
	case Cacheline:
		return "cacheline"
	case PageSync:
		return "pagesync"
	case FaultInjection:
		return "fault-injection"
	default:
		return "unknown"
	}
}

// defaultMode is the process-wide mode set by SelectPersistenceMode. It is
// read through SelectedMode, which pmem.Init calls once per pool before
// passing the result to Open; mutating it afterward does not affect pools
// already opened and is undefined for pools opened concurrently with the
// change.
var defaultMode = Cacheline

// SelectPersistenceMode sets the process-wide persistence mode that
// SelectedMode reports and that pmem.Init hands to Open. It must be called
// before a pool is created or opened; the source library makes the same
// process-wide-before-init assumption.
func SelectPersistenceMode(m Mode) {
	defaultMode = m
}

// SelectedMode returns the process-wide mode most recently set by
// SelectPersistenceMode (or ModeFromEnv), defaulting to Cacheline.
func SelectedMode() Mode {
	return defaultMode
}

// ModeFromEnv reads the named environment variable ("PMEM_MODE" is the
// conventional choice) and, if it names a known mode, applies it via
// SelectPersistenceMode. Recognized values: "cacheline", "pagesync",
// "fault-injection" (case-insensitive). An unset or unrecognized value
// leaves the current mode untouched and reports ok=false.
func ModeFromEnv(name string) (m Mode, ok bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "cacheline":
		m, ok = Cacheline, true
	case "pagesync":
		m, ok = PageSync, true
	case "fault-injection", "faultinjection", "fit":
		m, ok = FaultInjection, true
	default:
		return 0, false
	}
	SelectPersistenceMode(m)
	return m, true
}

// Backend is the capability every persistence mode implements. Map is
// called once, by the pool at open time; Persist/Fence/Drain are called
// repeatedly on the hot path and must be safe for concurrent use by
// multiple goroutines operating on disjoint byte ranges.
type Backend interface {
	// Map maps size bytes of f at offset 0 for read/write and returns the
	// mapped region. The backend retains whatever it needs from f (a
	// duplicated descriptor, in the backends that need one) so the caller
	// may close f afterward.
	Map(f *os.File, size int64) ([]byte, error)

	// Persist makes region durable: flush or write back every aligned
	// unit intersecting it, issue a store fence, then drain hardware
	// buffers. region must be a sub-slice of the slice Map returned.
	Persist(region []byte)

	// Drain ensures all previously issued durability operations are
	// globally visible before returning.
	Drain()

	// Fence issues a store barrier without flushing or draining, for
	// callers that publish without requiring immediate durability.
	Fence()

	// Unmap releases the mapping established by Map.
	Unmap(region []byte) error
}

// Open returns the Backend for m.
func Open(m Mode) Backend {
	switch m {
	case PageSync:
		return &pageSync{}
	case FaultInjection:
		return &faultInjection{}
	default:
		return &cacheline{}
	}
}
