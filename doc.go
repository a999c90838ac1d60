// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pmem implements a crash-consistent allocator over a single
// memory-mapped file (a "pool") whose contents survive process exit and
// power loss. It provides the primitives higher-level persistent data
// structures need to mutate linked structures atomically with respect
// to a crash.
//
// # On-media layout
//
// A pool is a flat file with a fixed layout: a NULL page (so offset 0
// safely means "no pointer"), a 4 KiB static area for client root
// pointers, a red-zone, a pool header carrying a signature and the
// total size, and a clump region running to a 64-byte terminator clump
// whose size word is zero.
//
//	Offset   Size   Purpose
//	──────   ────   ───────
//	0        4096   NULL page
//	4096     4096   Static area (StaticArea)
//	8192     4096   Red-zone, reserved
//	12288    4096   Pool header (signature + total size)
//	16384    —      Clump region
//
// # Clumps and the four-phase commit
//
// Every allocation is a 64-byte-aligned "clump": a 64-byte header
// (size-and-state word, an unused prev_size field, and a 3-slot
// intention list) immediately followed by payload. A clump's state
// (Free, Reserved, Activating, Active, Freeing) is encoded in the low 6
// bits of its size word; the remaining bits hold its span.
//
// Publishing a new object into a persistent structure is a four-phase
// commit with no undo log:
//
//	off, err := pool.Reserve(size)   // carve out a RESERVED clump
//	pool.OnActive(off, parent, val)  // register a pointer publication
//	pool.Activate(off)               // commit: RESERVED -> ACTIVE
//
// Retiring an object is the mirror image:
//
//	pool.OnFree(off, parent, val)     // register a pointer retraction
//	pool.Free(off)                    // commit: ACTIVE -> FREE
//
// The commit point for Activate is the durable transition to
// Activating; for Free it is the transition to Freeing. Everything
// before that point is garbage-collectible by the next Init's recovery
// scan; everything from that point on is completed by recovery if the
// process does not survive to finish it itself.
//
// # Persistence backends
//
// How a byte range is made durable is pluggable; see the persist
// subpackage. SelectPersistenceMode picks the backend before the first
// Init call.
package pmem
