// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stress is the multi-producer/multi-consumer conformance
// harness for the pmem allocator's concurrency contract: one allocator
// goroutine and one freeing goroutine per "thread", sharing a
// persistent T×M grid of mailbox slots. Allocators scan their row for
// an empty slot and reserve/activate a random-sized payload into it;
// freers pick random slots on their row and free whatever they find
// there. Opening the grid reclaims any mailboxes a previous, crashed
// run left non-null, which exercises recovery across process restarts.
package stress
