// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package persist

import "sync/atomic"

// fenceStore is the store barrier shared by the PageSync and FaultInjection
// backends. Both already order their durability writes through a
// synchronous syscall (msync, pwrite), so this only needs to give the Go
// memory model's happens-before guarantee to goroutines that published a
// pointer without going through Persist themselves.
func fenceStore() {
	var b int32
	atomic.AddInt32(&b, 0)
}
