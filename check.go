// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

import (
	"fmt"
	"os"
	"strings"

	"code.hybscloud.com/pmem/persist"
)

// StateStats summarizes every clump in one state: count, total payload
// bytes (span minus the 64-byte header), and the smallest/largest
// payload size (also span minus header) seen.
type StateStats struct {
	Count    int
	Bytes    uint64
	Largest  uint64
	Smallest uint64
}

// Report is the result of Check: per-state statistics plus a grand
// total across every clump, matching pmemalloc_check's summary table.
type Report struct {
	ByState [numStates]StateStats
	Total   StateStats
}

// String renders Report as the State/Bytes/Clumps/Largest/Smallest
// table plus a trailing TOTAL row.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %10s %8s %10s %10s\n", "STATE", "BYTES", "CLUMPS", "LARGEST", "SMALLEST")
	for s := State(0); s < numStates; s++ {
		st := r.ByState[s]
		fmt.Fprintf(&b, "%-12s %10d %8d %10d %10d\n", s, st.Bytes, st.Count, st.Largest, st.Smallest)
	}
	fmt.Fprintf(&b, "%-12s %10d %8d %10d %10d\n", "TOTAL", r.Total.Bytes, r.Total.Count, r.Total.Largest, r.Total.Smallest)
	return b.String()
}

// Check opens the pool at path read-only and walks every clump,
// validating the on-media format without writing or recovering
// anything: spans are positive multiples of 64, FREE/ACTIVE clumps
// carry an empty intention list, the walk terminates exactly at the
// expected terminator offset, and the region's byte accounting matches
// the file size. It returns a Report summarizing the pool by state.
func Check(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("%w: open %s: %v", ErrIoFailure, path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Report{}, fmt.Errorf("%w: stat %s: %v", ErrIoFailure, path, err)
	}
	size := st.Size()

	data, err := persist.OpenReadOnly(f, size)
	if err != nil {
		return Report{}, fmt.Errorf("%w: map %s: %v", ErrIoFailure, path, err)
	}
	defer func() { _ = persist.CloseReadOnly(data) }()

	if string(data[HeaderOffset:HeaderOffset+16]) != signature {
		return Report{}, fmt.Errorf("%w: bad pool signature", ErrCorruption)
	}

	var rpt Report
	var spanSum uint64
	off := Offset(ClumpRegionOffset)
	expectedTerminator := Offset((size &^ (ClumpAlign - 1)) - clumpHeaderSize)

	for {
		c := clumpAt(data, off)
		word := c.SizeAndState
		span := spanOf(word)
		if span == 0 {
			if off != expectedTerminator {
				return Report{}, fmt.Errorf("%w: clump walk did not reach terminator (stopped at %d, expected %d)", ErrCorruption, off, expectedTerminator)
			}
			break
		}
		if span%ClumpAlign != 0 {
			return Report{}, fmt.Errorf("%w: clump at %d has non-aligned span %d", ErrCorruption, off, span)
		}

		state := stateOf(word)
		if state >= numStates {
			return Report{}, fmt.Errorf("%w: clump at %d has impossible state %d", ErrCorruption, off, uint64(state))
		}
		if (state == Free || state == Active) && c.On != [3]intention{} {
			return Report{}, fmt.Errorf("%w: clump at %d in state %s has a non-empty intention list", ErrCorruption, off, state)
		}

		payloadBytes := span - clumpHeaderSize
		accumulate(&rpt.ByState[state], payloadBytes)
		accumulate(&rpt.Total, payloadBytes)
		spanSum += span

		off += Offset(span)
	}

	tailPadding := uint64(size) & (ClumpAlign - 1)
	if uint64(ClumpRegionOffset)+spanSum+tailPadding+clumpHeaderSize != uint64(size) {
		return Report{}, fmt.Errorf("%w: byte accounting mismatch: region+spans+tail+terminator != file size", ErrCorruption)
	}

	return rpt, nil
}

func accumulate(st *StateStats, bytes uint64) {
	st.Count++
	st.Bytes += bytes
	if st.Count == 1 || bytes > st.Largest {
		st.Largest = bytes
	}
	if st.Count == 1 || bytes < st.Smallest {
		st.Smallest = bytes
	}
}
