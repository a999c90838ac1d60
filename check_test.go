// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem_test

import (
	"errors"
	"strings"
	"testing"

	"code.hybscloud.com/pmem"
)

func TestCheck_ReportStringHasTotalRow(t *testing.T) {
	p := openFreshPool(t, pmem.MinPoolSize)

	rpt := p.check(t)
	s := rpt.String()
	if !strings.Contains(s, "TOTAL") {
		t.Fatalf("expected report to contain a TOTAL row, got:\n%s", s)
	}
	if !strings.Contains(s, "FREE") {
		t.Fatalf("expected report to contain a FREE row, got:\n%s", s)
	}
}

func TestCheck_ByteAccountingMatchesFileSize(t *testing.T) {
	p := openFreshPool(t, pmem.MinPoolSize)

	off, err := p.Reserve(200)
	if err != nil {
		t.Fatalf("Reserve() failed: %v", err)
	}
	p.OnActive(off, pmem.StaticAreaOffset, uint64(off))
	p.Activate(off)

	rpt := p.check(t)
	if rpt.Total.Count == 0 {
		t.Fatal("expected at least one clump reported")
	}
}

func TestCheck_NonexistentPoolIsIoFailure(t *testing.T) {
	_, err := pmem.Check("/nonexistent/path/to/a/pool")
	if !errors.Is(err, pmem.ErrIoFailure) {
		t.Fatalf("expected IoFailure checking a nonexistent pool, got %v", err)
	}
}
