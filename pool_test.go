// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"code.hybscloud.com/pmem"
)

func corruptSignature(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteAt([]byte("GARBAGE_SIGNATUR"), pmem.HeaderOffset); err != nil {
		t.Fatalf("write corruption: %v", err)
	}
}

func TestInit_FreshPoolIsOneFreeClump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool")
	p, err := pmem.Init(path, pmem.MinPoolSize)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer p.Close()

	rpt, err := pmem.Check(path)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if rpt.ByState[pmem.Free].Count != 1 {
		t.Fatalf("expected 1 free clump, got %d", rpt.ByState[pmem.Free].Count)
	}
	for s := pmem.Reserved; s < pmem.Freeing+1; s++ {
		if rpt.ByState[s].Count != 0 {
			t.Errorf("expected 0 clumps in state %s, got %d", s, rpt.ByState[s].Count)
		}
	}
}

func TestInit_BelowMinimumSizeIsInvalidArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool")
	_, err := pmem.Init(path, pmem.MinPoolSize-1)
	if !errors.Is(err, pmem.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument for undersized new pool, got %v", err)
	}
}

func TestInit_ReopenReadsSizeFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool")
	p1, err := pmem.Init(path, pmem.MinPoolSize)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := p1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	p2, err := pmem.Init(path, 0)
	if err != nil {
		t.Fatalf("reopen Init() failed: %v", err)
	}
	defer p2.Close()

	rpt, err := pmem.Check(path)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if rpt.Total.Count != 1 {
		t.Fatalf("expected 1 total clump after reopen, got %d", rpt.Total.Count)
	}
}

func TestInit_BadSignatureIsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool")
	p, err := pmem.Init(path, pmem.MinPoolSize)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	corruptSignature(t, path)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Init to panic on a corrupted signature")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, pmem.ErrCorruption.Error()) {
			t.Fatalf("expected a corruption panic, got %v", r)
		}
	}()
	_, _ = pmem.Init(path, 0)
}

func TestStaticArea_IsFixedSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool")
	p, err := pmem.Init(path, pmem.MinPoolSize)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer p.Close()

	sa := p.StaticArea()
	if len(sa) != pmem.StaticAreaSize {
		t.Fatalf("expected static area of %d bytes, got %d", pmem.StaticAreaSize, len(sa))
	}
}
