// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"sort"
	"testing"
)

func TestReaderPrimitiveReads(t *testing.T) {
	buf := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x34, 0xFF}
	r := NewReader(buf)

	magic, err := r.ReadU32()
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if magic != 0xCAFEBABE {
		t.Fatalf("magic = %#x, want 0xCAFEBABE", magic)
	}

	minor, err := r.ReadU16()
	if err != nil {
		t.Fatalf("ReadU16: %v", err)
	}
	if minor != 0x0034 {
		t.Fatalf("minor = %#x, want 0x34", minor)
	}

	if r.CurrentOffset() != 6 {
		t.Fatalf("CurrentOffset = %d, want 6", r.CurrentOffset())
	}

	if _, err := r.ReadU16(); err != ErrEndOfInput {
		t.Fatalf("expected ErrEndOfInput, got %v", err)
	}
}

func TestReaderPushPopIndex(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	_, _ = r.ReadU8()
	r.PushIndex()
	_, _ = r.ReadU8()
	_, _ = r.ReadU8()
	r.PopIndex()
	if r.CurrentOffset() != 1 {
		t.Fatalf("CurrentOffset after PopIndex = %d, want 1", r.CurrentOffset())
	}
}

func TestReaderFindFrom(t *testing.T) {
	buf := []byte{0, 0, 0x50, 0x4B, 0x01, 0x02, 0, 0x50, 0x4B, 0x01, 0x02}
	r := NewReader(buf)

	off, err := r.FindFrom([]byte{0x50, 0x4B, 0x01, 0x02}, 0)
	if err != nil || off != 2 {
		t.Fatalf("FindFrom(0) = %d, %v; want 2, nil", off, err)
	}

	off, err = r.FindFrom([]byte{0x50, 0x4B, 0x01, 0x02}, 3)
	if err != nil || off != 7 {
		t.Fatalf("FindFrom(3) = %d, %v; want 7, nil", off, err)
	}

	if _, err := r.FindFrom([]byte{0xDE, 0xAD}, 0); err != ErrPatternNotFound {
		t.Fatalf("expected ErrPatternNotFound, got %v", err)
	}
}

func TestFindAllOffsetsParallelMatchesSequential(t *testing.T) {
	pattern := []byte{0x50, 0x4B, 0x01, 0x02}
	buf := make([]byte, 50000)
	var want []int
	for _, off := range []int{0, 17, 4096, 4100, 4104, 20000, 49996} {
		copy(buf[off:], pattern)
		want = append(want, off)
	}
	sort.Ints(want)

	got, err := FindAllOffsetsParallel(buf, pattern)
	if err != nil {
		t.Fatalf("FindAllOffsetsParallel: %v", err)
	}
	sort.Ints(got)

	if len(got) != len(want) {
		t.Fatalf("got %d offsets %v, want %d offsets %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("offset[%d] = %d, want %d (got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func TestFindAllOffsetsParallelOverlapBoundary(t *testing.T) {
	pattern := []byte{0xAA, 0xBB}
	buf := make([]byte, 10)
	for i := 0; i < len(buf); i += 2 {
		buf[i] = 0xAA
		buf[i+1] = 0xBB
	}
	got, err := FindAllOffsetsParallel(buf, pattern)
	if err != nil {
		t.Fatalf("FindAllOffsetsParallel: %v", err)
	}
	sort.Ints(got)
	want := []int{0, 2, 4, 6, 8}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
