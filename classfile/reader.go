// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrEndOfInput is returned when a read would advance the cursor past the
// end of the underlying buffer.
var ErrEndOfInput = errors.New("classfile: read past end of input")

// ErrPatternNotFound is returned by Reader.FindFrom when no occurrence of the
// search pattern exists at or after the requested start offset.
var ErrPatternNotFound = errors.New("classfile: pattern not found")

// ErrOutsideBoundary is returned by modified UTF-8 decoding when a
// multi-byte sequence is truncated or starts with an invalid lead byte; the
// positional readers report a short buffer as ErrEndOfInput instead.
var ErrOutsideBoundary = errors.New("classfile: read outside buffer boundary")

// Reader is a positional cursor over a byte buffer with configurable
// endianness for its multi-byte primitive reads, per §4.1. The class file
// format is always big-endian; the ZIP archive format the archive package
// reads with it is little-endian, so the order is a construction-time
// choice rather than fixed.
type Reader struct {
	buf        []byte
	pos        int
	savedIndex int
	order      binary.ByteOrder
}

// NewReader wraps buf for positional, bounds-checked big-endian reads, the
// order the class file format uses. The returned Reader does not copy buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, order: binary.BigEndian}
}

// NewReaderLittleEndian wraps buf for positional, bounds-checked
// little-endian reads, the order the ZIP archive format uses.
func NewReaderLittleEndian(buf []byte) *Reader {
	return &Reader{buf: buf, order: binary.LittleEndian}
}

// Length returns the number of bytes in the underlying buffer.
func (r *Reader) Length() int { return len(r.buf) }

// CurrentOffset returns the cursor's current position.
func (r *Reader) CurrentOffset() int { return r.pos }

// MoveTo repositions the cursor to an absolute offset.
func (r *Reader) MoveTo(offset int) { r.pos = offset }

// Jump advances (or rewinds, for a negative delta) the cursor by delta bytes.
func (r *Reader) Jump(delta int) { r.pos += delta }

// PushIndex saves the current cursor position. Only one depth is kept — a
// second PushIndex before a PopIndex overwrites the first save, matching the
// "single-depth save/restore" contract.
func (r *Reader) PushIndex() { r.savedIndex = r.pos }

// PopIndex restores the cursor to the position last saved by PushIndex.
func (r *Reader) PopIndex() { r.pos = r.savedIndex }

// ReadBytes advances the cursor by n and returns the consumed slice. The
// returned slice aliases the underlying buffer; callers that need to retain
// it past further mutation of buf should copy it.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrEndOfInput
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (r *Reader) PeekBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrEndOfInput
	}
	return r.buf[r.pos : r.pos+n], nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads one signed byte.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadU16 reads a uint16 in the reader's configured order.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// ReadI16 reads an int16 in the reader's configured order.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads a uint32 in the reader's configured order.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// ReadI32 reads an int32 in the reader's configured order.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads a uint64 in the reader's configured order.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// ReadI64 reads an int64 in the reader's configured order.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 reads an IEEE-754 single-precision float in the reader's
// configured order.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads an IEEE-754 double-precision float in the reader's
// configured order.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// FindFrom returns the first offset at or after start where pattern occurs,
// or ErrPatternNotFound.
func (r *Reader) FindFrom(pattern []byte, start int) (int, error) {
	if start < 0 || start > len(r.buf) {
		return 0, ErrPatternNotFound
	}
	idx := bytes.Index(r.buf[start:], pattern)
	if idx < 0 {
		return 0, ErrPatternNotFound
	}
	return start + idx, nil
}

// FindAllOffsetsParallel partitions buf across min(NumCPU, len(buf)) workers
// and searches each partition for every occurrence of pattern, with an
// overlap of len(pattern)-1 bytes appended to each partition so a match
// spanning a partition boundary is still observed. The merged result is
// sorted ascending, matching sequential-scan discovery order.
func FindAllOffsetsParallel(buf []byte, pattern []byte) ([]int, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("classfile: empty search pattern")
	}
	n := len(buf)
	if n == 0 {
		return nil, nil
	}

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (n + workers - 1) / workers
	overlap := len(pattern) - 1
	results := make([][]int, workers)

	g := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		w := w
		start := w * chunk
		if start >= n {
			continue
		}
		end := start + chunk
		if end > n {
			end = n
		}
		searchEnd := end + overlap
		if searchEnd > n {
			searchEnd = n
		}

		g.Go(func() error {
			var found []int
			region := buf[start:searchEnd]
			off := 0
			for off <= len(region)-len(pattern) {
				idx := bytes.Index(region[off:], pattern)
				if idx < 0 {
					break
				}
				abs := start + off + idx
				// A match is only reported by the worker whose primary
				// [start, end) range contains its start offset, so matches
				// living purely in the overlap tail aren't double-counted
				// by this worker and the next.
				if abs < end {
					found = append(found, abs)
				}
				off += idx + 1
			}
			results[w] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []int
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}
