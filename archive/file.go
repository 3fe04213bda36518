// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package archive

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"

	"github.com/saferwall/jclassvm/classfile"
	"github.com/saferwall/jclassvm/trace"
)

// binaryLE reads a 4-byte signature constant as the little-endian uint32 it
// represents on the wire.
func binaryLE(sig []byte) uint32 { return binary.LittleEndian.Uint32(sig) }

// Central directory / local file header signatures, little-endian on the
// wire (§6). The canonical ZIP spec is the reference for these offsets, not
// any ad-hoc parsing found in original_source/ — see DESIGN.md.
var (
	centralDirSignature  = []byte{0x50, 0x4B, 0x01, 0x02}
	localHeaderSignature = []byte{0x50, 0x4B, 0x03, 0x04}
)

// ErrUnsupportedCompression is returned for a central directory entry whose
// compression method is neither stored (0) nor deflate (8).
var ErrUnsupportedCompression = errors.New("archive: unsupported compression method")

// ErrDuplicateClass is returned when two entries decode to the same
// qualified internal class name.
var ErrDuplicateClass = errors.New("archive: duplicate class name in archive")

// ErrNotAnArchive is returned when no central directory record can be found.
var ErrNotAnArchive = errors.New("archive: no central directory record found")

// Options configures Open/NewBytes.
type Options struct {
	// Tracer receives structured diagnostics; nil is silent (trace.Safe).
	Tracer trace.Tracer

	// MaxWorkers bounds the class-decoding worker pool; 0 (or a negative
	// value) means runtime.GOMAXPROCS(0) workers.
	MaxWorkers int

	// SkipSignatureVerification disables the best-effort jar signature
	// check entirely (it is always additive, never gating, even when run).
	SkipSignatureVerification bool
}

// Archive is a loaded jar/zip bundle: a class map keyed by qualified
// internal name, plus whatever manifest and signature-block information it
// found. Grounded on the teacher's File: a single struct assembled by New
// with a Close lifecycle and an Anomalies sink that never blocks successful
// loading of the rest of the bundle.
type Archive struct {
	Classes   map[string]*classfile.ClassFile
	Manifest  Manifest
	Signature *SignatureInfo
	Anomalies []string

	data   []byte
	mapped mmap.MMap
	f      *os.File
	opts   Options
	tracer trace.Tracer
}

type centralDirEntry struct {
	compressionMethod uint16
	compressedSize    uint32
	uncompressedSize  uint32
	localHeaderOffset uint32
	name              string
}

// Open mmaps name and loads it as an archive.
func Open(name string, opts *Options) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", name, err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: mmapping %s: %w", name, err)
	}

	a := newArchive(data, opts)
	a.f = f
	a.mapped = data
	if err := a.load(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// NewBytes loads an archive already resident in memory.
func NewBytes(data []byte, opts *Options) (*Archive, error) {
	a := newArchive(data, opts)
	if err := a.load(); err != nil {
		return nil, err
	}
	return a, nil
}

func newArchive(data []byte, opts *Options) *Archive {
	a := &Archive{data: data, Classes: make(map[string]*classfile.ClassFile)}
	if opts != nil {
		a.opts = *opts
	}
	a.tracer = trace.Safe(a.opts.Tracer)
	return a
}

// Close releases the mmap and underlying file handle, if any.
func (a *Archive) Close() error {
	if a.mapped != nil {
		_ = a.mapped.Unmap()
	}
	if a.f != nil {
		return a.f.Close()
	}
	return nil
}

// load locates the central directory, decompresses every entry, and
// assembles the class map and manifest.
func (a *Archive) load() error {
	offsets, err := classfile.FindAllOffsetsParallel(a.data, centralDirSignature)
	if err != nil {
		return fmt.Errorf("archive: scanning for central directory: %w", err)
	}
	if len(offsets) == 0 {
		return ErrNotAnArchive
	}
	a.tracer.Debugf("found %d central directory records", len(offsets))

	entries := make([]centralDirEntry, 0, len(offsets))
	for _, off := range offsets {
		e, err := a.parseCentralDirEntry(off)
		if err != nil {
			a.tracer.Warnf("skipping malformed central directory record at %d: %v", off, err)
			continue
		}
		entries = append(entries, e)
	}

	var manifestEntry *centralDirEntry
	type classJob struct {
		name    string
		payload []byte
	}
	var classJobs []classJob

	for i := range entries {
		e := &entries[i]
		if e.name == ManifestPath {
			manifestEntry = e
			continue
		}
		if len(e.name) >= 6 && e.name[len(e.name)-6:] == ".class" {
			payload, err := a.readEntryPayload(e)
			if err != nil {
				a.tracer.Warnf("reading entry %s: %v", e.name, err)
				continue
			}
			classJobs = append(classJobs, classJob{name: e.name, payload: payload})
		}
	}

	// The manifest is decoded serially so Main-Class is known before
	// execution, per §4.5 step 4.
	if manifestEntry != nil {
		payload, err := a.readEntryPayload(manifestEntry)
		if err != nil {
			return fmt.Errorf("archive: reading manifest: %w", err)
		}
		m, anomalies := parseManifest(payload)
		a.Manifest = m
		a.Anomalies = append(a.Anomalies, anomalies...)
	} else {
		a.Anomalies = append(a.Anomalies, AnoNoManifest)
	}

	if !a.opts.SkipSignatureVerification {
		a.verifySignature(entries)
	}

	// Classes decode in parallel across a bounded worker pool; results land
	// in per-job slots and the map is assembled after every worker
	// completes, so no locking is needed for the shared map, per §5.
	results := make([]*classfile.ClassFile, len(classJobs))
	names := make([]string, len(classJobs))
	g := new(errgroup.Group)
	limit := a.opts.MaxWorkers
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i, job := range classJobs {
		i, job := i, job
		g.Go(func() error {
			cf, err := classfile.Decode(job.payload)
			if err != nil {
				a.tracer.Warnf("decoding %s: %v", job.name, err)
				return nil
			}
			results[i] = cf
			names[i] = cf.ThisClassName
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, cf := range results {
		if cf == nil {
			continue
		}
		if _, dup := a.Classes[names[i]]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateClass, names[i])
		}
		a.Classes[names[i]] = cf
	}

	return nil
}

// parseCentralDirEntry reads one fixed-shape central directory record
// starting at off, per the canonical ZIP layout (not the ad-hoc offsets
// original_source/ uses — see DESIGN.md's Open Question resolution).
func (a *Archive) parseCentralDirEntry(off int) (centralDirEntry, error) {
	r := classfile.NewReaderLittleEndian(a.data)
	r.MoveTo(off)

	sig, err := r.ReadU32()
	if err != nil || sig != binaryLE(centralDirSignature) {
		return centralDirEntry{}, fmt.Errorf("bad central directory signature at %d", off)
	}
	r.Jump(2 + 2 + 2) // version made by, version needed, general purpose flag
	compressionMethod, err := r.ReadU16()
	if err != nil {
		return centralDirEntry{}, err
	}
	r.Jump(2 + 2 + 4) // mod time, mod date, crc-32
	compressedSize, err := r.ReadU32()
	if err != nil {
		return centralDirEntry{}, err
	}
	uncompressedSize, err := r.ReadU32()
	if err != nil {
		return centralDirEntry{}, err
	}
	nameLen, err := r.ReadU16()
	if err != nil {
		return centralDirEntry{}, err
	}
	extraLen, err := r.ReadU16()
	if err != nil {
		return centralDirEntry{}, err
	}
	commentLen, err := r.ReadU16()
	if err != nil {
		return centralDirEntry{}, err
	}
	r.Jump(2 + 2 + 4) // disk number start, internal attrs, external attrs
	localHeaderOffset, err := r.ReadU32()
	if err != nil {
		return centralDirEntry{}, err
	}
	nameBytes, err := r.ReadBytes(int(nameLen))
	if err != nil {
		return centralDirEntry{}, err
	}
	_ = extraLen
	_ = commentLen

	return centralDirEntry{
		compressionMethod: compressionMethod,
		compressedSize:    compressedSize,
		uncompressedSize:  uncompressedSize,
		localHeaderOffset: localHeaderOffset,
		name:              string(nameBytes),
	}, nil
}

// readEntryPayload seeks to e's local file header, skips past its fixed
// fields plus the name/extra fields, and decompresses exactly
// compressedSize bytes of payload, per §4.5 step 2-3.
func (a *Archive) readEntryPayload(e *centralDirEntry) ([]byte, error) {
	r := classfile.NewReaderLittleEndian(a.data)
	r.MoveTo(int(e.localHeaderOffset))

	sig, err := r.ReadU32()
	if err != nil || sig != binaryLE(localHeaderSignature) {
		return nil, fmt.Errorf("bad local file header signature for %s", e.name)
	}
	r.Jump(2 + 2 + 2 + 2 + 2 + 4 + 4 + 4) // version, flags, method, time, date, crc, compressed, uncompressed
	nameLen, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	extraLen, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	r.Jump(int(nameLen) + int(extraLen))

	compressed, err := r.ReadBytes(int(e.compressedSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s payload: %w", e.name, err)
	}

	switch e.compressionMethod {
	case 0:
		out := make([]byte, len(compressed))
		copy(out, compressed)
		return out, nil
	case 8:
		fr := flate.NewReader(bytes.NewReader(compressed))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("inflating %s: %w", e.name, err)
		}
		if uint32(len(out)) != e.uncompressedSize {
			a.tracer.Warnf("%s: inflated %d bytes, central directory declared %d", e.name, len(out), e.uncompressedSize)
		}
		return out, nil
	default:
		a.Anomalies = append(a.Anomalies, fmt.Sprintf("%s: %s (method %d)", e.name, AnoUnsupportedCompressor, e.compressionMethod))
		return nil, fmt.Errorf("%w: %s uses method %d", ErrUnsupportedCompression, e.name, e.compressionMethod)
	}
}
