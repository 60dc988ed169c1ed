// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package sectionreader clips an io.ReaderAt to a single BDT entry's
// [offset, offset+length) span, the way internal/unpack.unpackOne
// isolates one entry's bytes out of a shared data file before handing
// them to AES decryption and padding trim.
package sectionreader

import (
	"io"
	"math"
)

// Section returns an io.ReaderAt restricted to n bytes of r starting at
// off — one BDT entry's worth of a shared data file. If r is itself
// already an *io.SectionReader over the same data file (entries are
// sectioned independently, so this happens whenever a caller re-slices
// an already-sectioned view), the new Section collapses through to the
// original reader instead of nesting wrappers, so a chain of entry
// extractions never grows a deeper offset-translation stack than one
// level.
func Section(r io.ReaderAt, off int64, n int64) *ReaderAt {
	for {
		t, ok := r.(*io.SectionReader)
		if !ok {
			break
		}
		outer, outerOff, outerN := t.Outer()
		if off+n > outerN {
			break
		}
		r, off = outer, off+outerOff
	}

	return &ReaderAt{r, off, n}
}

// ReaderAt is one BDT entry's clipped view over the shared data file
// backing it.
type ReaderAt struct {
	r      io.ReaderAt
	off, n int64
}

func (r *ReaderAt) Outer() (io.ReaderAt, int64, int64) { return r.r, r.off, r.n }

// Size reports the n bytes the view was created with (for unpackOne,
// the entry's ReadLength()), the span ReadAt serves before any unpadding
// or decryption is applied.
func (s *ReaderAt) Size() int64 { return s.n }

func (s *ReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if s.n < 0 || s.off < 0 || off < 0 || s.off+off < 0 || off >= s.n {
		return 0, io.EOF
	}

	ourlimit := s.off + s.n
	if ourlimit < s.off { // integer overflow
		ourlimit = math.MaxInt64
	}

	off += s.off
	if max := ourlimit - off; int64(len(p)) > max {
		p = p[:max]
		n, err = s.r.ReadAt(p, off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return s.r.ReadAt(p, off)
}
