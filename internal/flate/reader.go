package flate

import (
	"errors"
	"io"
	"sort"
)

// Reader is the lazy, block-checkpointed random-access view over a
// DCX-wrapped DEFLATE member that internal/dcx.Decompress returns for
// the DEFLATE inner-compression method: a probe against just the first
// few bytes of a member (internal/sniff's recursive classification)
// never has to inflate the whole payload, unlike ZSTD/XZ which fall
// back to internal/decompressioncache's single-shot stepper.
type Reader struct {
	r                       io.ReaderAt
	compressedSize, rawSize int64
	stepBytes               int
	checkpoints             []resumePoint
	activeCheckpoint        int
	seek                    int64
}

// NewReader wraps r, a DEFLATE stream of compressedSize bytes, as a
// Reader serving rawSize decompressed bytes at arbitrary offsets.
func NewReader(r io.ReaderAt, compressedSize, rawSize int64) *Reader {
	return &Reader{
		r:                r,
		compressedSize:   compressedSize,
		rawSize:          rawSize,
		checkpoints:      make([]resumePoint, 1),
		stepBytes:        max(int(rawSize/5000), 500000),
		activeCheckpoint: -1,
	}
}

// Size reports the decompressed length, matching the uncompressedSize
// field of the DCX header that produced this Reader.
func (r *Reader) Size() int64 {
	return r.rawSize
}

func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= r.rawSize {
		return 0, io.EOF
	}
	endoff := min(r.rawSize, off+int64(len(p)))

	// Index of the first checkpoint that could satisfy this read
	i := sort.Search(len(r.checkpoints), func(i int) bool {
		return r.checkpoints[i].woffset > off
	}) - 1
	if i < 0 {
		panic("first checkpoint no good")
	}

	cursor := int64(0)
	for cursor < endoff {
		var err error
		if i != r.activeCheckpoint { // cache is not sufficient
			if r.activeCheckpoint >= 0 {
				// drop the inflated output, keeping only the dictionary window
				cp := &r.checkpoints[r.activeCheckpoint]
				if cp.woffset == 0 {
					cp.big = nil
				} else {
					cp.big = cp.big[:maxMatchOffset:maxMatchOffset]
				}
			}
			r.activeCheckpoint = i
			nrp, e := readAtLeast(r.r, r.compressedSize, &r.checkpoints[i], r.stepBytes)
			err = e
			if i+1 == len(r.checkpoints) { // tells us how to get the next chunk
				r.checkpoints = append(r.checkpoints, nrp)
			}
		}

		usable := r.checkpoints[i].big[maxMatchOffset:]
		// This loop should be a conditional clipped copy()
		for j, b := range usable {
			is := r.checkpoints[i].woffset + int64(j)
			if is >= off && is < endoff {
				p[is-off] = b
				cursor = is + 1
			}
		}

		if cursor == endoff {
			err = io.EOF
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return int(cursor - off), err // might be a harmless EOF or a real problem
		}
		i++
	}
	return int(cursor - off), nil
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.seek)
	r.seek += int64(n)
	return n, err
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += r.seek
	case io.SeekEnd:
		offset += r.rawSize
	default:
		return 0, errWhence
	}
	if offset < 0 {
		return 0, errOffset
	}
	r.seek = offset
	return offset, nil
}

var errWhence = errors.New("Seek: invalid whence")
var errOffset = errors.New("Seek: invalid offset")
