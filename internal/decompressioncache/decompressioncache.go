// Package decompressioncache memoizes the decompressed bytes of codecs
// that, unlike internal/flate's checkpointed reader, have no native
// random access: internal/dcx wraps its ZSTD and XZ Stepper functions
// here so that internal/sniff's repeated reads through one decompressed
// DCX member (the prefix read, then the structural probes) don't each
// pay a full re-decode of the payload.
package decompressioncache

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"
)

// Stepper produces the next chunk of a decompressed member. It is
// guaranteed never to be called too many times, so it never needs to
// return io.EOF for the last chunk out of caution; ZSTD and XZ both
// decode in one Stepper call since neither exposes DEFLATE's notion of
// a resumable block boundary.
type Stepper func() (Stepper, []byte, error)

// New wraps stepper as a ReaderAt serving size decompressed bytes.
// memberName identifies the DCX member in cache keys. Keys also carry a
// per-instance sequence number, so repeated ReadAt calls on the returned
// ReaderAt hit the block cache, while a second New for the same member
// decodes afresh even with the same memberName.
func New(stepper Stepper, size int64, memberName string) *ReaderAt {
	return &ReaderAt{
		uniq:        atomic.AddUint64(&instanceSeq, 1),
		memberName:  memberName,
		checkpoints: []checkpoint{{stepper: stepper, offset: 0}},
		size:        size,
	}
}

func (r *ReaderAt) Size() int64 {
	return r.size
}

func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	} else if off+int64(len(p)) > r.size {
		p = p[:r.size-off]
	}

	i := sort.Search(len(r.checkpoints), func(i int) bool {
		return r.checkpoints[i].offset > off
	}) - 1

	// start with the highest checkpoint that starts <= the request
	for { // with some care this loop could be concurrent
		key := fmt.Sprintf("%s_%d_%d", r.memberName, r.uniq, r.checkpoints[i].offset)
		blob, cacheErr := cache.Get(key)

		if cacheErr != nil { // decompress a block expensively
			newstepper, newblob, err := r.checkpoints[i].stepper()
			blob = newblob
			cache.Set(key, blob)
			r.checkpoints[i].err = err
			if r.checkpoints[i].offset+int64(len(blob)) >= r.size {
				r.checkpoints[i].err = io.EOF // this is the last one, return io.EOF consistently
			} else if i+1 == len(r.checkpoints) { // stepper for the next one
				r.checkpoints = append(r.checkpoints, checkpoint{
					stepper: newstepper,
					offset:  r.checkpoints[i].offset + int64(len(blob))})
			}
		}

		// copy bytes into the destination buffer
		destcut, srccut, ok := overlap(off, len(p), r.checkpoints[i].offset, len(blob))
		if !ok {
			panic("obtained a chunk but it does not overlap with the request, never OK")
		}
		n := copy(p[destcut:], blob[srccut:])
		if destcut+n == len(p) /*satisfied*/ || r.checkpoints[i].err != nil /*eof*/ {
			return destcut + n, r.checkpoints[i].err
		}

		i++
	}
}

// ReaderAt serves a single DCX member's decompressed bytes, caching
// whichever chunks stepper has already produced so overlapping reads
// (internal/sniff peeking the same member more than once) don't
// re-invoke the underlying ZSTD/XZ decoder.
type ReaderAt struct {
	uniq        uint64
	memberName  string
	checkpoints []checkpoint // once there is no more data, nil checkpoint
	size        int64
}

type checkpoint struct {
	stepper Stepper
	offset  int64
	err     error
}

var instanceSeq uint64

var cache *bigcache.BigCache

func init() {
	c, err := bigcache.New(context.Background(), bigcache.Config{
		HardMaxCacheSize: 1024, // megabytes; bounds memory held by in-flight DCX member decodes
		Shards:           1024,
	})
	if err != nil {
		panic(err)
	}
	cache = c
}

func overlap(aoffset int64, alen int, boffset int64, blen int) (ainner, binner int, ok bool) {
	if aoffset >= boffset+int64(blen) || boffset >= aoffset+int64(alen) {
		return 0, 0, false
	}

	if aoffset > boffset {
		binner = int(aoffset - boffset)
	} else {
		ainner = int(boffset - aoffset)
	}
	return ainner, binner, true
}
