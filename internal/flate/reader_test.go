package flate

import (
	"bytes"
	goflate "compress/flate"
	"fmt"
	"io"
	"math/rand/v2"
	"testing"
)

// rawPathTable and its compressed form stand in for the kind of BDT
// payload internal/dcx.Decompress hands a Reader: a DEFLATE member with
// enough internal repetition (a synthetic path-table-like blob) to
// exercise the checkpoint/dictionary-carry logic across many random
// ReadAt spans, not just a single linear decode.
var rawPathTable = mkPathTableFixture()
var compressedPathTable = deflateCompress(rawPathTable)

func TestReaderRandomAccess(t *testing.T) {
	rng := rand.New(rand.NewPCG(22, 22))
	var r *Reader
	for i := range 100 {
		left := rng.Int64N(int64(len(rawPathTable)))
		right := rng.Int64N(int64(len(rawPathTable)))
		left, right = min(left, right), max(left, right)

		t.Run(fmt.Sprintf("%#x:%#x fresh=%d", left, right, (i+1)%2), func(t *testing.T) {
			if i%2 == 0 {
				// Every other case starts a fresh Reader, to check
				// that a DCX member probed from scratch (the common
				// case for internal/sniff's classification) behaves
				// the same as one already warmed up by earlier reads.
				r = NewReader(bytes.NewReader(compressedPathTable), int64(len(compressedPathTable)), int64(len(rawPathTable)))
			}

			buf := make([]byte, right-left)
			n, err := r.ReadAt(buf, left)
			if err != nil && err != io.EOF {
				t.Error(err)
			}
			if n != int(right-left) {
				t.Errorf("expected %d bytes got %d", right-left, n)
			}
			if !bytes.Equal(buf, rawPathTable[left:right]) {
				t.Error("bad data")
			}
		})
	}
}

func TestReaderSizeMatchesRawLength(t *testing.T) {
	r := NewReader(bytes.NewReader(compressedPathTable), int64(len(compressedPathTable)), int64(len(rawPathTable)))
	if r.Size() != int64(len(rawPathTable)) {
		t.Fatalf("Size() = %d, want %d", r.Size(), len(rawPathTable))
	}
}

func TestReaderSeekAndRead(t *testing.T) {
	r := NewReader(bytes.NewReader(compressedPathTable), int64(len(compressedPathTable)), int64(len(rawPathTable)))
	if _, err := r.Seek(10, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 20)
	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], rawPathTable[10:10+n]) {
		t.Error("Read after Seek returned the wrong bytes")
	}
}

// mkPathTableFixture builds a deterministic blob shaped like the
// repeated, similar path strings a BDT path-table member actually
// contains: mostly-random runs interspersed with back-references into
// earlier output, which is what gives DEFLATE something to compress
// and gives the Reader's checkpoint carry-over something real to do.
func mkPathTableFixture() []byte {
	var r []byte
	rng := rand.New(rand.NewPCG(20121993, 0))
	for range 3 {
		for range 30000 {
			r = append(r, byte(rng.IntN(256)))
		}
		r = append(r, make([]byte, 10000)...)
		for range 5000 {
			r = append(r, r[len(r)-rng.IntN(19000)-1000:][:rng.IntN(1000)]...)
		}
	}
	return r
}

func deflateCompress(b []byte) []byte {
	dest := bytes.NewBuffer(nil)
	cpr, _ := goflate.NewWriter(dest, 6)
	if _, err := cpr.Write(b); err != nil {
		panic("could not compress fixture data for tests")
	}
	cpr.Flush()
	return dest.Bytes()
}
