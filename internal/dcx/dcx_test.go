package dcx

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"

	"github.com/DataDog/zstd"
)

func beBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func buildContainer(method Method, compressed []byte, uncompressedSize int) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.Write(method[:])
	buf.Write(beBytes(uint64(len(compressed))))
	buf.Write(beBytes(uint64(uncompressedSize)))
	buf.Write(compressed)
	return buf.Bytes()
}

func TestPeekRestoresPosition(t *testing.T) {
	raw := buildContainer(ZSTD, []byte{0}, 0)
	r := bytes.NewReader(raw)
	r.Seek(3, io.SeekStart)
	ok, err := Peek(r)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false: magic not at current position")
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != 3 {
		t.Fatalf("position moved: got %d, want 3", pos)
	}

	r.Seek(0, io.SeekStart)
	ok, err = Peek(r)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want true/nil", ok, err)
	}
	pos, _ = r.Seek(0, io.SeekCurrent)
	if pos != 0 {
		t.Fatalf("position moved: got %d, want 0", pos)
	}
}

func TestDecompressDeflate(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog")
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(want)
	fw.Close()

	raw := buildContainer(DEFLATE, compressed.Bytes(), len(want))
	out, err := Decompress(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecompressZstd(t *testing.T) {
	want := []byte("some repeated repeated repeated payload")
	compressed, err := zstd.Compress(nil, want)
	if err != nil {
		t.Fatal(err)
	}
	raw := buildContainer(ZSTD, compressed, len(want))
	out, err := Decompress(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecompressUnknownMethod(t *testing.T) {
	raw := buildContainer(Method{'?', '?', '?', '?'}, []byte{1, 2, 3}, 3)
	if _, err := Decompress(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected error for unrecognized method")
	}
}

func TestDecompressBadMagic(t *testing.T) {
	raw := append([]byte("NOPE"), buildContainer(ZSTD, []byte{0}, 0)[4:]...)
	if _, err := Decompress(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
