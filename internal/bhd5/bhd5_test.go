package bhd5

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	h := &Header{
		Version:   EldenRing,
		BigEndian: true,
		Buckets: [][]Entry{
			{
				{Hash: 1234, Offset: 16, PaddedSize: 256, UnpaddedSize: 100, Name: "/a/b.dds"},
				{Hash: 5678, Offset: 272, PaddedSize: 256, UnpaddedSize: 200, NameIsHash: true},
			},
			{},
		},
	}
	var buf bytes.Buffer
	if err := Write(&buf, h); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != h.Version || got.BigEndian != h.BigEndian {
		t.Fatalf("version/endian mismatch: %+v", got)
	}
	if len(got.Buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(got.Buckets))
	}
	if got.Buckets[0][0].Name != "/a/b.dds" || got.Buckets[0][0].Offset != 16 {
		t.Fatalf("entry 0 mismatch: %+v", got.Buckets[0][0])
	}
	if !got.Buckets[0][1].NameIsHash || got.Buckets[0][1].Hash != 5678 {
		t.Fatalf("entry 1 mismatch: %+v", got.Buckets[0][1])
	}
}

func TestWriteReadWithSHAAndAES(t *testing.T) {
	h := &Header{
		Version: DarkSouls3,
		Buckets: [][]Entry{{
			{
				Hash: 1, Offset: 0, PaddedSize: 16, UnpaddedSize: 16,
				Name:   "/x",
				SHA:    bytes.Repeat([]byte{0xAB}, 32),
				AESKey: bytes.Repeat([]byte{0x01}, 16),
				AESIV:  bytes.Repeat([]byte{0x02}, 16),
			},
		}},
	}
	var buf bytes.Buffer
	if err := Write(&buf, h); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	e := got.Buckets[0][0]
	if !bytes.Equal(e.SHA, h.Buckets[0][0].SHA) || !bytes.Equal(e.AESKey, h.Buckets[0][0].AESKey) || !bytes.Equal(e.AESIV, h.Buckets[0][0].AESIV) {
		t.Fatalf("SHA/AES round trip mismatch: %+v", e)
	}
}

func TestDataHeaderMagic(t *testing.T) {
	if m := DarkSouls1.DataHeaderMagic(); m != [4]byte{'B', 'D', 'F', '3'} {
		t.Errorf("DarkSouls1 magic = %s, want BDF3", m)
	}
	if m := DarkSouls2.DataHeaderMagic(); m != [4]byte{'B', 'D', 'F', '4'} {
		t.Errorf("DarkSouls2 magic = %s, want BDF4", m)
	}
	if m := EldenRing.DataHeaderMagic(); m != [4]byte{'B', 'D', 'F', '4'} {
		t.Errorf("EldenRing magic = %s, want BDF4", m)
	}
}

func TestUses64BitHash(t *testing.T) {
	if DarkSouls3.Uses64BitHash() {
		t.Error("DarkSouls3 should use 32-bit hash")
	}
	if !EldenRing.Uses64BitHash() {
		t.Error("EldenRing should use 64-bit hash")
	}
}

func TestWriteDataHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDataHeader(&buf, EldenRing, "v1"); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != DataHeaderSize {
		t.Fatalf("len = %d, want %d", len(b), DataHeaderSize)
	}
	if string(b[0:4]) != "BDF4" {
		t.Fatalf("magic = %q, want BDF4", b[0:4])
	}
	if string(bytes.TrimRight(b[4:12], "\x00")) != "v1" {
		t.Fatalf("version = %q, want v1", b[4:12])
	}
	for _, z := range b[12:16] {
		if z != 0 {
			t.Fatalf("reserved bytes not zero: %v", b[12:16])
		}
	}
}
