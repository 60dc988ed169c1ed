package unpack

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashenhollow/bhd5kit/internal/binder"
)

func TestUnpackWritesEntries(t *testing.T) {
	data := []byte("hello worldfoo!!")
	b := &binder.Binder{Entries: []*binder.EntryHeader{
		{Path: "hello.txt", Offset: 0, UnpaddedLength: 11, PaddedLength: 11},
		{Path: "dir/foo.txt", Offset: 11, UnpaddedLength: 5, PaddedLength: 5},
	}}
	out := t.TempDir()
	if err := Unpack(b, bytes.NewReader(data), int64(len(data)), Options{OutDir: out}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(out, "hello.txt"))
	if err != nil || string(got) != "hello world" {
		t.Fatalf("hello.txt = %q, %v", got, err)
	}
	got, err = os.ReadFile(filepath.Join(out, "dir", "foo.txt"))
	if err != nil || string(got) != "foo!!" {
		t.Fatalf("dir/foo.txt = %q, %v", got, err)
	}
}

func TestUnpackSkipsIgnored(t *testing.T) {
	data := []byte("abcdefgh")
	b := &binder.Binder{Entries: []*binder.EntryHeader{
		{Path: "a.bin", Offset: 0, UnpaddedLength: 4, PaddedLength: 4, Ignore: true},
		{Path: "b.bin", Offset: 4, UnpaddedLength: 4, PaddedLength: 4},
	}}
	out := t.TempDir()
	if err := Unpack(b, bytes.NewReader(data), int64(len(data)), Options{OutDir: out}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, "a.bin")); !os.IsNotExist(err) {
		t.Fatalf("expected a.bin to be skipped, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "b.bin")); err != nil {
		t.Fatalf("expected b.bin to be written: %v", err)
	}
}

func TestUnpackSkipsUnknown(t *testing.T) {
	data := []byte("abcdefgh")
	b := &binder.Binder{
		SkipUnknownFiles: true,
		Entries: []*binder.EntryHeader{
			{Path: "_unknown/1234", Offset: 0, UnpaddedLength: 4, PaddedLength: 4, NameIsHash: true},
			{Path: "known.bin", Offset: 4, UnpaddedLength: 4, PaddedLength: 4},
		},
	}
	out := t.TempDir()
	if err := Unpack(b, bytes.NewReader(data), int64(len(data)), Options{OutDir: out}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "known.bin" {
		t.Fatalf("expected only known.bin, got %v", entries)
	}
}

func TestUnpackMalformedEntry(t *testing.T) {
	data := []byte("short")
	b := &binder.Binder{Entries: []*binder.EntryHeader{
		{Path: "toolong.bin", Offset: 0, UnpaddedLength: 100, PaddedLength: 100},
	}}
	out := t.TempDir()
	err := Unpack(b, bytes.NewReader(data), int64(len(data)), Options{OutDir: out})
	if err == nil {
		t.Fatal("expected malformed entry error")
	}
}

func TestUnpackSkipsExisting(t *testing.T) {
	data := []byte("NEWDATA!")
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "existing.bin"), []byte("OLD"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := &binder.Binder{
		SkipExistingFiles: true,
		Entries:           []*binder.EntryHeader{{Path: "existing.bin", Offset: 0, UnpaddedLength: 8, PaddedLength: 8}},
	}
	if err := Unpack(b, bytes.NewReader(data), int64(len(data)), Options{OutDir: out}); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(filepath.Join(out, "existing.bin"))
	if string(got) != "OLD" {
		t.Fatalf("existing.bin was overwritten: %q", got)
	}
}

func TestUnpackDecryptsAES(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := bytes.Repeat([]byte{0x01}, 16)
	plain := []byte("sixteen byteblk!")
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	cipherText := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, plain)

	decrypt := func(buf []byte) {
		b, _ := aes.NewCipher(key)
		cipher.NewCBCDecrypter(b, iv).CryptBlocks(buf, buf)
	}

	b := &binder.Binder{Entries: []*binder.EntryHeader{
		{
			Path: "enc.bin", Offset: 0, UnpaddedLength: int64(len(plain)), PaddedLength: int64(len(cipherText)),
			AES: &binder.AESCapability{Key: key, Decrypt: decrypt},
		},
	}}
	out := t.TempDir()
	if err := Unpack(b, bytes.NewReader(cipherText), int64(len(cipherText)), Options{OutDir: out}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(out, "enc.bin"))
	if err != nil || string(got) != string(plain) {
		t.Fatalf("enc.bin = %q, %v, want %q", got, err, plain)
	}
}

func TestUnpackAsyncBoundsConcurrency(t *testing.T) {
	n := 20
	entrySize := int64(1024)
	data := bytes.Repeat([]byte{0xAB}, int(entrySize)*n)
	b := &binder.Binder{}
	for i := 0; i < n; i++ {
		b.Entries = append(b.Entries, &binder.EntryHeader{
			Path: filepath.Join("f", itoa(i)+".bin"), Offset: int64(i) * entrySize,
			UnpaddedLength: entrySize, PaddedLength: entrySize,
		})
	}
	out := t.TempDir()
	opts := AsyncOptions{Options: Options{OutDir: out, MaxInFlight: entrySize * 3}}
	var lastReport float64
	err := UnpackAsync(context.Background(), b, bytes.NewReader(data), int64(len(data)), opts, func(f float64) {
		lastReport = f
	})
	if err != nil {
		t.Fatal(err)
	}
	if lastReport != 1.0 {
		t.Fatalf("final report = %v, want 1.0", lastReport)
	}
	for i := 0; i < n; i++ {
		p := filepath.Join(out, "f", itoa(i)+".bin")
		if fi, err := os.Stat(p); err != nil || fi.Size() != entrySize {
			t.Fatalf("entry %d not written correctly: %v", i, err)
		}
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{byte('0' + i%10)}, buf...)
		i /= 10
	}
	return string(buf)
}
