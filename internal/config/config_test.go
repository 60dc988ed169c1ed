package config

import (
	"bytes"
	"testing"

	"github.com/ashenhollow/bhd5kit/internal/bhd5"
)

func TestDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Config{FormatVersion: "DarkSouls3", Alignment: 32, Distribution: 7, WriteDataHeader: true, DataHeaderVersion: "1.0"}
	if err := Write(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestResolveFormatVersion(t *testing.T) {
	c := Config{FormatVersion: "EldenRing"}
	v, err := c.ResolveFormatVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != bhd5.EldenRing {
		t.Fatalf("version = %v, want EldenRing", v)
	}
}

func TestResolveFormatVersionUnknown(t *testing.T) {
	c := Config{FormatVersion: "NotAGame"}
	if _, err := c.ResolveFormatVersion(); err == nil {
		t.Fatal("expected error for unknown format version")
	}
}

func TestDefaultIsEldenRing(t *testing.T) {
	d := Default()
	v, err := d.ResolveFormatVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != bhd5.EldenRing {
		t.Fatalf("default version = %v, want EldenRing", v)
	}
}
