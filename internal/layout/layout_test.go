package layout

import "testing"

func TestFolderSimpleExtension(t *testing.T) {
	f, err := Folder(".msb", nil)
	if err != nil {
		t.Fatal(err)
	}
	if f != "model/map" {
		t.Fatalf("folder = %q, want model/map", f)
	}
}

func TestFolderBNDNoPeekContext(t *testing.T) {
	f, err := Folder(".bnd", nil)
	if err != nil {
		t.Fatal(err)
	}
	if f != "bind" {
		t.Fatalf("folder = %q, want bind (spec scenario 1)", f)
	}
}

func TestFolderDCXStripAndAppend(t *testing.T) {
	f, err := Folder(".bnd.dcx", nil)
	if err != nil {
		t.Fatal(err)
	}
	if f != "bind/dcx" {
		t.Fatalf("folder = %q, want bind/dcx (spec scenario 2)", f)
	}
}

func TestFolderBNDWithPeekContext(t *testing.T) {
	names := func() ([]string, error) {
		return []string{"a.flver", "b.flver", "c.tpf"}, nil
	}
	f, err := Folder(".bnd", names)
	if err != nil {
		t.Fatal(err)
	}
	if f != "bind/flver" {
		t.Fatalf("folder = %q, want bind/flver", f)
	}
}

func TestFolderDefaultsToBareExtension(t *testing.T) {
	f, err := Folder(".weirdext", nil)
	if err != nil {
		t.Fatal(err)
	}
	if f != "weirdext" {
		t.Fatalf("folder = %q, want weirdext", f)
	}
}

func TestMostFrequentExtTieBreaksByFirstAppearance(t *testing.T) {
	ext := mostFrequentExt([]string{"a.foo", "b.bar", "c.foo", "d.bar"})
	if ext != "foo" {
		t.Fatalf("ext = %q, want foo (first seen, tied count)", ext)
	}
}
