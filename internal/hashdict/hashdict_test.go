package hashdict

import (
	"strings"
	"testing"

	"github.com/ashenhollow/bhd5kit/internal/errs"
	"github.com/cockroachdb/errors"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// base36 renders i using alphabet, used only to generate a large set of
// distinct, normalization-safe candidate paths deterministically.
func base36(i int) string {
	if i == 0 {
		return string(alphabet[0])
	}
	var b []byte
	for i > 0 {
		b = append([]byte{alphabet[i%len(alphabet)]}, b...)
		i /= len(alphabet)
	}
	return string(b)
}

// findCollidingPair brute-forces two distinct paths that hash to the same
// value under d's hash width, by enumerating a large deterministic set of
// candidates and relying on the birthday bound: a few hundred thousand
// samples reliably produce a collision against a ~32-bit or ~64-bit
// codomain is not guaranteed for 64-bit, so this is only used for the
// 32-bit dictionary in tests.
func findCollidingPair(t *testing.T, d *Dictionary) (string, string) {
	t.Helper()
	seen := make(map[uint64]string, 300000)
	for i := 0; i < 300000; i++ {
		cand := "/x" + base36(i)
		h := d.hash(cand)
		if prev, ok := seen[h]; ok && prev != cand {
			return prev, cand
		}
		seen[h] = cand
	}
	t.Fatal("could not find a colliding pair within the search budget")
	return "", ""
}

func TestAddAndGet(t *testing.T) {
	d := New(false)
	paths := []string{"/a/b.dds", "/c/d.tpf", "/e/f/g.flver"}
	for _, p := range paths {
		if err := d.Add(p); err != nil {
			t.Fatalf("Add(%q): %v", p, err)
		}
	}
	for _, p := range paths {
		got, ok := d.Get(d.hash(p))
		if !ok || got != p {
			t.Errorf("Get(hash(%q)) = %q, %v", p, got, ok)
		}
	}
}

func TestDuplicateValue(t *testing.T) {
	d := New(false)
	if err := d.Add("/a"); err != nil {
		t.Fatal(err)
	}
	err := d.Add("/a")
	if !errors.Is(err, errs.ErrDuplicateValue) {
		t.Fatalf("expected DuplicateValue, got %v", err)
	}
}

func TestHashCollision(t *testing.T) {
	d := New(false)
	a, b := findCollidingPair(t, d)
	if err := d.Add(a); err != nil {
		t.Fatal(err)
	}
	err := d.Add(b)
	if !errors.Is(err, errs.ErrHashCollision) {
		t.Fatalf("expected HashCollision, got %v", err)
	}
	// A bad insert must not mutate state: only a should be present.
	if d.Len() != 1 {
		t.Fatalf("dictionary mutated on failed insert: len=%d", d.Len())
	}
}

func TestCollides(t *testing.T) {
	d := New(false)
	if !d.Collides("/a", "/a") {
		t.Error("identical strings must collide")
	}
	a, b := findCollidingPair(t, d)
	if !d.Collides(a, b) {
		t.Error("equal-hash distinct strings must be reported as colliding")
	}
	if d.Collides("/a", "/totally-different") {
		t.Error("unrelated strings must not collide")
	}
}

func TestFromReaderRoundTrip(t *testing.T) {
	lines := []string{"/a/b.dds", "/c/d.tpf", "/e.flver"}
	d, err := FromReader(strings.NewReader(strings.Join(lines, "\n")), false)
	if err != nil {
		t.Fatal(err)
	}
	got := d.Values()
	if len(got) != len(lines) {
		t.Fatalf("got %d values, want %d", len(got), len(lines))
	}
}

func TestFromMultiReaderGroups(t *testing.T) {
	text := "/a\n/b\n#\n/c\n\n/d\n"
	m, err := FromMultiReader(strings.NewReader(text), false, "#")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(m.Groups))
	}
	if m.Groups[0].Len() != 2 || m.Groups[1].Len() != 2 {
		t.Fatalf("group sizes = %d,%d want 2,2", m.Groups[0].Len(), m.Groups[1].Len())
	}
}
