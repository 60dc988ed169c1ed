// Package hashdict implements the hash-to-path reverse lookup table used
// to resolve "_unknown" entries back into real paths (spec section 4.2).
// Insertion validates hash(path)==key and rejects both duplicate values
// and genuine hash collisions, so a dictionary is always consistent with
// the hash function it was built for.
package hashdict

import (
	"bufio"
	"io"
	"strings"

	"github.com/ashenhollow/bhd5kit/internal/errs"
	"github.com/ashenhollow/bhd5kit/internal/pathhash"
)

// Dictionary is a PathHash -> Path mapping for one hash width.
type Dictionary struct {
	bit64  bool
	byHash map[uint64]string
}

// New creates an empty dictionary for the given hash width.
func New(bit64 bool) *Dictionary {
	return &Dictionary{bit64: bit64, byHash: make(map[uint64]string)}
}

// Bit64 reports whether this dictionary hashes with the 64-bit polynomial.
func (d *Dictionary) Bit64() bool { return d.bit64 }

func (d *Dictionary) hash(path string) uint64 {
	return pathhash.Hash(path, d.bit64)
}

// Add inserts path, returning HashCollision if a different path already
// owns its hash, or DuplicateValue if path itself is already present.
func (d *Dictionary) Add(path string) error {
	h := d.hash(path)
	if existing, ok := d.byHash[h]; ok {
		if existing == path {
			return errs.DuplicateValue(path)
		}
		return errs.HashCollision(h, existing, path)
	}
	d.byHash[h] = path
	return nil
}

// TryAdd is Add without the error: it reports whether the path was
// newly inserted, silently skipping duplicates and collisions.
func (d *Dictionary) TryAdd(path string) bool {
	h := d.hash(path)
	if _, ok := d.byHash[h]; ok {
		return false
	}
	d.byHash[h] = path
	return true
}

// RemoveByHash deletes the entry for hash, if any.
func (d *Dictionary) RemoveByHash(h uint64) {
	delete(d.byHash, h)
}

// RemoveByPath deletes path's entry, if present.
func (d *Dictionary) RemoveByPath(path string) {
	h := d.hash(path)
	if d.byHash[h] == path {
		delete(d.byHash, h)
	}
}

// ContainsHash reports whether h has a known path.
func (d *Dictionary) ContainsHash(h uint64) bool {
	_, ok := d.byHash[h]
	return ok
}

// ContainsPath reports whether path is present under its own hash.
func (d *Dictionary) ContainsPath(path string) bool {
	h := d.hash(path)
	return d.byHash[h] == path
}

// Get returns the path registered for h, if any.
func (d *Dictionary) Get(h uint64) (string, bool) {
	p, ok := d.byHash[h]
	return p, ok
}

// Values returns every known path, in unspecified map order.
func (d *Dictionary) Values() []string {
	out := make([]string, 0, len(d.byHash))
	for _, p := range d.byHash {
		out = append(out, p)
	}
	return out
}

// Hashes returns every known hash, in unspecified map order.
func (d *Dictionary) Hashes() []uint64 {
	out := make([]uint64, 0, len(d.byHash))
	for h := range d.byHash {
		out = append(out, h)
	}
	return out
}

// Clear empties the dictionary.
func (d *Dictionary) Clear() {
	d.byHash = make(map[uint64]string)
}

// Len reports the number of entries.
func (d *Dictionary) Len() int { return len(d.byHash) }

// Collides reports whether a and b are the "same" dictionary entry: equal
// if the strings are equal, otherwise equal iff their hashes collide.
func (d *Dictionary) Collides(a, b string) bool {
	if a == b {
		return true
	}
	return d.hash(a) == d.hash(b)
}

// FromReader loads a line-oriented dictionary: one candidate path per
// line, added in order. A bad line aborts the whole load and returns a
// nil Dictionary with the error.
func FromReader(r io.Reader, bit64 bool) (*Dictionary, error) {
	d := New(bit64)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if err := d.Add(line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.IO(err)
	}
	return d, nil
}

// MultiDictionary is a group of dictionaries split by lines beginning
// with a terminator (spec section 4.2's "multi-dictionary file").
type MultiDictionary struct {
	Groups []*Dictionary
}

// DefaultTerminator is the line prefix that opens a new sub-dictionary.
const DefaultTerminator = "#"

// FromMultiReader reads a multi-dictionary file: each line starting with
// terminator opens a new sub-dictionary, blank lines are ignored, all
// other lines are added to the current sub-dictionary.
func FromMultiReader(r io.Reader, bit64 bool, terminator string) (*MultiDictionary, error) {
	if terminator == "" {
		terminator = DefaultTerminator
	}
	m := &MultiDictionary{}
	cur := New(bit64)
	m.Groups = append(m.Groups, cur)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, terminator) {
			cur = New(bit64)
			m.Groups = append(m.Groups, cur)
			continue
		}
		if err := cur.Add(line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.IO(err)
	}
	return m, nil
}

// Get searches every sub-dictionary in order for h, returning the path
// from the first group that has it.
func (m *MultiDictionary) Get(h uint64) (string, bool) {
	for _, g := range m.Groups {
		if p, ok := g.Get(h); ok {
			return p, true
		}
	}
	return "", false
}

// WriteMulti serializes the group back out, one sub-dictionary per
// section separated by a terminator line, preserving the split a
// FromMultiReader load established. This is the write-back half
// spec.md left unspecified (SPEC_FULL.md section 12.1).
func (m *MultiDictionary) WriteMulti(w io.Writer, terminator string) error {
	if terminator == "" {
		terminator = DefaultTerminator
	}
	bw := bufio.NewWriter(w)
	for i, g := range m.Groups {
		if i > 0 {
			if _, err := bw.WriteString(terminator + "\n"); err != nil {
				return errs.IO(err)
			}
		}
		for _, p := range g.Values() {
			if _, err := bw.WriteString(p + "\n"); err != nil {
				return errs.IO(err)
			}
		}
	}
	return errs.IO(bw.Flush())
}
