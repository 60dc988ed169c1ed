// Package pathhash implements the archive's path normalization and the
// rolling polynomial hash used to index the bucket table (spec section
// 4.1). It is pure and allocation-light: normalization happens once per
// call, with no retained state.
package pathhash

import "strings"

// Normalize trims surrounding whitespace, folds backslashes to forward
// slashes, lowercases, and ensures a leading slash, matching spec
// section 3's Path definition.
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.ToLower(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Hash32 computes the 32-bit polynomial hash (P=37) of the normalized path.
func Hash32(path string) uint32 {
	n := Normalize(path)
	var h uint32
	for i := 0; i < len(n); i++ {
		h = h*37 + uint32(n[i])
	}
	return h
}

// Hash64 computes the 64-bit polynomial hash (P=133) of the normalized path.
func Hash64(path string) uint64 {
	n := Normalize(path)
	var h uint64
	for i := 0; i < len(n); i++ {
		h = h*133 + uint64(n[i])
	}
	return h
}

// Hash dispatches to Hash32 or Hash64 depending on the enclosing archive
// format's hash width (spec: 64-bit for EldenRing onward).
func Hash(path string, bit64 bool) uint64 {
	if bit64 {
		return Hash64(path)
	}
	return uint64(Hash32(path))
}
