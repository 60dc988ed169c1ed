// Package binder is the in-memory archive model (spec section 4.6 / C6):
// an ordered list of entries plus the handful of top-level flags the
// packer and unpacker consult. It owns its entries exclusively; entries
// hold no live stream references, so a Binder can be freely handed
// between the packer, unpacker, and divided unpacker.
package binder

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/ashenhollow/bhd5kit/internal/bucket"
)

// AESCapability pairs a per-entry decrypt key with the function that
// applies it in place, per design notes ("AES is a capability pair").
type AESCapability struct {
	Key     []byte
	Decrypt func(buf []byte)
}

// EntryHeader is one archive entry (spec section 3).
type EntryHeader struct {
	Path           string // logical path, or "_unknown/<hash>" if unresolved
	Offset         int64
	UnpaddedLength int64
	PaddedLength   int64
	SHA            []byte // optional integrity hash, opaque
	AES            *AESCapability
	NameIsHash     bool
	Ignore         bool

	// SourcePath is the on-disk path an entry was scanned from when the
	// Binder was built for packing; empty for entries parsed from a header.
	SourcePath string
}

// ReadLength is the number of bytes the unpacker must read for this
// entry (spec section 3's EntryHeader invariant): padded_length when an
// AES key is set and padded_length >= unpaded_length, else unpadded_length.
func (e *EntryHeader) ReadLength() int64 {
	if e.AES != nil && e.PaddedLength >= e.UnpaddedLength {
		return e.PaddedLength
	}
	return e.UnpaddedLength
}

// BucketInfo is the pair of pure strategies governing bucket sizing and
// placement (spec section 4.3 / C3), attached to an archive.
type BucketInfo struct {
	CountStrategy bucket.CountStrategy
	IndexStrategy bucket.IndexStrategy
}

// DefaultBucketInfo builds the conventional strategy pair: next-prime
// sizing at the given distribution, modulus placement.
func DefaultBucketInfo(distribution int) *BucketInfo {
	return &BucketInfo{CountStrategy: bucket.DistributionCountStrategy(distribution)}
	// IndexStrategy is resolved once Count is known; see ResolveIndex.
}

// ResolveIndex returns the index strategy for a bucket table of the
// given size, defaulting to the modulus strategy when none was set.
func (b *BucketInfo) ResolveIndex(count int) bucket.IndexStrategy {
	if b.IndexStrategy != nil {
		return b.IndexStrategy
	}
	return bucket.ModulusIndexStrategy(count)
}

// Binder is the in-memory archive (spec section 3 "Archive (Binder)").
type Binder struct {
	Version           string
	BigEndian         bool
	RootDirectory     string
	BucketInfo        *BucketInfo
	SkipUnknownFiles  bool
	SkipExistingFiles bool
	Entries           []*EntryHeader
}

// New returns an empty archive.
func New() *Binder {
	return &Binder{}
}

// FromPaths builds an archive from a flat list of on-disk paths, each
// becoming an EntryHeader with NameIsHash=false. Paths are taken
// relative to root for the entry's logical Path.
func FromPaths(root string, relPaths []string) *Binder {
	b := &Binder{RootDirectory: root}
	for _, rel := range relPaths {
		b.Entries = append(b.Entries, &EntryHeader{
			Path:       rel,
			SourcePath: rel,
		})
	}
	return b
}

// FromSplitDirs builds an archive from two on-disk trees: normalRel
// entries keep their filename as the logical path; hashNamedRel
// entries have filenames that are already stringified hashes, and are
// flagged NameIsHash so the packer/unpacker treat their Path as
// advisory only (spec section 4.6).
func FromSplitDirs(root string, normalRel, hashNamedRel []string) *Binder {
	b := &Binder{RootDirectory: root}
	for _, rel := range normalRel {
		b.Entries = append(b.Entries, &EntryHeader{Path: rel, SourcePath: rel})
	}
	for _, rel := range hashNamedRel {
		b.Entries = append(b.Entries, &EntryHeader{Path: rel, SourcePath: rel, NameIsHash: true})
	}
	return b
}

// SetSelected flips Ignore for every entry whose path is not in list
// (spec section 4.6).
func (b *Binder) SetSelected(list []string) {
	want := make(map[string]struct{}, len(list))
	for _, p := range list {
		want[p] = struct{}{}
	}
	for _, e := range b.Entries {
		_, ok := want[e.Path]
		e.Ignore = !ok
	}
}

// SetSelectedGlobs is the doublestar-glob enrichment over SetSelected
// (SPEC_FULL.md section 11): an entry survives if its path matches any
// pattern, supporting "**"-style selection lists from the CLI.
func (b *Binder) SetSelectedGlobs(patterns []string) error {
	for _, e := range b.Entries {
		matched := false
		for _, pat := range patterns {
			ok, err := doublestar.Match(pat, e.Path)
			if err != nil {
				return err
			}
			if ok {
				matched = true
				break
			}
		}
		e.Ignore = !matched
	}
	return nil
}

// AllIgnored reports whether every entry is ignored, or there are none.
func (b *Binder) AllIgnored() bool {
	if len(b.Entries) == 0 {
		return true
	}
	for _, e := range b.Entries {
		if !e.Ignore {
			return false
		}
	}
	return true
}
