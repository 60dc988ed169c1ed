// Cache wraps dictionary file loading with an optional on-disk LRU store
// (SPEC_FULL.md section 11): a multi-megabyte game dictionary is
// fingerprinted with xxhash, and its validated path lines are stashed
// in a pebble database keyed by that fingerprint. Later runs against
// the same file parse the stored lines instead of the original file;
// they still parse. The in-memory Dictionary this produces
// behaves identically either way; the cache is purely an optimization.
package hashdict

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble/v2"

	"github.com/ashenhollow/bhd5kit/internal/errs"
)

// Cache is a disk-backed memoization layer over FromMultiReader.
type Cache struct {
	db  *pebble.DB
	log *slog.Logger
}

// OpenCache opens (creating if absent) a pebble-backed dictionary cache
// at dir. Pass a nil *Cache anywhere a Cache is accepted to disable
// caching entirely; every method is a no-op-safe pass-through in that case.
func OpenCache(dir string, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errs.IO(err)
	}
	return &Cache{db: db, log: log}, nil
}

// Close releases the underlying pebble database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return errs.IO(c.db.Close())
}

// fingerprint builds a stable cache key from the hash width ('8' or
// '4'), the terminator, a NUL separator and the 8-byte xxhash digest of
// data. The byte length of data is not part of the key.
func fingerprint(data []byte, bit64 bool, terminator string) []byte {
	h := xxhash.New()
	h.Write(data)
	var key bytes.Buffer
	if bit64 {
		key.WriteByte('8')
	} else {
		key.WriteByte('4')
	}
	key.WriteString(terminator)
	key.WriteByte(0)
	var sum [8]byte
	for i, b := range h.Sum(nil)[:8] {
		sum[i] = b
	}
	key.Write(sum[:])
	return key.Bytes()
}

// LoadMulti loads a multi-dictionary file through the cache: a cache hit
// parses the stored line list with FromMultiReader instead of r's bytes;
// a miss parses r's bytes, then stores the validated path lines (as
// written by WriteMulti) for next time.
func (c *Cache) LoadMulti(r io.Reader, bit64 bool, terminator string) (*MultiDictionary, error) {
	if c == nil || c.db == nil {
		return FromMultiReader(r, bit64, terminator)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.IO(err)
	}
	key := fingerprint(raw, bit64, terminator)

	if cached, closer, err := c.db.Get(key); err == nil {
		m, perr := FromMultiReader(bytes.NewReader(cached), bit64, terminator)
		closer.Close()
		if perr == nil {
			c.log.Debug("hashdict cache hit", "groups", len(m.Groups))
			return m, nil
		}
		// Fall through and treat as a miss if the cached bytes somehow
		// no longer parse (e.g. terminator changed upstream).
	}

	m, err := FromMultiReader(bytes.NewReader(raw), bit64, terminator)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := m.WriteMulti(bw, terminator); err == nil {
		bw.Flush()
		if err := c.db.Set(key, buf.Bytes(), pebble.Sync); err != nil {
			c.log.Warn("hashdict cache store failed", "err", err)
		}
	}
	c.log.Debug("hashdict cache miss", "groups", len(m.Groups), "bytes", len(raw))
	return m, nil
}
