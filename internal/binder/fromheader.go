package binder

import (
	"strconv"

	"github.com/ashenhollow/bhd5kit/internal/bhd5"
)

// nameResolver looks up a path for a hash; satisfied by
// *hashdict.Dictionary and *hashdict.MultiDictionary.
type nameResolver interface {
	Get(hash uint64) (string, bool)
}

// FromHeader rebuilds the in-memory archive a parsed BHD5 header
// describes (spec section 4.6, "(ii) at unpack time from a parsed
// header"). Entries whose name did not survive on disk are resolved
// against dict when non-nil; anything dict can't resolve either falls
// back to the "_unknown/<hash>" path spec section 6 specifies.
func FromHeader(h *bhd5.Header, dict nameResolver) *Binder {
	b := &Binder{Version: formatVersionString(h.Version), BigEndian: h.BigEndian}

	for _, bucket := range h.Buckets {
		for _, e := range bucket {
			path := e.Name
			nameIsHash := e.NameIsHash
			if nameIsHash || path == "" {
				if dict != nil {
					if p, ok := dict.Get(e.Hash); ok {
						path = p
						nameIsHash = false
					} else {
						path = unknownPath(e.Hash)
						nameIsHash = true
					}
				} else {
					path = unknownPath(e.Hash)
					nameIsHash = true
				}
			}

			entry := &EntryHeader{
				Path:           path,
				Offset:         e.Offset,
				UnpaddedLength: e.UnpaddedSize,
				PaddedLength:   e.PaddedSize,
				SHA:            e.SHA,
				NameIsHash:     nameIsHash,
			}
			if len(e.AESKey) == 16 && len(e.AESIV) == 16 {
				entry.AES = &AESCapability{Key: e.AESKey, Decrypt: aesCBCDecryptor(e.AESKey, e.AESIV)}
			}
			b.Entries = append(b.Entries, entry)
		}
	}
	return b
}

func unknownPath(hash uint64) string {
	return "_unknown/" + strconv.FormatUint(hash, 10)
}

func formatVersionString(v bhd5.FormatVersion) string {
	switch v {
	case bhd5.DemonsSouls:
		return "DemonsSouls"
	case bhd5.DarkSouls1:
		return "DarkSouls1"
	case bhd5.DarkSouls2:
		return "DarkSouls2"
	case bhd5.DarkSouls3:
		return "DarkSouls3"
	case bhd5.Sekiro:
		return "Sekiro"
	case bhd5.EldenRing:
		return "EldenRing"
	default:
		return "Unknown"
	}
}
