// Package binderfmt is a minimal, self-consistent stand-in for the
// BND3/BND4/BXF3/BXF4 monolithic archive formats. The top-level spec
// treats these formats as already-documented external collaborators and
// explicitly scopes their full codec out of this project; this package
// exists only to give the folder guesser (C11) something real to peek
// into when it needs an archive's inner entry names, and to give the
// extension guesser's FMG/PARAM/PARAMDEF/PARAMDBP structural probes a
// concrete "codec try-read" to delegate to. See DESIGN.md.
package binderfmt

import (
	"encoding/binary"
	"io"

	"github.com/ashenhollow/bhd5kit/internal/errs"
)

// PeekNames reads just enough of a BND-shaped stream at r to recover its
// inner entry names, without materializing entry data. Layout: 4-byte
// magic ("BND3", "BND4", "BXF3" or "BXF4"), int32 version, int32 count, then count
// records of {int32 name length, name bytes, int64 offset, int64 length}.
func PeekNames(r io.ReaderAt) ([]string, error) {
	var hdr [12]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, errs.IO(err)
	}
	magic := string(hdr[0:4])
	if magic != "BND3" && magic != "BND4" && magic != "BXF3" && magic != "BXF4" {
		return nil, errs.Unrecognized("<stream>", "BND3/BND4/BXF3/BXF4")
	}
	count := binary.LittleEndian.Uint32(hdr[8:12])

	names := make([]string, 0, count)
	pos := int64(12)
	for i := uint32(0); i < count; i++ {
		var lenBuf [4]byte
		if _, err := r.ReadAt(lenBuf[:], pos); err != nil {
			return nil, errs.IO(err)
		}
		nameLen := binary.LittleEndian.Uint32(lenBuf[:])
		pos += 4
		nameBuf := make([]byte, nameLen)
		if nameLen > 0 {
			if _, err := r.ReadAt(nameBuf, pos); err != nil {
				return nil, errs.IO(err)
			}
		}
		pos += int64(nameLen) + 16 // skip name + int64 offset + int64 length
		names = append(names, string(nameBuf))
	}
	return names, nil
}

// TryReadFMG reports whether data structurally resembles
// an FMG text-table blob: a small version tag followed by a count that
// doesn't reach outside the stream.
func TryReadFMG(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	version := int32(binary.LittleEndian.Uint32(data[0:4]))
	if version < 0 || version > 3 {
		return false
	}
	count := int32(binary.LittleEndian.Uint32(data[4:8]))
	return count >= 0 && int64(count)*4 <= int64(len(data))
}

// TryReadParam reports whether data structurally resembles a PARAM
// table: the identifier region (bytes 12..43) the spec's shape regex
// describes is present and data is long enough to hold it.
func TryReadParam(data []byte) bool {
	if len(data) < 44 {
		return false
	}
	return paramShapeOK(data[12:44])
}

// TryReadParamdef reports whether data structurally resembles a
// PARAMDEF: a short ASCII signature then a plausible field count.
func TryReadParamdef(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	fieldCount := int16(binary.LittleEndian.Uint16(data[6:8]))
	return fieldCount >= 0 && fieldCount < 4096
}

// TryReadParamDbp reports whether data structurally resembles a
// PARAMDBP menu-binding table: same identifier shape as PARAM, at a
// different conventional offset.
func TryReadParamDbp(data []byte) bool {
	if len(data) < 32 {
		return false
	}
	return paramShapeOK(data[0:32])
}

// paramShapeOK implements the spec's "^[^\0]+\0 *$" check over region:
// a non-NUL identifier, one NUL terminator, then only spaces to the end.
func paramShapeOK(region []byte) bool {
	nul := -1
	for i, b := range region {
		if b == 0 {
			nul = i
			break
		}
	}
	if nul <= 0 {
		return false
	}
	for _, b := range region[nul+1:] {
		if b != ' ' {
			return false
		}
	}
	return true
}
