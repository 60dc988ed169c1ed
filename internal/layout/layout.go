// Package layout implements the folder guesser (spec section 4.11 /
// C11): given a detected extension (possibly "X.dcx") and, for archive
// types, a peek into the stream, it decides which folder a file should
// live under.
package layout

import (
	"io"
	"sort"
	"strings"

	"github.com/ashenhollow/bhd5kit/internal/binderfmt"
)

// extToFolder is the extension -> folder table (spec section 4.11's
// excerpt). Extensions are matched without their leading dot.
var extToFolder = map[string]string{
	"flv": "model", "flver": "model", "smd": "model", "mdl": "model",
	"msb": "model/map",
	"nva": "model/map/ch_nav", "hnav": "model/map/ch_nav", "htr": "model/map/ch_nav",
	"drb":   "lang/menu",
	"fmg":   "lang/text",
	"tpf":   "image", "dds": "image", "png": "image",
	"fsb": "sound", "fev": "sound",
	"lua": "script", "lc": "script", "evd": "script", "emevd": "script", "eld": "script", "luainfo": "script",
	"mtd": "material",
	"tae": "tae",
	"xml": "system", "ini": "system", "txt": "system", "pem": "system", "properties": "system",
	"param":    "param",
	"paramdef": "param/def", "def": "param/def",
	"tdf": "param/tdf",
	"dbp": "dbmenu",
	"pam": "movie",
	"ffx": "sfx",
}

// Folder decides the destination folder for a file whose detected
// extension is ext (as returned by sniff.Guess, e.g. ".bnd" or
// ".bnd.dcx"). peekNames, when non-nil, supplies the archive's inner
// entry names for the bnd/bhd "most frequent inner extension" rule.
func Folder(ext string, peekNames func() ([]string, error)) (string, error) {
	ext = strings.ToLower(ext)
	if strings.HasSuffix(ext, ".dcx") {
		inner, err := Folder(strings.TrimSuffix(ext, ".dcx"), peekNames)
		if err != nil {
			return "", err
		}
		return inner + "/dcx", nil
	}

	bare := strings.TrimPrefix(ext, ".")
	if bare == "bnd" || bare == "bhd" {
		if peekNames != nil {
			if names, err := peekNames(); err == nil && len(names) > 0 {
				innerExt := mostFrequentExt(names)
				if innerExt != "" {
					return "bind/" + innerExt, nil
				}
			}
		}
		return "bind", nil
	}

	if folder, ok := extToFolder[bare]; ok {
		return folder, nil
	}
	return bare, nil
}

// mostFrequentExt returns the most common extension (without its dot)
// among names, breaking ties by first appearance.
func mostFrequentExt(names []string) string {
	counts := make(map[string]int)
	order := make([]string, 0, len(names))
	for _, n := range names {
		idx := strings.LastIndexByte(n, '.')
		if idx < 0 || idx == len(n)-1 {
			continue
		}
		ext := strings.ToLower(n[idx+1:])
		if counts[ext] == 0 {
			order = append(order, ext)
		}
		counts[ext]++
	}
	if len(order) == 0 {
		return ""
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order[0]
}

// PeekBNDNames adapts binderfmt.PeekNames into the closure Folder
// expects, for callers that have an io.ReaderAt over the archive.
func PeekBNDNames(r io.ReaderAt) func() ([]string, error) {
	return func() ([]string, error) {
		return binderfmt.PeekNames(r)
	}
}
