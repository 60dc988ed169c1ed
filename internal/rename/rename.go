// Package rename implements the name guesser (spec section 4.12 / C12):
// it walks a directory, classifies each file with sniff+layout, and
// moves classified files into an inferred subfolder, never overwriting
// an existing destination.
package rename

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashenhollow/bhd5kit/internal/errs"
	"github.com/ashenhollow/bhd5kit/internal/layout"
	"github.com/ashenhollow/bhd5kit/internal/sniff"
)

// Options controls a single rename pass.
type Options struct {
	Recursive bool
	Logger    *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Result records one file's outcome, for the dry-run report
// (SPEC_FULL.md section 12.3).
type Result struct {
	Path       string // original path, relative to root
	Ext        string
	Folder     string
	NewPath    string // "" if left alone
	Skipped    bool   // true if classification found nothing, or destination existed
	SkipReason string
}

// Run moves every classifiable file under root into its inferred
// subfolder (spec section 4.12). Returns one Result per visited file.
func Run(root string, opts Options) ([]Result, error) {
	results, err := classify(root, opts)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.NewPath == "" {
			continue
		}
		if err := move(root, r); err != nil {
			return results, err
		}
	}
	return results, nil
}

// DryRun classifies without touching the filesystem (SPEC_FULL.md
// section 12.3's dry-run classification report).
func DryRun(root string, opts Options) ([]Result, error) {
	return classify(root, opts)
}

func classify(root string, opts Options) ([]Result, error) {
	log := opts.logger()
	var results []Result

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return errs.IO(err)
		}
		ext, err := sniff.Guess(f)
		f.Close()
		if err != nil {
			log.Warn("rename: classification failed", "path", rel, "err", err)
			results = append(results, Result{Path: rel, Skipped: true, SkipReason: "classification error"})
			return nil
		}
		if ext == "" {
			results = append(results, Result{Path: rel, Skipped: true, SkipReason: "no extension match"})
			return nil
		}

		var peek func() ([]string, error)
		bare := ext
		if bare == ".bnd" || bare == ".bhd" {
			if af, err := os.Open(path); err == nil {
				defer af.Close()
				peek = layout.PeekBNDNames(af)
			}
		}
		folder, err := layout.Folder(ext, peek)
		if err != nil {
			return err
		}

		dir := filepath.Dir(rel)
		base := filepath.Base(rel)
		newRel := filepath.Join(dir, folder, base+extSuffix(ext, base))

		dest := filepath.Join(root, newRel)
		if _, err := os.Stat(dest); err == nil {
			results = append(results, Result{Path: rel, Ext: ext, Folder: folder, Skipped: true, SkipReason: "destination exists"})
			return nil
		}

		results = append(results, Result{Path: rel, Ext: ext, Folder: folder, NewPath: newRel})
		return nil
	}

	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, errs.IO(err)
	}
	return results, nil
}

// extSuffix appends ext to a filename, unless the filename already ends
// with it (the classifier's extension is advisory, not authoritative,
// so a file already correctly named is left alone).
func extSuffix(ext, base string) string {
	if ext == "" || hasSuffixFold(base, ext) {
		return ""
	}
	return ext
}

func hasSuffixFold(s, suffix string) bool {
	if len(suffix) > len(s) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := range tail {
		a, b := tail[i], suffix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

func move(root string, r Result) error {
	src := filepath.Join(root, r.Path)
	dest := filepath.Join(root, r.NewPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errs.IO(err)
	}
	if _, err := os.Stat(dest); err == nil {
		return nil // lost a race with a concurrent classifier; no overwrite
	}
	if err := os.Rename(src, dest); err != nil {
		return errs.IO(err)
	}
	return nil
}
