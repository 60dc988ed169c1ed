// Package pack implements the packing pipeline (spec section 4.7 / C7):
// stream entries into the data file, pad to alignment, assign bucket
// placement from the path hash, and write the header last.
package pack

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashenhollow/bhd5kit/internal/bhd5"
	"github.com/ashenhollow/bhd5kit/internal/binder"
	"github.com/ashenhollow/bhd5kit/internal/errs"
	"github.com/ashenhollow/bhd5kit/internal/pathhash"
	"github.com/ashenhollow/bhd5kit/internal/progress"
)

// Options controls a single pack operation.
type Options struct {
	FormatVersion     bhd5.FormatVersion
	Alignment         int64
	WriteDataHeader   bool
	BigEndian         bool
	DataHeaderVersion string // ASCII version tag stamped into the DataHeader
	Distribution      int    // bucket distribution; 0 uses bucket.DefaultDistribution
	Logger            *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ScanDirectory builds a Binder from every regular file under root,
// relative paths sorted for determinism (spec section 4.6's
// "from a list of on-disk paths").
func ScanDirectory(root string) (*binder.Binder, error) {
	rel, err := listFiles(os.DirFS(root))
	if err != nil {
		return nil, errs.IO(err)
	}
	return binder.FromPaths(root, rel), nil
}

// Write runs the synchronous packing algorithm: b's non-ignored entries
// are streamed from b.RootDirectory into dataW in binder order, bucket
// placement is computed per entry, and the header is written to
// headerW only after every data byte is on disk.
func Write(b *binder.Binder, dataW io.Writer, headerW io.Writer, opts Options) error {
	return write(context.Background(), b, dataW, headerW, opts, nil, nil)
}

// WriteContext is Write's cancellable, progress-reporting counterpart.
// Cancellation is checked before each entry and before the header write
// (spec section 4.7); a cancelled run leaves whatever has already been
// written to dataW/headerW in place. report, if non-nil, receives
// files_done/total before each entry is processed.
func WriteContext(ctx context.Context, b *binder.Binder, dataW io.Writer, headerW io.Writer, opts Options, report func(float64)) error {
	return write(ctx, b, dataW, headerW, opts, report, ctx.Done())
}

func write(ctx context.Context, b *binder.Binder, dataW io.Writer, headerW io.Writer, opts Options, report func(float64), cancel <-chan struct{}) error {
	log := opts.logger()

	active := make([]*binder.EntryHeader, 0, len(b.Entries))
	for _, e := range b.Entries {
		if !e.Ignore {
			active = append(active, e)
		}
	}

	bi := b.BucketInfo
	if bi == nil {
		bi = binder.DefaultBucketInfo(opts.Distribution)
	}
	count := bi.CountStrategy(len(active))
	if count < 1 {
		count = 1
	}
	indexOf := bi.ResolveIndex(count)

	header := &bhd5.Header{
		Version:   opts.FormatVersion,
		BigEndian: opts.BigEndian,
		Buckets:   make([][]bhd5.Entry, count),
	}

	if f, ok := dataW.(*os.File); ok {
		preallocate(f, estimateSize(b.RootDirectory, active))
	}

	cw := &countingWriter{w: dataW}
	if opts.WriteDataHeader {
		if err := bhd5.WriteDataHeader(cw, opts.FormatVersion, opts.DataHeaderVersion); err != nil {
			return err
		}
	}

	bit64 := opts.FormatVersion.Uses64BitHash()
	total := len(active)
	for i, e := range active {
		if cancelled(cancel) {
			log.Warn("pack cancelled", "done", i, "total", total)
			return errs.ErrCancelled
		}
		if report != nil {
			report(float64(i) / float64(max(total, 1)))
		}

		hash := pathhash.Hash(e.Path, bit64)
		idx := indexOf(hash)
		offset := cw.n

		if err := copyEntry(cw, filepath.Join(b.RootDirectory, e.SourcePath)); err != nil {
			log.Error("pack: entry failed", "path", e.Path, "err", err)
			return err
		}
		unpadded := cw.n - offset

		if opts.Alignment > 1 {
			if rem := cw.n % opts.Alignment; rem != 0 {
				if err := writeZeroes(cw, opts.Alignment-rem); err != nil {
					return err
				}
			}
		}
		padded := cw.n - offset

		header.Buckets[idx] = append(header.Buckets[idx], bhd5.Entry{
			Hash:         hash,
			Offset:       offset,
			PaddedSize:   padded,
			UnpaddedSize: unpadded,
			Name:         e.Path,
			NameIsHash:   e.NameIsHash,
			SHA:          e.SHA,
		})
	}

	if cancelled(cancel) {
		log.Warn("pack cancelled before header write")
		return errs.ErrCancelled
	}
	if report != nil {
		report(1.0)
	}

	log.Info("pack: writing header", "buckets", count, "entries", total)
	return bhd5.Write(headerW, header)
}

// estimateSize sums the on-disk size of every active entry's source
// file, as a preallocation hint; stat failures are simply skipped, the
// later real copy will surface any missing-file error properly.
func estimateSize(root string, active []*binder.EntryHeader) int64 {
	var total int64
	for _, e := range active {
		if fi, err := os.Stat(filepath.Join(root, e.SourcePath)); err == nil {
			total += fi.Size()
		}
	}
	return total
}

func cancelled(c <-chan struct{}) bool {
	if c == nil {
		return false
	}
	select {
	case <-c:
		return true
	default:
		return false
	}
}

func copyEntry(dst io.Writer, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.NotFound("srcPath", srcPath)
		}
		return errs.IO(err)
	}
	defer f.Close()
	if _, err := io.Copy(dst, f); err != nil {
		return errs.IO(err)
	}
	return nil
}

func writeZeroes(w io.Writer, n int64) error {
	const bufSize = 4096
	var zero [bufSize]byte
	for n > 0 {
		chunk := int64(bufSize)
		if n < chunk {
			chunk = n
		}
		if _, err := w.Write(zero[:chunk]); err != nil {
			return errs.IO(err)
		}
		n -= chunk
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, errs.IO(err)
}

// ProgressSink adapts an Options.Logger-free caller's progress.Child
// into a report func, for use with WriteContext.
func ProgressSink(c *progress.Child) func(float64) {
	if c == nil {
		return nil
	}
	return c.Report
}
