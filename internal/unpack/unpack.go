// Package unpack implements the unpacking pipeline (spec section 4.8 /
// C8): for each non-ignored entry, read its bytes from the data stream,
// decrypt in place if an AES capability is set, and write the result
// under out_dir. The asynchronous variant bounds outstanding read
// memory at MaxInFlight bytes using a weighted semaphore, matching the
// "running list of outstanding write tasks" design the spec calls for.
package unpack

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ashenhollow/bhd5kit/internal/binder"
	"github.com/ashenhollow/bhd5kit/internal/errs"
	"github.com/ashenhollow/bhd5kit/internal/sectionreader"
)

// MaxInFlight is the default bound on bytes read but not yet flushed to
// disk during an asynchronous unpack (spec section 4.8).
const MaxInFlight = 100 * 1024 * 1024

// Options controls a single unpack operation.
type Options struct {
	OutDir           string
	MaxInFlight      int64 // 0 uses MaxInFlight
	Logger           *slog.Logger
	SkipUnknownFiles bool // overridden per-call; Binder's own flag is authoritative if true
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) maxInFlight() int64 {
	if o.MaxInFlight > 0 {
		return o.MaxInFlight
	}
	return MaxInFlight
}

// Unpack runs the synchronous algorithm: every non-ignored entry of b is
// read from data (streamLen bytes long) and written under opts.OutDir,
// in binder order.
func Unpack(b *binder.Binder, data io.ReaderAt, streamLen int64, opts Options) error {
	return UnpackContext(context.Background(), b, data, streamLen, opts, nil)
}

// UnpackContext is Unpack's cancellable, progress-reporting counterpart.
// report, if non-nil, is called with files_done/total before each entry.
func UnpackContext(ctx context.Context, b *binder.Binder, data io.ReaderAt, streamLen int64, opts Options, report func(float64)) error {
	log := opts.logger()
	skipUnknown := opts.SkipUnknownFiles || b.SkipUnknownFiles

	active := make([]*binder.EntryHeader, 0, len(b.Entries))
	for _, e := range b.Entries {
		if e.Ignore {
			continue
		}
		if skipUnknown && e.NameIsHash {
			continue
		}
		active = append(active, e)
	}

	total := len(active)
	for i, e := range active {
		select {
		case <-ctx.Done():
			log.Warn("unpack cancelled", "done", i, "total", total)
			return errs.ErrCancelled
		default:
		}
		if report != nil {
			report(float64(i) / float64(max(total, 1)))
		}
		if err := unpackOne(data, streamLen, e, b, opts, log); err != nil {
			return err
		}
	}
	if report != nil {
		report(1.0)
	}
	return nil
}

// AsyncOptions adds the bounded-concurrency knobs to Options for the
// async variant.
type AsyncOptions struct {
	Options
	Workers int // >0 caps concurrent entry goroutines; 0 leaves concurrency bounded by the MaxInFlight semaphore alone
}

// UnpackAsync runs entries concurrently, admitting new entries only while
// the sum of in-flight ReadLength() bytes stays under MaxInFlight (spec
// section 4.8's "bounded-memory concurrency"). Order of on-disk writes is
// not guaranteed; progress is reported as files complete, which may be
// out of binder order.
func UnpackAsync(ctx context.Context, b *binder.Binder, data io.ReaderAt, streamLen int64, opts AsyncOptions, report func(float64)) error {
	log := opts.logger()
	skipUnknown := opts.SkipUnknownFiles || b.SkipUnknownFiles

	active := make([]*binder.EntryHeader, 0, len(b.Entries))
	for _, e := range b.Entries {
		if e.Ignore {
			continue
		}
		if skipUnknown && e.NameIsHash {
			continue
		}
		active = append(active, e)
	}
	total := int64(len(active))
	if total == 0 {
		if report != nil {
			report(1.0)
		}
		return nil
	}

	sem := semaphore.NewWeighted(opts.maxInFlight())
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	var done int64
	for _, e := range active {
		e := e
		weight := e.ReadLength()
		if weight <= 0 {
			weight = 1
		}
		if weight > opts.maxInFlight() {
			weight = opts.maxInFlight() // a single huge entry still proceeds alone, per semaphore.Weighted's own contract
		}
		if err := sem.Acquire(gctx, weight); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(weight)
			if err := unpackOne(data, streamLen, e, b, opts.Options, log); err != nil {
				return err
			}
			if report != nil {
				n := atomic.AddInt64(&done, 1)
				report(float64(n) / float64(total))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if gctx.Err() != nil {
			return errs.ErrCancelled
		}
		return err
	}
	if ctx.Err() != nil {
		return errs.ErrCancelled
	}
	return nil
}

func unpackOne(data io.ReaderAt, streamLen int64, e *binder.EntryHeader, b *binder.Binder, opts Options, log *slog.Logger) error {
	length := e.ReadLength()
	if e.Offset < 0 || length < 0 || e.Offset+length > streamLen {
		return errs.MalformedEntry(e.Path, e.Offset, length, streamLen)
	}

	outPath := filepath.Join(opts.OutDir, filepath.FromSlash(e.Path))
	if b.SkipExistingFiles {
		if _, err := os.Stat(outPath); err == nil {
			return nil
		}
	}

	buf := make([]byte, length)
	sr := sectionreader.Section(data, e.Offset, length)
	if _, err := sr.ReadAt(buf, 0); err != nil && err != io.EOF {
		return errs.IO(err)
	}
	if e.AES != nil {
		e.AES.Decrypt(buf)
	}
	if e.UnpaddedLength >= 0 && e.UnpaddedLength <= int64(len(buf)) {
		buf = buf[:e.UnpaddedLength]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errs.IO(err)
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return errs.IO(err)
	}
	log.Debug("unpack: wrote entry", "path", e.Path, "bytes", len(buf))
	return nil
}
