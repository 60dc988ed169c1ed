// Package divided implements the divided unpacker (spec section 4.9 /
// C9): a list of (Binder, data path) pairs driven together, e.g. when a
// game's content is split across multiple .bhd/.bdt pairs that should
// be selected and unpacked as one logical unit.
package divided

import (
	"context"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/ashenhollow/bhd5kit/internal/binder"
	"github.com/ashenhollow/bhd5kit/internal/progress"
	"github.com/ashenhollow/bhd5kit/internal/spinner"
	"github.com/ashenhollow/bhd5kit/internal/unpack"
)

// Pair is one archive and the data file it unpacks from.
type Pair struct {
	Binder   *binder.Binder
	DataPath string
}

// Set holds every pair this divided archive is made of.
//
// Sequential, when true, opens every member's data file through
// spinner instead of os.Open: the BDT sits behind something that can
// only be read forwards (e.g. a network share or an on-the-fly
// decompressing mount), and random access must be synthesized by
// reopening and rereading rather than assumed from the OS file handle.
type Set struct {
	Pairs      []Pair
	Sequential bool
}

// pathOpener adapts a filesystem path to spinner.Opener.
type pathOpener struct{ path string }

func (o pathOpener) Open() (fs.File, error) { return os.Open(o.path) }
func (o pathOpener) String() string         { return o.path }

// spinnerReaderAt adapts spinner's package-level ReadAt, keyed by a
// single Opener, to the io.ReaderAt shape unpack.UnpackContext expects.
type spinnerReaderAt struct{ o spinner.Opener }

func (s spinnerReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return spinner.ReadAt(s.o, p, off)
}

// SetSelected applies list to every binder in the set (spec section 4.9).
func (s *Set) SetSelected(list []string) {
	for _, p := range s.Pairs {
		p.Binder.SetSelected(list)
	}
}

// Unpack runs the synchronous algorithm: binders whose entries are all
// ignored are skipped entirely; the rest are unpacked in order via C8.
func Unpack(s *Set, outDir string, opts unpack.Options) error {
	for _, p := range s.Pairs {
		if p.Binder.AllIgnored() {
			continue
		}
		if err := unpackPair(context.Background(), p, outDir, opts, nil, s.Sequential); err != nil {
			return err
		}
	}
	return nil
}

// UnpackAsync runs every non-all-ignored pair concurrently, attaching a
// fresh progress.Child per binder to agg so the caller sees the mean
// completion fraction across the whole set. A binder that is entirely
// ignored reports 1.0 immediately, per spec section 4.9, so it doesn't
// drag the mean down while contributing nothing.
func UnpackAsync(ctx context.Context, s *Set, outDir string, opts unpack.AsyncOptions, agg *progress.Aggregator) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range s.Pairs {
		p := p
		child := agg.Attach()
		if p.Binder.AllIgnored() {
			child.Done()
			continue
		}
		g.Go(func() error {
			return unpackPair(gctx, p, outDir, opts.Options, child.Report, s.Sequential)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("divided unpack failed", "err", err)
		return err
	}
	return nil
}

func unpackPair(ctx context.Context, p Pair, outDir string, opts unpack.Options, report func(float64), sequential bool) error {
	if sequential {
		o := pathOpener{path: p.DataPath}
		streamLen, err := sizeOf(o)
		if err != nil {
			return err
		}
		return unpack.UnpackContext(ctx, p.Binder, spinnerReaderAt{o}, streamLen, opts, report)
	}

	f, err := os.Open(p.DataPath)
	if err != nil {
		return err
	}
	defer f.Close()
	streamLen, err := streamLength(f)
	if err != nil {
		return err
	}
	return unpack.UnpackContext(ctx, p.Binder, f, streamLen, opts, report)
}

// sizeOf stats a spinner.Opener's target once up front, the same way
// spinner's own internal worker discovers a file's size before it
// starts serving reads.
func sizeOf(o spinner.Opener) (int64, error) {
	f, err := o.Open()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func streamLength(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
