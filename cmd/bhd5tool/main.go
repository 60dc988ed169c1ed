// Command bhd5tool is a thin CLI wrapper over the packing, unpacking,
// and renaming pipelines. It is intentionally minimal: this project's
// focus is the library, not the command surface.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashenhollow/bhd5kit/internal/bhd5"
	"github.com/ashenhollow/bhd5kit/internal/binder"
	"github.com/ashenhollow/bhd5kit/internal/config"
	"github.com/ashenhollow/bhd5kit/internal/divided"
	"github.com/ashenhollow/bhd5kit/internal/hashdict"
	"github.com/ashenhollow/bhd5kit/internal/metrics"
	"github.com/ashenhollow/bhd5kit/internal/pack"
	"github.com/ashenhollow/bhd5kit/internal/rename"
	"github.com/ashenhollow/bhd5kit/internal/unpack"
)

// mtr is the process-wide metrics set; nil (and therefore a no-op)
// until a subcommand's -metrics-addr flag asks for it.
var mtr *metrics.Metrics

// serveMetrics registers mtr and starts a /metrics endpoint on addr in
// the background, matching the teacher's "start an ancillary listener
// and move on" main.go style.
func serveMetrics(addr string) error {
	mtr = metrics.New()
	reg := prometheus.NewRegistry()
	if err := mtr.Register(reg); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics listener stopped", "err", err)
		}
	}()
	return nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "pack":
		err = cmdPack(os.Args[2:])
	case "unpack":
		err = cmdUnpack(os.Args[2:])
	case "unpack-divided":
		err = cmdUnpackDivided(os.Args[2:])
	case "rename":
		err = cmdRename(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		if mtr != nil {
			if os.Args[1] == "pack" {
				mtr.IncPackErrors()
			} else {
				mtr.IncUnpackErrors()
			}
		}
		slog.Error(os.Args[1]+" failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bhd5tool <pack|unpack|unpack-divided|rename> [flags]")
}

func cmdPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	srcDir := fs.String("src", ".", "directory to pack")
	headerOut := fs.String("header", "out.bhd", "output header path")
	dataOut := fs.String("data", "out.bdt", "output data path")
	configPath := fs.String("config", "", "YAML config path (optional)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics at this address (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *metricsAddr != "" {
		if err := serveMetrics(*metricsAddr); err != nil {
			return err
		}
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	version, err := cfg.ResolveFormatVersion()
	if err != nil {
		return err
	}

	b, err := pack.ScanDirectory(*srcDir)
	if err != nil {
		return err
	}

	dataF, err := os.Create(*dataOut)
	if err != nil {
		return err
	}
	defer dataF.Close()
	var headerBuf bytes.Buffer

	opts := pack.Options{
		FormatVersion:     version,
		Alignment:         cfg.Alignment,
		WriteDataHeader:   cfg.WriteDataHeader,
		BigEndian:         cfg.BigEndian,
		DataHeaderVersion: cfg.DataHeaderVersion,
		Distribution:      cfg.Distribution,
	}
	if err := pack.Write(b, dataF, &headerBuf, opts); err != nil {
		return err
	}
	mtr.IncEntriesPacked(len(b.Entries))
	for _, e := range b.Entries {
		mtr.AddBytesPacked(e.PaddedLength)
	}
	return os.WriteFile(*headerOut, headerBuf.Bytes(), 0o644)
}

func cmdUnpack(args []string) error {
	fs := flag.NewFlagSet("unpack", flag.ExitOnError)
	headerIn := fs.String("header", "out.bhd", "input header path")
	dataIn := fs.String("data", "out.bdt", "input data path")
	outDir := fs.String("out", ".", "output directory")
	dictPath := fs.String("dict", "", "hash dictionary path (optional)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics at this address (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *metricsAddr != "" {
		if err := serveMetrics(*metricsAddr); err != nil {
			return err
		}
	}

	headerBytes, err := os.ReadFile(*headerIn)
	if err != nil {
		return err
	}
	parsed, err := bhd5.Read(bytes.NewReader(headerBytes))
	if err != nil {
		return err
	}

	var dict *hashdict.Dictionary
	if *dictPath != "" {
		f, err := os.Open(*dictPath)
		if err != nil {
			return err
		}
		dict, err = hashdict.FromReader(f, parsed.Version.Uses64BitHash())
		f.Close()
		if err != nil {
			return err
		}
	}

	var b *binder.Binder
	if dict != nil {
		b = binder.FromHeader(parsed, dict)
	} else {
		b = binder.FromHeader(parsed, nil)
	}

	dataF, err := os.Open(*dataIn)
	if err != nil {
		return err
	}
	defer dataF.Close()
	fi, err := dataF.Stat()
	if err != nil {
		return err
	}

	if err := unpack.UnpackContext(context.Background(), b, dataF, fi.Size(), unpack.Options{OutDir: *outDir}, mtr.ObserveProgress); err != nil {
		return err
	}
	mtr.IncEntriesUnpacked(len(b.Entries))
	for _, e := range b.Entries {
		mtr.AddBytesUnpacked(e.UnpaddedLength)
	}
	return nil
}

// cmdUnpackDivided drives the divided unpacker (internal/divided) over a
// comma-separated list of header:data path pairs, unpacking them all as
// one logical archive.
func cmdUnpackDivided(args []string) error {
	fs := flag.NewFlagSet("unpack-divided", flag.ExitOnError)
	pairsFlag := fs.String("pairs", "", "comma-separated header:data path pairs")
	outDir := fs.String("out", ".", "output directory")
	sequential := fs.Bool("sequential", false, "read data files through spinner instead of os.Open")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics at this address (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *metricsAddr != "" {
		if err := serveMetrics(*metricsAddr); err != nil {
			return err
		}
	}
	if *pairsFlag == "" {
		return fmt.Errorf("unpack-divided: -pairs is required")
	}

	set := &divided.Set{Sequential: *sequential}
	for _, spec := range strings.Split(*pairsFlag, ",") {
		headerPath, dataPath, ok := strings.Cut(spec, ":")
		if !ok {
			return fmt.Errorf("unpack-divided: malformed pair %q, want header:data", spec)
		}
		headerBytes, err := os.ReadFile(headerPath)
		if err != nil {
			return err
		}
		parsed, err := bhd5.Read(bytes.NewReader(headerBytes))
		if err != nil {
			return err
		}
		set.Pairs = append(set.Pairs, divided.Pair{
			Binder:   binder.FromHeader(parsed, nil),
			DataPath: dataPath,
		})
	}

	if err := divided.Unpack(set, *outDir, unpack.Options{OutDir: *outDir}); err != nil {
		return err
	}
	for _, p := range set.Pairs {
		mtr.IncEntriesUnpacked(len(p.Binder.Entries))
	}
	return nil
}

func cmdRename(args []string) error {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	root := fs.String("root", ".", "directory to classify and rename")
	dryRun := fs.Bool("dry-run", false, "report classification without moving files")
	recursive := fs.Bool("recursive", true, "recurse into subdirectories")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := rename.Options{Recursive: *recursive}
	var (
		results []rename.Result
		err     error
	)
	if *dryRun {
		results, err = rename.DryRun(*root, opts)
	} else {
		results, err = rename.Run(*root, opts)
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("SKIP %s (%s)\n", r.Path, r.SkipReason)
			continue
		}
		fmt.Printf("%s -> %s\n", r.Path, r.NewPath)
	}
	return nil
}
