// Package metrics wires the optional Prometheus counters/gauges
// SPEC_FULL.md section 11 calls for: entries packed/unpacked, bytes
// moved, and the last observed progress fraction for the progress
// aggregator. A nil *Metrics is safe to call methods on: metrics are
// ambient, never load-bearing for correctness.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector this module registers. Construct with
// New and register the result with Register before use, or pass a nil
// *Metrics anywhere one is accepted to disable collection entirely.
type Metrics struct {
	EntriesPacked   prometheus.Counter
	EntriesUnpacked prometheus.Counter
	BytesPacked     prometheus.Counter
	BytesUnpacked   prometheus.Counter
	PackErrors      prometheus.Counter
	UnpackErrors    prometheus.Counter
	Progress        prometheus.Gauge
}

// New builds a fresh, unregistered set of collectors.
func New() *Metrics {
	return &Metrics{
		EntriesPacked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bhd5kit", Name: "entries_packed_total", Help: "Entries written by the packer.",
		}),
		EntriesUnpacked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bhd5kit", Name: "entries_unpacked_total", Help: "Entries written by the unpacker.",
		}),
		BytesPacked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bhd5kit", Name: "bytes_packed_total", Help: "Bytes written to data files by the packer.",
		}),
		BytesUnpacked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bhd5kit", Name: "bytes_unpacked_total", Help: "Bytes written to disk by the unpacker.",
		}),
		PackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bhd5kit", Name: "pack_errors_total", Help: "Pack operations that returned an error.",
		}),
		UnpackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bhd5kit", Name: "unpack_errors_total", Help: "Unpack operations that returned an error.",
		}),
		Progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bhd5kit", Name: "last_progress_fraction", Help: "Most recently reported progress.Aggregator mean.",
		}),
	}
}

// Register adds every collector in m to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		m.EntriesPacked, m.EntriesUnpacked,
		m.BytesPacked, m.BytesUnpacked,
		m.PackErrors, m.UnpackErrors,
		m.Progress,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveProgress is a progress.Sink-shaped method, for attaching
// directly as an aggregator's downstream sink.
func (m *Metrics) ObserveProgress(fraction float64) {
	if m == nil {
		return
	}
	m.Progress.Set(fraction)
}

func (m *Metrics) IncEntriesPacked(n int) {
	if m == nil {
		return
	}
	m.EntriesPacked.Add(float64(n))
}

func (m *Metrics) IncEntriesUnpacked(n int) {
	if m == nil {
		return
	}
	m.EntriesUnpacked.Add(float64(n))
}

func (m *Metrics) AddBytesPacked(n int64) {
	if m == nil {
		return
	}
	m.BytesPacked.Add(float64(n))
}

func (m *Metrics) AddBytesUnpacked(n int64) {
	if m == nil {
		return
	}
	m.BytesUnpacked.Add(float64(n))
}

func (m *Metrics) IncPackErrors() {
	if m == nil {
		return
	}
	m.PackErrors.Inc()
}

func (m *Metrics) IncUnpackErrors() {
	if m == nil {
		return
	}
	m.UnpackErrors.Inc()
}
