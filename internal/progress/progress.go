// Package progress implements the N-child progress aggregator (spec
// section 4.5): every child reports a fraction in [0,1], and the
// aggregator forwards the arithmetic mean to a single downstream sink
// on every update. All mutation is guarded by one mutex; this is not a
// hot path.
package progress

import "sync"

// Sink receives the aggregated mean fraction on every child update.
type Sink func(fraction float64)

// Aggregator combines N child progress sources into one averaged report.
type Aggregator struct {
	mu       sync.Mutex
	children []float64
	sink     Sink
}

// New creates an aggregator with no children yet attached.
func New(sink Sink) *Aggregator {
	return &Aggregator{sink: sink}
}

// Child lets one caller report its own fraction of [0,1] progress.
type Child struct {
	a   *Aggregator
	idx int
}

// Attach extends the children list and initializes the new child's value
// to 0, then reports the recomputed mean.
func (a *Aggregator) Attach() *Child {
	a.mu.Lock()
	idx := len(a.children)
	a.children = append(a.children, 0)
	a.mu.Unlock()
	a.report()
	return &Child{a: a, idx: idx}
}

// Report updates this child's fraction and recomputes the aggregate mean.
func (c *Child) Report(fraction float64) {
	c.a.mu.Lock()
	c.a.children[c.idx] = fraction
	c.a.mu.Unlock()
	c.a.report()
}

// Done is shorthand for Report(1.0).
func (c *Child) Done() { c.Report(1.0) }

func (a *Aggregator) report() {
	a.mu.Lock()
	if len(a.children) == 0 {
		a.mu.Unlock()
		return
	}
	var sum float64
	for _, v := range a.children {
		sum += v
	}
	mean := sum / float64(len(a.children))
	sink := a.sink
	a.mu.Unlock()
	if sink != nil {
		sink(mean)
	}
}

// Mean returns the current aggregate mean without going through the sink.
func (a *Aggregator) Mean() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.children) == 0 {
		return 0
	}
	var sum float64
	for _, v := range a.children {
		sum += v
	}
	return sum / float64(len(a.children))
}
