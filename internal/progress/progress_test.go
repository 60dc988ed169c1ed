package progress

import (
	"sync"
	"testing"
)

func TestMeanOfTwoChildren(t *testing.T) {
	var mu sync.Mutex
	var last float64
	a := New(func(f float64) {
		mu.Lock()
		last = f
		mu.Unlock()
	})
	c1 := a.Attach()
	c2 := a.Attach()
	c1.Report(0.5)
	c2.Report(1.0)

	mu.Lock()
	got := last
	mu.Unlock()
	if got != 0.75 {
		t.Fatalf("mean = %v, want 0.75", got)
	}
	if a.Mean() != 0.75 {
		t.Fatalf("Mean() = %v, want 0.75", a.Mean())
	}
}

func TestAttachInitializesToZero(t *testing.T) {
	a := New(nil)
	c1 := a.Attach()
	c1.Report(1.0)
	c2 := a.Attach() // initializes to 0, mean should drop to 0.5
	if got := a.Mean(); got != 0.5 {
		t.Fatalf("mean after second attach = %v, want 0.5", got)
	}
	_ = c2
}

func TestConcurrentReports(t *testing.T) {
	a := New(nil)
	const n = 50
	children := make([]*Child, n)
	for i := range children {
		children[i] = a.Attach()
	}
	var wg sync.WaitGroup
	for _, c := range children {
		wg.Add(1)
		go func(c *Child) {
			defer wg.Done()
			c.Done()
		}(c)
	}
	wg.Wait()
	if got := a.Mean(); got != 1.0 {
		t.Fatalf("mean = %v, want 1.0", got)
	}
}
