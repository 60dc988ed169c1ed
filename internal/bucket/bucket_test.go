package bucket

import "testing"

func TestNextPrime(t *testing.T) {
	cases := map[int]int{0: 2, 1: 2, 4: 5, 10: 11, 14: 17, 142: 149}
	for in, want := range cases {
		if got := NextPrime(in); got != want {
			t.Errorf("NextPrime(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDistributionCountStrategy(t *testing.T) {
	cs := DistributionCountStrategy(7)
	if got := cs(100); got != 17 {
		t.Fatalf("count(100) = %d, want 17", got)
	}
	if got := cs(1000); got != 149 {
		t.Fatalf("count(1000) = %d, want 149", got)
	}
}

func TestModulusIndexStrategyRange(t *testing.T) {
	idx := ModulusIndexStrategy(17)
	for _, h := range []uint64{0, 1, 16, 17, 18, 1 << 40, ^uint64(0)} {
		i := idx(h)
		if i < 0 || i >= 17 {
			t.Errorf("index(%d) = %d, out of [0,17)", h, i)
		}
	}
}
