//go:build linux

package pack

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate best-effort reserves hint bytes for f, avoiding
// fragmentation on the padded layout the packer produces (SPEC_FULL.md
// section 11's x/sys wiring). Failures are silently ignored: this is an
// optimization hint, not a correctness requirement.
func preallocate(f *os.File, hint int64) {
	if f == nil || hint <= 0 {
		return
	}
	_ = unix.Fallocate(int(f.Fd()), 0, 0, hint)
}
