//go:build !linux

package pack

import "os"

// preallocate is a no-op on platforms without fallocate(2).
func preallocate(f *os.File, hint int64) {}
