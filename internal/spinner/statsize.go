// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package spinner

import (
	"errors"
)

var errSizeUnknown = errors.New("BDT source size not known ahead of time (e.g. a streamed, on-the-fly decompressing mount)")

// sizeOf opens id just long enough to learn its total length, so the
// multiplexer can report io.EOF at the right offset without having
// already read that far.
func sizeOf(id Opener) (int64, error) {
	f, err := id.Open()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	type sizer interface{ Size() int64 }
	if sizer, ok := f.(sizer); ok {
		return sizer.Size(), nil
	}
	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := stat.Size()
	if size < 0 {
		return 0, errSizeUnknown
	}
	return size, nil
}
