// Package errs defines the error kinds shared by every component of the
// archive toolkit (spec section 7). Callers test against the sentinels
// with errors.Is; the constructors attach the offending parameter, path,
// or offset/length detail the design calls for.
package errs

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound            = errors.New("bhd5kit: not found")
	ErrNotAFile            = errors.New("bhd5kit: not a file")
	ErrNotADirectory       = errors.New("bhd5kit: not a directory")
	ErrIsAFile             = errors.New("bhd5kit: is a file")
	ErrIsADirectory        = errors.New("bhd5kit: is a directory")
	ErrRooted              = errors.New("bhd5kit: path is rooted")
	ErrMalformedEntry      = errors.New("bhd5kit: malformed entry")
	ErrHashCollision       = errors.New("bhd5kit: hash collision")
	ErrDuplicateValue      = errors.New("bhd5kit: duplicate value")
	ErrUnrecognizedArchive = errors.New("bhd5kit: unrecognized archive")
	ErrCryptoFailure       = errors.New("bhd5kit: crypto failure")
	ErrCancelled           = errors.New("bhd5kit: cancelled")
	ErrIO                  = errors.New("bhd5kit: io failure")
)

// MalformedEntry reports an entry whose offset/length reach outside the
// data stream, per spec section 7's offset/length/stream-length triple.
func MalformedEntry(path string, offset, length, streamLen int64) error {
	return errors.WithDetailf(ErrMalformedEntry,
		"path=%s offset=%d length=%d stream_length=%d", path, offset, length, streamLen)
}

// HashCollision reports two distinct paths hashing to the same value.
func HashCollision(hash uint64, a, b string) error {
	return errors.WithDetailf(ErrHashCollision, "hash=%#x a=%q b=%q", hash, a, b)
}

// DuplicateValue reports the same path being added to a dictionary twice.
func DuplicateValue(path string) error {
	return errors.WithDetailf(ErrDuplicateValue, "path=%q", path)
}

// Rooted reports a path argument that was unexpectedly absolute.
func Rooted(param, path string) error {
	return errors.WithDetailf(ErrRooted, "param=%s path=%q", param, path)
}

// NotFound reports a missing file or directory, naming the argument.
func NotFound(param, path string) error {
	return errors.WithDetailf(ErrNotFound, "param=%s path=%q", param, path)
}

// Unrecognized reports a file that does not match the archive format the
// caller claimed it to be (e.g. the divided unpacker fed a non-BND file).
func Unrecognized(path string, want string) error {
	return errors.WithDetailf(ErrUnrecognizedArchive, "path=%q want=%s", path, want)
}

// Crypto wraps an underlying crypto error (RSA or AES) as CryptoFailure.
// Returns nil if cause is nil.
func Crypto(cause error) error {
	if cause == nil {
		return nil
	}
	return errors.WithSecondaryError(ErrCryptoFailure, cause)
}

// IO wraps an underlying filesystem error as Io. Returns nil if cause is nil.
func IO(cause error) error {
	if cause == nil {
		return nil
	}
	return errors.WithSecondaryError(ErrIO, cause)
}
