// Package raw provides bounds checked readers over byte buffers and the
// error taxonomy shared by the decoders and the disk readers.
package raw

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFormat      = errors.New("unknown format")
	ErrTruncated          = errors.New("truncated data")
	ErrInvalidHeader      = errors.New("invalid header")
	ErrUnsupportedVariant = errors.New("unsupported variant")
	ErrFilesystemMismatch = errors.New("filesystem mismatch")
)

// BoundsError reports a read past the end of a buffer.
type BoundsError struct {
	Offset int
	Want   int
	Len    int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("truncated data: need %d bytes at offset %d, have %d", e.Want, e.Offset, e.Len)
}

func (e *BoundsError) Unwrap() error {
	return ErrTruncated
}

// Reader is a byte buffer whose accessors fail with ErrTruncated instead of
// panicking when an offset falls outside the data.
type Reader []byte

func (r Reader) Len() int {
	return len(r)
}

// Has reports whether n bytes are available at off.
func (r Reader) Has(off, n int) bool {
	return off >= 0 && n >= 0 && off <= len(r) && n <= len(r)-off
}

func (r Reader) check(off, n int) error {
	if !r.Has(off, n) {
		return &BoundsError{Offset: off, Want: n, Len: len(r)}
	}
	return nil
}

// Byte returns the byte at off, or zero when off is out of range.
func (r Reader) Byte(off int) byte {
	if off < 0 || off >= len(r) {
		return 0
	}
	return r[off]
}

func (r Reader) U8(off int) (byte, error) {
	if err := r.check(off, 1); err != nil {
		return 0, err
	}
	return r[off], nil
}

func (r Reader) U16LE(off int) (int, error) {
	if err := r.check(off, 2); err != nil {
		return 0, err
	}
	return int(r[off]) | int(r[off+1])<<8, nil
}

func (r Reader) U16BE(off int) (int, error) {
	if err := r.check(off, 2); err != nil {
		return 0, err
	}
	return int(r[off])<<8 | int(r[off+1]), nil
}

func (r Reader) U24LE(off int) (int, error) {
	if err := r.check(off, 3); err != nil {
		return 0, err
	}
	return int(r[off]) | int(r[off+1])<<8 | int(r[off+2])<<16, nil
}

func (r Reader) U32LE(off int) (uint32, error) {
	if err := r.check(off, 4); err != nil {
		return 0, err
	}
	return uint32(r[off]) | uint32(r[off+1])<<8 | uint32(r[off+2])<<16 | uint32(r[off+3])<<24, nil
}

func (r Reader) U32BE(off int) (uint32, error) {
	if err := r.check(off, 4); err != nil {
		return 0, err
	}
	return uint32(r[off])<<24 | uint32(r[off+1])<<16 | uint32(r[off+2])<<8 | uint32(r[off+3]), nil
}

// Slice returns n bytes at off. The result aliases the buffer.
func (r Reader) Slice(off, n int) ([]byte, error) {
	if err := r.check(off, n); err != nil {
		return nil, err
	}
	return r[off : off+n], nil
}

// Str returns n bytes at off as a string with trailing NULs and spaces removed.
func (r Reader) Str(off, n int) (string, error) {
	b, err := r.Slice(off, n)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00 "), nil
}

// Match reports whether the bytes at off equal sig.
func (r Reader) Match(off int, sig string) bool {
	if !r.Has(off, len(sig)) {
		return false
	}
	return string(r[off:off+len(sig)]) == sig
}
