package pack

import (
	"bytes"
	"compress/lzw"
	"errors"
	"fmt"
	"io"

	"github.com/paleotronic/picm8/raw"
)

// UnLZW expands the DreamGrafix LZW stream. It is the GIF dialect: LSB-first
// codes growing from 9 to 12 bits, clear code 256 and end code 257, so the
// compress/lzw reader does the work. Output is capped at want bytes (want <= 0
// means unbounded). A stream that ends before want bytes is truncated; with
// no bound, a missing end code just ends the output.
func UnLZW(src []byte, want int) ([]byte, error) {
	rc := lzw.NewReader(bytes.NewReader(src), lzw.LSB, 8)
	defer rc.Close()

	var r io.Reader = rc
	if want > 0 {
		r = io.LimitReader(rc, int64(want))
	}

	out, err := io.ReadAll(r)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		if want <= 0 {
			return out, nil
		}
	case err != nil:
		return out, fmt.Errorf("lzw: %v: %w", err, raw.ErrInvalidHeader)
	}

	if want > 0 && len(out) < want {
		return out, short(len(out), want, len(src))
	}
	return out, nil
}
