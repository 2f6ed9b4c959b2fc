package contextreader

import (
	"io"

	"github.com/pkg/errors"
)

const (
	numberOfContextBytes = 16
)

// ContextReader remembers how far it has read and the bytes it read last,
// so that decode errors can say where they happened.
type ContextReader struct {
	underlying io.Reader

	totalBytesRead int64
	lastBytesRead  []byte
}

func (r *ContextReader) Read(buf []byte) (int, error) {
	n, err := r.underlying.Read(buf)

	r.totalBytesRead += int64(n)
	if n > 0 {
		r.lastBytesRead = append(r.lastBytesRead, buf[:n]...)
	}
	if len(r.lastBytesRead) > numberOfContextBytes {
		r.lastBytesRead = append(r.lastBytesRead[:0], r.lastBytesRead[len(r.lastBytesRead)-numberOfContextBytes:]...)
	}

	return n, err
}

// Offset is the number of bytes read so far.
func (r *ContextReader) Offset() int64 {
	return r.totalBytesRead
}

// WrapError annotates err with the read position. The result still matches
// err under errors.Is and errors.As.
func (r *ContextReader) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "after %d bytes (last: % 02x)", r.totalBytesRead, r.lastBytesRead)
}

func New(r io.Reader) *ContextReader {
	return &ContextReader{
		underlying: r,
	}
}
