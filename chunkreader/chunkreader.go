// Package chunkreader splits a stream into short reads, the way data
// arrives from a socket or a pipe.
package chunkreader

import "io"

type chunkReader struct {
	underlying io.Reader

	next func() int
}

// New returns a reader that yields at most n bytes per Read.
func New(r io.Reader, n int) io.Reader {
	if n < 1 {
		n = 1
	}
	return &chunkReader{
		underlying: r,
		next:       func() int { return n },
	}
}

// NewSized returns a reader whose successive Reads yield at most sizes[0],
// sizes[1], ... bytes, cycling through sizes. Sizes below 1 count as 1.
func NewSized(r io.Reader, sizes []int) io.Reader {
	if len(sizes) == 0 {
		return r
	}
	i := 0
	return &chunkReader{
		underlying: r,
		next: func() int {
			n := sizes[i%len(sizes)]
			i++
			if n < 1 {
				return 1
			}
			return n
		},
	}
}

func (r *chunkReader) Read(buf []byte) (int, error) {
	limit := r.next()
	if len(buf) > limit {
		buf = buf[:limit]
	}
	return r.underlying.Read(buf)
}
