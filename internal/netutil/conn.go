package netutil

import (
	"io"
)

// CloseConns safely closes one or more io.Closer (like net.Conn).
// It is nil-safe and ignores errors from Close(), which is the usual
// shape of a deferred cleanup.
func CloseConns(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}

// WriteFull writes all of b to w. io.Writer implementations must already
// return an error on a short write; the loop guards against ones that don't.
func WriteFull(w io.Writer, b []byte) (int, error) {
	var total int
	for total < len(b) {
		n, err := w.Write(b[total:])
		total += n
		if err != nil {
			return total, err
		}

		if n == 0 {
			return total, io.ErrShortWrite
		}
	}

	return total, nil
}
