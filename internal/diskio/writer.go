// Package diskio implements the sequential, sector-aligned file writer and
// reader that the bucket file format is built on top of. Both honor the
// same alignment rules so that a file produced with direct I/O enabled can
// still be consumed correctly, and so that pread/seek against an open
// reader can be served from a single aligned buffer.
package diskio

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/adamwolf/humming/internal/align"
	"golang.org/x/sys/unix"
)

// ErrAlreadyOpen is returned when Open is called on a writer or reader
// that already owns a file descriptor.
var ErrAlreadyOpen = fmt.Errorf("diskio: file is already open")

// Writer is a sequential, buffered file output stream. Writes are copied
// into an aligned internal buffer and flushed to disk in whole-buffer
// increments; the tail is padded and the file truncated back to its
// logical length on Close when direct I/O is enabled.
type Writer struct {
	f    *os.File
	buf  []byte
	pos  int
	size int // aligned buffer capacity

	direct bool
	total  int64 // logical bytes accepted, i.e. the eventual file size
}

// NewWriter allocates a Writer with an aligned buffer of at least
// bufferSize bytes (rounded up to a full sector).
func NewWriter(bufferSize int) (*Writer, error) {
	size := align.Up(bufferSize)
	buf, err := align.Buffer(size)
	if err != nil {
		return nil, fmt.Errorf("diskio: allocating write buffer: %w", err)
	}
	return &Writer{buf: buf, size: size}, nil
}

// Open creates (truncating if necessary) path for writing. When direct is
// set, the OS is asked to bypass its page cache, which requires every
// flush to move a whole, aligned buffer.
func (w *Writer) Open(path string, direct bool) error {
	if w.f != nil {
		return ErrAlreadyOpen
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if direct {
		flags |= unix.O_DIRECT
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("diskio: open %q: %w", path, err)
	}

	w.f = f
	w.direct = direct
	w.pos = 0
	w.total = 0
	return nil
}

// flush writes the first n buffered bytes to disk, retrying on short
// writes. It leaves the buffer position alone; callers reset it.
func (w *Writer) flush(n int) error {
	if w.f == nil || n == 0 {
		return nil
	}
	written := 0
	for written < n {
		m, err := w.f.Write(w.buf[written:n])
		if err != nil {
			return fmt.Errorf("diskio: write: %w", err)
		}
		written += m
	}
	return nil
}

// Write copies bytes into the internal buffer, flushing it to disk in
// full-sector increments whenever it fills exactly. It returns the number
// of bytes accepted; total bytes accepted across all calls, including
// this one, is always reflected in TotalWritten even on a partial
// failure.
func (w *Writer) Write(p []byte) (int, error) {
	if w.f == nil {
		return 0, fmt.Errorf("diskio: write: file not open")
	}

	remaining := len(p)
	src := 0
	accepted := 0
	for remaining > 0 {
		space := w.size - w.pos
		n := remaining
		if n > space {
			n = space
		}
		copy(w.buf[w.pos:w.pos+n], p[src:src+n])
		w.pos += n
		src += n
		remaining -= n
		accepted += n

		if w.pos == w.size {
			if err := w.flush(w.pos); err != nil {
				w.total += int64(accepted)
				return accepted, err
			}
			w.pos = 0
		}
	}
	w.total += int64(accepted)
	return accepted, nil
}

// WriteScalar writes the little-endian byte representation of an unsigned
// 64-bit value, which backs both record length prefixes and index entries.
func (w *Writer) WriteScalar(x uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], x)
	_, err := w.Write(b[:])
	return err
}

// WriteString writes an 8-byte little-endian length prefix followed by the
// raw bytes of s.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteScalar(uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// WriteBytes writes an 8-byte little-endian length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) error {
	if err := w.WriteScalar(uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// TotalWritten returns the logical number of bytes accepted so far, i.e.
// the file's length once Close completes successfully.
func (w *Writer) TotalWritten() int64 {
	return w.total
}

// Close flushes any buffered data and releases the file descriptor. In
// direct mode, a partial tail buffer is zero-padded to a full sector,
// written, and the file is then truncated back to TotalWritten so the
// logical length is exact despite the padded physical write.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}

	var closeErr error
	if w.direct {
		if w.pos > 0 {
			padded := align.Up(w.pos)
			for i := w.pos; i < padded; i++ {
				w.buf[i] = 0
			}
			if err := w.flush(padded); err != nil {
				closeErr = err
			}
		}
		if closeErr == nil {
			if err := w.f.Truncate(w.total); err != nil {
				closeErr = fmt.Errorf("diskio: truncate: %w", err)
			}
		}
	} else {
		if err := w.flush(w.pos); err != nil {
			closeErr = err
		}
	}
	w.pos = 0

	if err := w.f.Close(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("diskio: close: %w", err)
	}
	w.f = nil
	return closeErr
}
