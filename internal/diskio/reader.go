package diskio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/adamwolf/humming/internal/align"
	"golang.org/x/sys/unix"
)

// Reader is a sequential, buffered file input stream with an additional
// random-access Pread and a cursor-repositioning Seek. It either owns the
// file descriptor it opened, or adopts one handed to it by PassFd, in
// which case Close is a no-op and the caller remains responsible for it.
type Reader struct {
	f     *os.File
	owned bool

	buf   []byte
	size  int
	valid int // bytes in buf that hold real data
	pos   int // read cursor within buf

	direct bool
}

// NewReader allocates a Reader with an aligned buffer of at least
// bufferSize bytes (rounded up to a full sector).
func NewReader(bufferSize int) (*Reader, error) {
	size := align.Up(bufferSize)
	buf, err := align.Buffer(size)
	if err != nil {
		return nil, fmt.Errorf("diskio: allocating read buffer: %w", err)
	}
	return &Reader{buf: buf, size: size}, nil
}

// Open opens path read-only and takes ownership of the resulting
// descriptor: Close will release it.
func (r *Reader) Open(path string, direct bool) error {
	if r.f != nil {
		return ErrAlreadyOpen
	}

	flags := os.O_RDONLY
	if direct {
		flags |= unix.O_DIRECT
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return fmt.Errorf("diskio: open %q: %w", path, err)
	}

	r.f = f
	r.owned = true
	r.direct = direct
	r.valid, r.pos = 0, 0
	return nil
}

// PassFd adopts an externally-owned, already-open file so that several
// lookups can reuse one descriptor without transferring ownership: Close
// will detach it but never call close(2) on it.
func (r *Reader) PassFd(f *os.File, direct bool) {
	r.f = f
	r.owned = false
	r.direct = direct
	r.valid, r.pos = 0, 0
}

// Close releases the descriptor if this Reader owns it, or simply detaches
// from an adopted one.
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	var err error
	if r.owned {
		err = r.f.Close()
	}
	r.f = nil
	return err
}

func (r *Reader) fill() (int, error) {
	n, err := r.f.Read(r.buf[:r.size])
	if err != nil {
		if err == io.EOF {
			r.valid, r.pos = 0, 0
			return 0, nil
		}
		r.valid, r.pos = 0, 0
		return 0, fmt.Errorf("diskio: read: %w", err)
	}
	r.valid = n
	r.pos = 0
	return n, nil
}

// Read serves bytes sequentially from the internal buffer, refilling it
// with one aligned read whenever it empties. It returns the number of
// bytes actually produced, which is less than len(p) only at end of file.
func (r *Reader) Read(p []byte) (int, error) {
	if r.f == nil {
		return 0, fmt.Errorf("diskio: read: file not open")
	}

	total := 0
	for total < len(p) {
		if r.pos >= r.valid {
			n, err := r.fill()
			if err != nil {
				return total, err
			}
			if n == 0 {
				return total, nil
			}
		}
		n := copy(p[total:], r.buf[r.pos:r.valid])
		r.pos += n
		total += n
	}
	return total, nil
}

// ReadScalar reads a little-endian uint64 written by Writer.WriteScalar.
func (r *Reader) ReadScalar() (uint64, error) {
	var b [8]byte
	n, err := r.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n != 8 {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadString reads a length-prefixed string written by Writer.WriteString.
func (r *Reader) ReadString() (string, error) {
	size, err := r.ReadScalar()
	if err != nil {
		return "", err
	}
	buf := make([]byte, size)
	n, err := r.Read(buf)
	if err != nil {
		return "", err
	}
	if uint64(n) != size {
		return "", io.ErrUnexpectedEOF
	}
	return string(buf), nil
}

// ReadBytes reads a length-prefixed byte slice written by Writer.WriteBytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	size, err := r.ReadScalar()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := r.Read(buf)
	if err != nil {
		return nil, err
	}
	if uint64(n) != size {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}

// Pread performs a random-access read of len(p) bytes at offset,
// invalidating the sequential read buffer. In non-direct mode it delegates
// straight to the OS positional read. In direct mode, if p is sector
// aligned and both offset and len(p) are multiples of the sector size, a
// single aligned read suffices; otherwise it loops, pulling aligned chunks
// through the internal buffer and copying out the requested slice.
func (r *Reader) Pread(p []byte, offset int64) (int, error) {
	if r.f == nil {
		return 0, fmt.Errorf("diskio: pread: file not open")
	}
	r.valid, r.pos = 0, 0

	if !r.direct {
		return r.f.ReadAt(p, offset)
	}

	if len(p) > 0 && align.IsAligned(p, offset, int64(len(p))) {
		return r.f.ReadAt(p, offset)
	}

	total := 0
	cur := offset
	for total < len(p) {
		alignedOff := (cur / align.SectorSize) * align.SectorSize
		n, err := r.f.ReadAt(r.buf[:r.size], alignedOff)
		if err != nil && err != io.EOF {
			return total, fmt.Errorf("diskio: pread: %w", err)
		}
		if n == 0 {
			break
		}

		startInBuf := cur - alignedOff
		if int64(n) <= startInBuf {
			break
		}

		available := int64(n) - startInBuf
		need := int64(len(p) - total)
		toCopy := available
		if toCopy > need {
			toCopy = need
		}

		copy(p[total:int64(total)+toCopy], r.buf[startInBuf:startInBuf+toCopy])
		total += int(toCopy)
		cur += toCopy
	}
	return total, nil
}

// Seek repositions the logical read cursor to offset resolved against
// whence, invalidating the sequential buffer. In direct mode it performs
// an aligned positional seek and pre-fills the buffer from that aligned
// base, leaving the cursor pointing offset-aligned_base bytes into it, so
// that a subsequent Read continues exactly from the requested position.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.f == nil {
		return 0, fmt.Errorf("diskio: seek: file not open")
	}

	if !r.direct {
		abs, err := r.f.Seek(offset, whence)
		if err != nil {
			return 0, fmt.Errorf("diskio: seek: %w", err)
		}
		r.valid, r.pos = 0, 0
		return abs, nil
	}

	abs, err := r.f.Seek(offset, whence)
	if err != nil {
		return 0, fmt.Errorf("diskio: seek: resolving offset: %w", err)
	}

	alignedBase := (abs / align.SectorSize) * align.SectorSize
	if _, err := r.f.Seek(alignedBase, io.SeekStart); err != nil {
		return 0, fmt.Errorf("diskio: seek: aligning: %w", err)
	}

	n, err := r.fill()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		r.valid, r.pos = 0, 0
		return abs, nil
	}

	aheadInBuffer := abs - alignedBase
	if aheadInBuffer >= int64(r.valid) {
		r.valid, r.pos = 0, 0
	} else {
		r.pos = int(aheadInBuffer)
	}
	return abs, nil
}
