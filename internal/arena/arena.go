// Package arena manages the single pre-allocated memory region backing the
// simulation's bulk state (tile memory, level flags, per-level caches).
// The region is reset in one operation between sessions instead of being
// freed object-by-object.
//
// Ownership discipline: only the simulation goroutine allocates and mutates
// arena contents. The lifecycle controller may wipe the region, and the
// snapshot integrator may serialize it, but both only do so while the
// simulation is not running.
package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// magic identifies an arena stream on disk.
	magic = uint32(0x524f4741) // "ROGA"

	// version is bumped whenever the on-disk layout changes.
	version = uint16(1)
)

// Common arena errors.
var (
	ErrOutOfSpace = errors.New("arena: out of space")
	ErrBadStream  = errors.New("arena: corrupt or foreign stream")
	ErrTooLarge   = errors.New("arena: stream larger than region")
)

// Arena is a bump allocator over one contiguous byte region.
type Arena struct {
	data   []byte
	offset int
	allocs int
}

// New creates an arena backed by a zeroed region of the given size.
func New(size int) *Arena {
	return &Arena{data: make([]byte, size)}
}

// Alloc reserves n bytes and returns their offset into the region.
// The reserved bytes are guaranteed zeroed after a fresh New or Wipe.
func (a *Arena) Alloc(n int) (int, error) {
	if n < 0 || a.offset+n > len(a.data) {
		return 0, fmt.Errorf("%w: want %d, have %d", ErrOutOfSpace, n, len(a.data)-a.offset)
	}
	off := a.offset
	a.offset += n
	a.allocs++
	return off, nil
}

// Bytes returns the slice for a previously allocated region.
// Returns nil if the range falls outside the allocated prefix.
func (a *Arena) Bytes(off, n int) []byte {
	if off < 0 || n < 0 || off+n > a.offset {
		return nil
	}
	return a.data[off : off+n : off+n]
}

// Wipe zeroes the entire region and resets allocation bookkeeping.
// Callers must guarantee no live references into the region remain.
func (a *Arena) Wipe() {
	clear(a.data)
	a.offset = 0
	a.allocs = 0
}

// Size returns the total capacity of the region in bytes.
func (a *Arena) Size() int {
	return len(a.data)
}

// Used returns the number of allocated bytes.
func (a *Arena) Used() int {
	return a.offset
}

// Allocs returns the number of allocations since the last wipe.
func (a *Arena) Allocs() int {
	return a.allocs
}

// WriteTo serializes the allocated prefix of the region, tagged with byte
// and allocation counts so a restore can verify what it read.
func (a *Arena) WriteTo(w io.Writer) (int64, error) {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], version)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(a.offset))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(a.allocs))

	n, err := w.Write(hdr[:])
	written := int64(n)
	if err != nil {
		return written, fmt.Errorf("arena: write header: %w", err)
	}
	n, err = w.Write(a.data[:a.offset])
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("arena: write region: %w", err)
	}
	return written, nil
}

// ReadFrom replaces the region contents with a previously serialized stream.
// The region is wiped first so bytes past the stored prefix are zero.
func (a *Arena) ReadFrom(r io.Reader) (int64, error) {
	var hdr [16]byte
	n, err := io.ReadFull(r, hdr[:])
	read := int64(n)
	if err != nil {
		return read, fmt.Errorf("%w: short header", ErrBadStream)
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != magic {
		return read, fmt.Errorf("%w: bad magic", ErrBadStream)
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != version {
		return read, fmt.Errorf("%w: version %d", ErrBadStream, v)
	}
	used := int(binary.LittleEndian.Uint32(hdr[8:12]))
	allocs := int(binary.LittleEndian.Uint32(hdr[12:16]))
	if used > len(a.data) {
		return read, fmt.Errorf("%w: %d bytes into %d", ErrTooLarge, used, len(a.data))
	}

	a.Wipe()
	n, err = io.ReadFull(r, a.data[:used])
	read += int64(n)
	if err != nil {
		a.Wipe()
		return read, fmt.Errorf("%w: short region (%d of %d bytes)", ErrBadStream, n, used)
	}
	a.offset = used
	a.allocs = allocs
	return read, nil
}
