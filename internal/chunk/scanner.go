// Package chunk locates signed, length-prefixed chunks (RWAR, RWSD, RSEQ,
// RBNK, RWAV, TABL, DATA, LABL) inside a sound bank buffer.
//
// Scanning is a linear signature search. On each hit the chunk length is read
// from a kind-specific field; RWSD hits walk a short chain of length fields
// before the true end is known. A hit whose length cannot be trusted is a
// false positive and the search resumes four bytes later. A length that runs
// past the end of the buffer is a corrupt chunk and stops the scan, keeping
// every chunk found before it.
package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrCorruptChunk is wrapped by every CorruptChunkError.
var ErrCorruptChunk = errors.New("corrupt chunk")

// ErrBufferTooLarge is returned for buffers whose offsets do not fit in 32 bits.
var ErrBufferTooLarge = errors.New("buffer exceeds 4 GiB")

// CorruptChunkError reports a chunk whose declared length reads past the end
// of the buffer.
type CorruptChunkError struct {
	Kind   Kind
	Offset uint32
	Length uint64
	Size   int
}

// Error returns a human-readable description of the corrupt chunk.
func (e *CorruptChunkError) Error() string {
	return fmt.Sprintf("%s at 0x%08X declares 0x%X bytes, only 0x%X remain",
		e.Kind, e.Offset, e.Length, uint64(e.Size)-uint64(e.Offset))
}

// Unwrap returns ErrCorruptChunk.
func (e *CorruptChunkError) Unwrap() error {
	return ErrCorruptChunk
}

// Chunk is a located sub-range of a buffer.
type Chunk struct {
	Kind   Kind
	Offset uint32
	Length uint32
	// RWAVCount is the number of RWAV signatures inside the chunk.
	RWAVCount int
	// Sequenced marks an RWSD whose label chain went through RSEQ. Its bytes
	// need RepairSequenced before the editing tool accepts them.
	Sequenced bool
}

// End returns the offset one past the last byte of the chunk.
func (c Chunk) End() uint64 {
	return uint64(c.Offset) + uint64(c.Length)
}

// Bytes returns the chunk's bytes within buf, the buffer it was found in.
func (c Chunk) Bytes(buf []byte) []byte {
	return buf[c.Offset:c.End()]
}

// Interesting reports whether the chunk holds any RWAV records.
func (c Chunk) Interesting() bool {
	return c.RWAVCount > 0
}

// Scanner lazily yields chunks of the requested kinds in ascending offset
// order. The cursor always moves past the end of a returned chunk, so bytes
// consumed by one chunk are never reported again.
//
//	s := chunk.NewScanner(buf, 0, chunk.KindRWAR)
//	for s.Next() {
//		c := s.Chunk()
//		...
//	}
//	if err := s.Err(); err != nil { ... }
type Scanner struct {
	buf    []byte
	kinds  []Kind
	next   []int // cached next hit per kind, -1 when exhausted
	cursor int
	cur    Chunk
	err    error
	failAt int
}

// NewScanner returns a Scanner over buf starting at offset start. With no
// kinds it looks for RWAV records.
func NewScanner(buf []byte, start int, kinds ...Kind) *Scanner {
	if len(kinds) == 0 {
		kinds = []Kind{KindRWAV}
	}
	s := &Scanner{
		buf:    buf,
		kinds:  kinds,
		next:   make([]int, len(kinds)),
		cursor: max(start, 0),
		failAt: -1,
	}
	for i := range s.next {
		s.next[i] = -2
	}
	if uint64(len(buf)) > math.MaxUint32 {
		s.err = ErrBufferTooLarge
	}
	return s
}

// Next advances to the next chunk. It returns false when the buffer is
// exhausted or an error stopped the scan.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		pos, kind := s.nextHit()
		if pos < 0 {
			return false
		}
		c, ok, err := resolve(s.buf, pos, kind)
		if err != nil {
			s.err = err
			s.failAt = pos
			return false
		}
		if !ok {
			s.cursor = pos + 4
			continue
		}
		s.cur = c
		s.cursor = int(c.End())
		return true
	}
}

// Chunk returns the chunk found by the last successful Next.
func (s *Scanner) Chunk() Chunk {
	return s.cur
}

// Err returns the error that stopped the scan, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Resume clears a corrupt-chunk error and continues the search four bytes
// past the offending signature. It returns false when the scan stopped for
// any other reason.
func (s *Scanner) Resume() bool {
	var ce *CorruptChunkError
	if !errors.As(s.err, &ce) || s.failAt < 0 {
		return false
	}
	s.cursor = s.failAt + 4
	s.err = nil
	s.failAt = -1
	return true
}

// nextHit returns the lowest signature hit at or after the cursor.
func (s *Scanner) nextHit() (int, Kind) {
	best, bestKind := -1, KindUnknown
	for i, k := range s.kinds {
		if s.next[i] == -1 {
			continue
		}
		if s.next[i] < s.cursor {
			idx := bytes.Index(s.buf[s.cursor:], k.Signature())
			if idx < 0 {
				s.next[i] = -1
				continue
			}
			s.next[i] = s.cursor + idx
		}
		if best < 0 || s.next[i] < best {
			best, bestKind = s.next[i], k
		}
	}
	return best, bestKind
}

// ScanAll collects every chunk of the given kinds. On a corrupt chunk the
// chunks found before it are returned together with the error.
func ScanAll(buf []byte, kinds ...Kind) ([]Chunk, error) {
	var out []Chunk
	s := NewScanner(buf, 0, kinds...)
	for s.Next() {
		out = append(out, s.Chunk())
	}
	return out, s.Err()
}

// Count returns the number of RWAV signatures in b.
func Count(b []byte) int {
	return bytes.Count(b, KindRWAV.Signature())
}

// resolve computes the chunk starting at pos. ok is false for a false
// positive.
func resolve(buf []byte, pos int, kind Kind) (Chunk, bool, error) {
	if kind == KindRWSD {
		return resolveRWSD(buf, pos)
	}
	length, ok := u32(buf, pos+kind.lengthOffset())
	if !ok || length < kind.minLength() {
		return Chunk{}, false, nil
	}
	return finish(buf, pos, kind, uint64(length), false)
}

// resolveRWSD walks the RWSD label chain. The field at +8 points to a label
// chunk; what follows depends on the label:
//
//	RWAR  size = x + rwar.size
//	RSEQ  size = x + y + a + z, where y is the RSEQ size, a the size of an
//	      optional RBNK at pos+x+y, and z the size field found after them
//	RWSD  size = x
func resolveRWSD(buf []byte, pos int) (Chunk, bool, error) {
	x, ok := u32(buf, pos+8)
	if !ok || x < KindRWSD.minLength() {
		return Chunk{}, false, nil
	}
	if uint64(pos)+uint64(x) > uint64(len(buf)) {
		return Chunk{}, false, corrupt(buf, pos, KindRWSD, uint64(x))
	}
	label := pos + int(x)
	switch KindOf(tail(buf, label)) {
	case KindRWAR:
		z, ok := u32(buf, label+8)
		if !ok {
			return Chunk{}, false, corrupt(buf, pos, KindRWSD, uint64(x)+12)
		}
		return finish(buf, pos, KindRWSD, uint64(x)+uint64(z), false)
	case KindRSEQ:
		y, ok := u32(buf, label+8)
		if !ok {
			return Chunk{}, false, corrupt(buf, pos, KindRWSD, uint64(x)+12)
		}
		var a uint32
		rbnk := uint64(pos) + uint64(x) + uint64(y)
		if rbnk < uint64(len(buf)) && KindOf(tail(buf, int(rbnk))) == KindRBNK {
			if a, ok = u32(buf, int(rbnk)+8); !ok {
				return Chunk{}, false, corrupt(buf, pos, KindRWSD, rbnk-uint64(pos)+12)
			}
		}
		zAt := rbnk + uint64(a) + 8
		if zAt+4 > uint64(len(buf)) {
			return Chunk{}, false, corrupt(buf, pos, KindRWSD, zAt+4-uint64(pos))
		}
		z := binary.BigEndian.Uint32(buf[zAt:])
		return finish(buf, pos, KindRWSD, uint64(x)+uint64(y)+uint64(z)+uint64(a), true)
	case KindRWSD:
		return finish(buf, pos, KindRWSD, uint64(x), false)
	}
	return Chunk{}, false, nil
}

func finish(buf []byte, pos int, kind Kind, length uint64, sequenced bool) (Chunk, bool, error) {
	if uint64(pos)+length > uint64(len(buf)) {
		return Chunk{}, false, corrupt(buf, pos, kind, length)
	}
	c := Chunk{
		Kind:      kind,
		Offset:    uint32(pos),
		Length:    uint32(length),
		Sequenced: sequenced,
	}
	c.RWAVCount = Count(c.Bytes(buf))
	return c, true, nil
}

func corrupt(buf []byte, pos int, kind Kind, length uint64) error {
	return &CorruptChunkError{Kind: kind, Offset: uint32(pos), Length: length, Size: len(buf)}
}

func u32(buf []byte, at int) (uint32, bool) {
	if at < 0 || at+4 > len(buf) {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[at:]), true
}

func tail(buf []byte, at int) []byte {
	if at < 0 || at >= len(buf) {
		return nil
	}
	return buf[at:]
}
