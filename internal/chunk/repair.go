package chunk

import (
	"bytes"
	"encoding/binary"
)

// placeholderLabel fills every entry of the synthetic label table.
const placeholderLabel = "TEST"

// RepairSequenced rewrites a sequenced RWSD so the editing tool can open it.
// The bytes between the first RSEQ and the first RWAR are dropped and a
// synthetic LABL block with one placeholder entry per RWAV is inserted where
// the RSEQ was:
//
//	"LABL" | u32 16n+16 | u32 n | n × u32 offset (4n+12, step 12)
//	       | n × {u32 i, u32 4, "TEST"} | 4 zero bytes
//
// n counts the RWAV signatures from the RWAR onwards. Labels are placeholders,
// not real names; the header sizes of the enclosing RWSD are left untouched.
// ok is false, and data is returned unchanged, when there is no RSEQ before
// an RWAR.
func RepairSequenced(data []byte) (out []byte, ok bool) {
	rseq := bytes.Index(data, KindRSEQ.Signature())
	rwar := bytes.Index(data, KindRWAR.Signature())
	if rseq < 0 || rwar < 0 || rseq >= rwar {
		return data, false
	}
	n := Count(data[rwar:])
	label := SyntheticLabel(n)

	out = make([]byte, 0, len(data)-(rwar-rseq)+len(label))
	out = append(out, data[:rseq]...)
	out = append(out, label...)
	out = append(out, data[rwar:]...)
	return out, true
}

// SyntheticLabel returns the placeholder LABL block for n records.
func SyntheticLabel(n int) []byte {
	b := make([]byte, 0, 12+16*n+4)
	b = append(b, KindLABL.Signature()...)
	b = binary.BigEndian.AppendUint32(b, uint32(16*n+16))
	b = binary.BigEndian.AppendUint32(b, uint32(n))
	off := uint32(4*n + 12)
	for j := 0; j < n; j++ {
		b = binary.BigEndian.AppendUint32(b, off)
		off += 12
	}
	for i := 0; i < n; i++ {
		b = binary.BigEndian.AppendUint32(b, uint32(i))
		b = binary.BigEndian.AppendUint32(b, 4)
		b = append(b, placeholderLabel...)
	}
	return append(b, 0, 0, 0, 0)
}
