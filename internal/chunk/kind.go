package chunk

// Kind identifies a chunk by its 4-byte ASCII signature.
type Kind uint8

// Known chunk kinds. KindUnknown is the zero value and marks a signature hit
// that turned out to be ordinary data.
const (
	KindUnknown Kind = iota
	KindRWAR
	KindRWSD
	KindRSEQ
	KindRBNK
	KindRWAV
	KindTABL
	KindDATA
	KindLABL
)

var signatures = [...]string{
	KindUnknown: "????",
	KindRWAR:    "RWAR",
	KindRWSD:    "RWSD",
	KindRSEQ:    "RSEQ",
	KindRBNK:    "RBNK",
	KindRWAV:    "RWAV",
	KindTABL:    "TABL",
	KindDATA:    "DATA",
	KindLABL:    "LABL",
}

// Signature returns the 4 signature bytes of k.
func (k Kind) Signature() []byte {
	return []byte(k.String())
}

// String returns the signature as text.
func (k Kind) String() string {
	if int(k) < len(signatures) {
		return signatures[k]
	}
	return signatures[KindUnknown]
}

// KindOf classifies the first four bytes of b.
func KindOf(b []byte) Kind {
	if len(b) < 4 {
		return KindUnknown
	}
	sig := string(b[:4])
	for k := KindRWAR; int(k) < len(signatures); k++ {
		if signatures[k] == sig {
			return k
		}
	}
	return KindUnknown
}

// ParseKind maps a signature name such as "RWAR" to its Kind.
func ParseKind(s string) Kind {
	return KindOf([]byte(s))
}

// fileLevel reports whether k is a standalone file kind. File kinds store
// their total length at +0x08; section kinds store it at +0x04.
func (k Kind) fileLevel() bool {
	switch k {
	case KindRWAR, KindRWSD, KindRSEQ, KindRBNK, KindRWAV:
		return true
	}
	return false
}

// lengthOffset is the position of the length field relative to the
// signature.
func (k Kind) lengthOffset() int {
	if k.fileLevel() {
		return 8
	}
	return 4
}

// minLength is the smallest length a real chunk of kind k can declare.
// Anything shorter is data that happens to contain the signature.
func (k Kind) minLength() uint32 {
	if k.fileLevel() {
		return 16
	}
	return 8
}
