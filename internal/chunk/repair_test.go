package chunk

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestSyntheticLabel_PinnedBytes(t *testing.T) {
	t.Parallel()

	want, _ := hex.DecodeString("" +
		"4c41424c" + "00000030" + "00000002" + // LABL, 16n+16, n
		"00000014" + "00000020" + // offsets 4n+12, +12
		"00000000" + "00000004" + "54455354" + // {0, 4, TEST}
		"00000001" + "00000004" + "54455354" + // {1, 4, TEST}
		"00000000")
	if got := SyntheticLabel(2); !bytes.Equal(got, want) {
		t.Errorf("SyntheticLabel(2) =\n%x\nwant\n%x", got, want)
	}

	empty, _ := hex.DecodeString("4c41424c" + "00000010" + "00000000" + "00000000")
	if got := SyntheticLabel(0); !bytes.Equal(got, empty) {
		t.Errorf("SyntheticLabel(0) = %x, want %x", got, empty)
	}
}

func TestRepairSequenced(t *testing.T) {
	t.Parallel()

	head := []byte("HEAD")
	seq := append([]byte("RSEQ"), junk(12)...)
	rwar := file("RWAR", rwav(32, 0xA1), rwav(32, 0xA2))
	data := bytes.Join([][]byte{head, seq, rwar}, nil)

	got, ok := RepairSequenced(data)
	if !ok {
		t.Fatal("expected repair to apply")
	}
	want := bytes.Join([][]byte{head, SyntheticLabel(2), rwar}, nil)
	if !bytes.Equal(got, want) {
		t.Errorf("repaired bytes mismatch:\n got %x\nwant %x", got, want)
	}
	if !bytes.Equal(data[:4], head) || len(data) != len(head)+len(seq)+len(rwar) {
		t.Error("input buffer was modified")
	}
}

func TestRepairSequenced_NoOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"no rseq", file("RWAR", rwav(32, 0xA1))},
		{"no rwar", append([]byte("RSEQ"), junk(12)...)},
		{"rwar first", append(file("RWAR", rwav(32, 0xA1)), []byte("RSEQ")...)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := RepairSequenced(tt.data)
			if ok || !bytes.Equal(got, tt.data) {
				t.Errorf("expected no-op, got ok=%v", ok)
			}
		})
	}
}
