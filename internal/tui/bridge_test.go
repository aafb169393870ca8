package tui

import (
	"context"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/wzpatch/internal/ui"
)

// recordingSender collects every message instead of running a program.
type recordingSender struct {
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

func TestBridge_SendsTypedMessages(t *testing.T) {
	t.Parallel()

	rec := &recordingSender{}
	var sink ui.UI = &Bridge{program: rec}
	sink.StageStart("extract", 3)
	sink.StageProgress("extract", 1, 3, "Audio_000_000.rwav")
	sink.Warn("Index_004 not found")
	sink.Info("hello")
	sink.Error("boom")
	sink.StageDone("extract", "3 record(s)")

	want := []tea.Msg{
		MsgStageStart{Stage: "extract", Total: 3},
		MsgStageProgress{Stage: "extract", Done: 1, Total: 3, Item: "Audio_000_000.rwav"},
		MsgLog{Level: LevelWarn, Text: "Index_004 not found"},
		MsgLog{Level: LevelInfo, Text: "hello"},
		MsgLog{Level: LevelError, Text: "boom"},
		MsgStageDone{Stage: "extract", Summary: "3 record(s)"},
	}
	if diff := cmp.Diff(want, rec.msgs); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

// headless returns options that run a program without a terminal.
func headless() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	}
}

func TestRun_ReturnsWorkError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := Run(context.Background(), "test", func(ctx context.Context, sink ui.UI) error {
		sink.StageStart("scan", 2)
		sink.StageProgress("scan", 1, 2, "RWAR@00000010")
		sink.StageDone("scan", "1 chunk(s)")
		return boom
	}, headless()...)
	if !errors.Is(err, boom) {
		t.Errorf("Run err = %v, want %v", err, boom)
	}
}

func TestRun_Succeeds(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Run(context.Background(), "test", func(ctx context.Context, sink ui.UI) error {
		calls++
		sink.Info("working")
		return ctx.Err()
	}, headless()...)
	if err != nil || calls != 1 {
		t.Errorf("Run err = %v, calls = %d", err, calls)
	}
}
