package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/wzpatch/internal/ui"
)

// sender is the part of *tea.Program the bridge needs.
type sender interface {
	Send(msg tea.Msg)
}

// Bridge implements ui.UI by forwarding each call as a typed message to a
// BubbleTea program. tea.Program.Send is goroutine-safe, so a stage may
// report from any goroutine.
type Bridge struct {
	program sender
}

// Verify Bridge satisfies ui.UI at compile time.
var _ ui.UI = (*Bridge)(nil)

// NewBridge creates a bridge that sends messages to the given program.
func NewBridge(p *tea.Program) *Bridge {
	return &Bridge{program: p}
}

// StageStart sends MsgStageStart.
func (b *Bridge) StageStart(stage string, total int) {
	b.program.Send(MsgStageStart{Stage: stage, Total: total})
}

// StageProgress sends MsgStageProgress.
func (b *Bridge) StageProgress(stage string, done, total int, item string) {
	b.program.Send(MsgStageProgress{Stage: stage, Done: done, Total: total, Item: item})
}

// StageDone sends MsgStageDone.
func (b *Bridge) StageDone(stage, summary string) {
	b.program.Send(MsgStageDone{Stage: stage, Summary: summary})
}

// Warn sends a warning MsgLog.
func (b *Bridge) Warn(msg string) {
	b.program.Send(MsgLog{Level: LevelWarn, Text: msg})
}

// Info sends an info MsgLog.
func (b *Bridge) Info(msg string) {
	b.program.Send(MsgLog{Level: LevelInfo, Text: msg})
}

// Error sends an error MsgLog.
func (b *Bridge) Error(msg string) {
	b.program.Send(MsgLog{Level: LevelError, Text: msg})
}
