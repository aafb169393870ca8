package tui

import "time"

// Stage lifecycle messages, sent by Bridge in response to ui.UI calls.

// MsgStageStart is sent when a stage begins.
type MsgStageStart struct {
	Stage string
	Total int
}

// MsgStageProgress is sent once per item of a stage.
type MsgStageProgress struct {
	Stage string
	Done  int
	Total int
	Item  string
}

// MsgStageDone is sent when a stage finishes.
type MsgStageDone struct {
	Stage   string
	Summary string
}

// Level classifies a log line.
type Level int

// Log levels.
const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// MsgLog carries an info, warning or error line.
type MsgLog struct {
	Level Level
	Text  string
}

// MsgFinished is sent when the work behind the program returns. The
// program exits on the next key press, or at once when started with
// AutoQuit.
type MsgFinished struct {
	Err error
}

// MsgTick drives the elapsed-time display.
type MsgTick struct {
	Time time.Time
}
