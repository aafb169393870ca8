// Package watch reports edited records as they appear in, change in, or
// vanish from a project's ModifiedRwavs directory.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papapumpkin/wzpatch/internal/record"
)

// ChangeKind describes the type of file change detected.
type ChangeKind int

// Change kinds.
const (
	ChangeModified ChangeKind = iota // record written or created
	ChangeRemoved                    // record deleted or renamed away
)

// String returns "modified" or "removed".
func (k ChangeKind) String() string {
	if k == ChangeRemoved {
		return "removed"
	}
	return "modified"
}

// Debounce is how long a record must stay quiet before its change is
// reported. Editors often write a file in several bursts.
const Debounce = 100 * time.Millisecond

// Change is one settled change to an edited record.
type Change struct {
	Kind ChangeKind
	Name string
	Path string
}

// Watcher monitors a directory for .rwav changes using fsnotify.
type Watcher struct {
	Dir     string
	Changes <-chan Change // Read-only external channel

	changes chan Change // Internal write channel
	stop    chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for dir. Call Start to begin receiving changes.
func New(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Change, 16)
	return &Watcher{
		Dir:     dir,
		Changes: ch,
		changes: ch,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching the directory. On error the watcher is released
// and must not be stopped.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		w.watcher.Close()
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. Changes not yet
// delivered are dropped, so Stop never waits on a reader.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isRecord(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= Debounce {
					if !w.emit(file) {
						return
					}
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

func isRecord(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), record.RecordExt)
}

// emit reports the settled state of file: present means modified. It
// returns false when the watcher stopped before the change was taken.
func (w *Watcher) emit(file string) bool {
	kind := ChangeModified
	if info, err := os.Stat(file); err != nil || !info.Mode().IsRegular() {
		kind = ChangeRemoved
	}
	select {
	case w.changes <- Change{Kind: kind, Name: filepath.Base(file), Path: file}:
		return true
	case <-w.stop:
		return false
	}
}
