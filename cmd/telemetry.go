package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/wzpatch/internal/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "View the JSONL telemetry events of the work directory",
	Long: `Reads and formats the telemetry event stream (.wzpatch/telemetry.jsonl).

With --project, only events of that project are shown.
With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.NoArgs,
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	telemetryCmd.Flags().String("kind", "", "only show events of this kind")
	rootCmd.AddCommand(telemetryCmd)
}

// eventFilter selects the events to print.
type eventFilter struct {
	project string
	kind    string
}

func (f eventFilter) keep(evt telemetry.Event) bool {
	return (f.project == "" || evt.Project == f.project) && (f.kind == "" || evt.Kind == f.kind)
}

func runTelemetry(cmd *cobra.Command, _ []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	kind, _ := cmd.Flags().GetString("kind")
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	filter := eventFilter{project: cfg.Project, kind: kind}
	path := filepath.Join(cfg.WorkDir, filepath.FromSlash(telemetry.DefaultPath))

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	// Print all existing events.
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		printEvent(cmd.OutOrStdout(), line, filter)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("telemetry: read %s: %w", path, err)
	}

	if !follow {
		return nil
	}

	return tailFollow(cmd, f, path, filter)
}

// tailFollow watches the file for new data using fsnotify and prints new
// events until the command's context is done.
func tailFollow(cmd *cobra.Command, f *os.File, path string, filter eventFilter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("telemetry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("telemetry: watch %s: %w", path, err)
	}

	w := cmd.OutOrStdout()
	reader := bufio.NewReader(f)
	var partial string
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			// Read all new lines available. A line without its newline yet is
			// kept until the rest arrives.
			for {
				chunk, err := reader.ReadString('\n')
				if err != nil {
					partial += chunk
					break
				}
				line := strings.TrimSpace(partial + chunk)
				partial = ""
				if line != "" {
					printEvent(w, line, filter)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("telemetry: watch %s: %w", path, err)
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
func printEvent(w io.Writer, line string, filter eventFilter) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if !filter.keep(evt) {
		return
	}

	ts := evt.Timestamp.Local().Format(time.TimeOnly)
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", ts))
	parts = append(parts, evt.Kind)

	if evt.Project != "" {
		parts = append(parts, fmt.Sprintf("project=%s", evt.Project))
	}
	if evt.Stage != "" {
		parts = append(parts, fmt.Sprintf("stage=%s", evt.Stage))
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}

	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch v := m[k].(type) {
		case map[string]any, []any:
			data, _ := json.Marshal(v)
			fmt.Fprintf(&b, "%s=%s", k, data)
		default:
			fmt.Fprintf(&b, "%s=%v", k, v)
		}
	}
	return b.String()
}
