package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/wzpatch/internal/container"
	"github.com/papapumpkin/wzpatch/internal/ui"
	"github.com/papapumpkin/wzpatch/internal/workspace"
)

var scanCmd = &cobra.Command{
	Use:   "scan [archive]",
	Short: "List the top-level chunks of an archive",
	Long: `Scans an archive (default: the primary archive) for chunks of the configured
index kind and lists their offsets, lengths and record counts. Corrupt chunks
are reported and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <container>",
	Short: "List the record table of a built or edited container",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(scanCmd, inspectCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	var rep workspace.ScanReport
	err := runStages("scan", func(ctx context.Context, ws *workspace.Workspace) error {
		var err error
		rep, err = ws.ScanArchive(ctx, id)
		return err
	})
	if len(rep.Chunks) > 0 {
		rows := make([]string, 0, len(rep.Chunks))
		for i, c := range rep.Chunks {
			rows = append(rows, fmt.Sprintf("%4d  %s @ 0x%08X  %10s  %3d record(s)%s",
				i, c.Kind, c.Offset, ui.Size(int64(c.Length)), c.RWAVCount, sequencedMark(c.Sequenced)))
		}
		out := ui.NewWriter(cmd.OutOrStdout())
		out.List(fmt.Sprintf("%s (%s)", rep.Archive, ui.Size(rep.Size)), rows)
	}
	return err
}

func sequencedMark(sequenced bool) string {
	if sequenced {
		return "  sequenced"
	}
	return ""
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	at, c, err := container.Locate(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	out := ui.NewWriter(cmd.OutOrStdout())
	out.KeyValues(args[0], [][2]string{
		{"container offset", fmt.Sprintf("0x%X", at)},
		{"total size", ui.Size(int64(c.Total))},
		{"payload", ui.Size(int64(c.Payload))},
		{"records", fmt.Sprint(c.Len())},
	})
	rows := make([]string, 0, c.Len())
	for i, e := range c.Table {
		rows = append(rows, fmt.Sprintf("%4d  +0x%08X  %10s", i, e.Offset, ui.Size(int64(e.Size))))
	}
	out.List("table", rows)
	return nil
}
