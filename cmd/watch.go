package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/wzpatch/internal/catalog"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track edits to ModifiedRwavs as they happen",
	Long: `Watches the project's ModifiedRwavs directory and classifies each edited
record against its original as it is saved. Oversized edits are flagged at
once. Press ctrl+c to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	printer := ui.New()
	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	p, err := ws.Project("")
	if err != nil {
		return err
	}

	printer.Info(fmt.Sprintf("watching %s", ws.Layout(p.Name).Modified()))
	out := ui.NewWriter(cmd.OutOrStdout())
	return ws.TrackEdits(ctx, p, func(e catalog.Edit) {
		switch e.Status {
		case catalog.EditTooBig:
			out.Warn(fmt.Sprintf("%s is %s, larger than its original", e.Name, ui.Size(e.Size)))
		case catalog.EditRemoved:
			out.Info(e.Name + " removed")
		default:
			out.Info(fmt.Sprintf("%s %s (%s)", e.Name, e.Status, ui.Size(e.Size)))
		}
	})
}
