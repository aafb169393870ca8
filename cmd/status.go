package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/wzpatch/internal/catalog"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise the project's records, edits and patch runs",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	defer ws.Close()
	p, err := ws.Project("")
	if err != nil {
		return err
	}
	s, err := ws.Status(cmd.Context(), p)
	if err != nil {
		return err
	}
	out := ui.NewWriter(cmd.OutOrStdout())
	out.KeyValues(p.Name, [][2]string{
		{"records", fmt.Sprint(s.Records)},
		{"edited", fmt.Sprint(s.Edits[catalog.EditEdited])},
		{"unchanged", fmt.Sprint(s.Edits[catalog.EditUnchanged])},
		{"too big", fmt.Sprint(s.Edits[catalog.EditTooBig])},
		{"removed", fmt.Sprint(s.Edits[catalog.EditRemoved])},
		{"last patch", describeRun(s.LastPatch)},
		{"last apply", describeRun(s.LastApply)},
	})
	return nil
}

func describeRun(r *catalog.Run) string {
	if r == nil {
		return "never"
	}
	return fmt.Sprintf("%s, %d entries, %d warning(s)", humanize.Time(r.CreatedAt), r.Entries, r.Warnings)
}
