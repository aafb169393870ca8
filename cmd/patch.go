package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/wzpatch/internal/patch"
	"github.com/papapumpkin/wzpatch/internal/ui"
	"github.com/papapumpkin/wzpatch/internal/workspace"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Generate a patch release from the project's edits",
	Long: `Finds every occurrence of each edited record in the archives and writes
Releases/<project>/PatchInstructions/: a <project>.patch file and a copy of
each edited record it refers to. Edits larger than their original are
rejected.`,
	Args: cobra.NoArgs,
	RunE: runPatch,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a patch release to copies of the pristine archives",
	Args:  cobra.NoArgs,
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().String("release", "", "release directory (default: the project's PatchInstructions)")
	applyCmd.Flags().String("out", workspace.DefaultPatchedDir, "directory receiving the patched archives")
	rootCmd.AddCommand(patchCmd, applyCmd)
}

func runPatch(cmd *cobra.Command, _ []string) error {
	var res patch.Result
	var rel patch.Released
	err := runStages("patch", func(ctx context.Context, ws *workspace.Workspace) error {
		p, err := ws.Project("")
		if err != nil {
			return err
		}
		res, rel, err = ws.GeneratePatch(ctx, p)
		return err
	})
	out := ui.NewWriter(cmd.OutOrStdout())
	tooBig := make([]string, 0, len(res.TooBig))
	for _, se := range res.TooBig {
		tooBig = append(tooBig, se.Error())
	}
	out.List("rejected", tooBig)
	out.List("not found in any archive", res.NotFound)
	if rel.PatchFile != "" {
		entries := make([]string, 0, len(rel.Entries))
		for _, e := range rel.Entries {
			entries = append(entries, e.String())
		}
		out.List(rel.PatchFile, entries)
	}
	return err
}

func runApply(cmd *cobra.Command, _ []string) error {
	release, _ := cmd.Flags().GetString("release")
	outDir, _ := cmd.Flags().GetString("out")
	var res patch.Applied
	err := runStages("apply", func(ctx context.Context, ws *workspace.Workspace) error {
		p, err := ws.Project("")
		if err != nil {
			return err
		}
		res, err = ws.ApplyPatch(ctx, p, workspace.ApplyOptions{ReleaseDir: release, OutRoot: outDir})
		return err
	})
	out := ui.NewWriter(cmd.OutOrStdout())
	out.List("patched archives", res.Outputs)
	if res.Entries > 0 || res.Skipped > 0 {
		out.Info(fmt.Sprintf("%d entries applied, %d skipped", res.Entries, res.Skipped))
	}
	return err
}
