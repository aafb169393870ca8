package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/wzpatch/internal/container"
	"github.com/papapumpkin/wzpatch/internal/extract"
	"github.com/papapumpkin/wzpatch/internal/patch"
	"github.com/papapumpkin/wzpatch/internal/selection"
	"github.com/papapumpkin/wzpatch/internal/ui"
	"github.com/papapumpkin/wzpatch/internal/workspace"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Split the primary archive into indexed containers",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [instruction-doc...]",
	Short: "Merge instruction documents into the project selection",
	Long: `Parses the given instruction documents (paths relative to Instructions/), or
the documents already stored in the project, and saves their merged
selection.`,
	RunE: runResolve,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the selected records into UnmodifiedRwavs",
	Args:  cobra.NoArgs,
	RunE:  runExtract,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Pack the project records into a container for editing",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

var unpackCmd = &cobra.Command{
	Use:   "unpack [container]",
	Short: "Split an edited container back into ModifiedRwavs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUnpack,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify the edited records of the project",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(indexCmd, resolveCmd, extractCmd, buildCmd, unpackCmd, checkCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	var res extract.IndexResult
	err := runStages("index", func(ctx context.Context, ws *workspace.Workspace) error {
		var err error
		res, err = ws.Index(ctx)
		return err
	})
	out := ui.NewWriter(cmd.OutOrStdout())
	names := make([]string, 0, len(res.Containers))
	for _, c := range res.Containers {
		line := fmt.Sprintf("%s  @ 0x%08X  %s", c.Name, c.Offset, ui.Size(int64(c.Length)))
		if c.Repaired {
			line += "  repaired"
		}
		names = append(names, line)
	}
	out.List("containers", names)
	out.List("duplicates removed", duplicateLines(res.Duplicates))
	return err
}

func runResolve(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	defer ws.Close()
	p, err := ws.Project("")
	if err != nil {
		return err
	}
	sel, err := ws.Resolve(p, args...)
	if err != nil {
		return err
	}
	if sel.Len() == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "selection is empty")
		return nil
	}
	return selection.Format(cmd.OutOrStdout(), sel)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	var res extract.Result
	err := runStages("extract", func(ctx context.Context, ws *workspace.Workspace) error {
		p, err := ws.Project("")
		if err != nil {
			return err
		}
		res, err = ws.Extract(ctx, p)
		return err
	})
	out := ui.NewWriter(cmd.OutOrStdout())
	if len(res.Records) > 0 {
		out.Info(fmt.Sprintf("%d record(s) extracted", len(res.Records)))
	}
	out.List("duplicates removed", duplicateLines(res.Duplicates))
	out.List("containers not indexed", res.Missing)
	return err
}

func runBuild(cmd *cobra.Command, _ []string) error {
	var res container.BuildResult
	err := runStages("build", func(ctx context.Context, ws *workspace.Workspace) error {
		p, err := ws.Project("")
		if err != nil {
			return err
		}
		res, err = ws.Build(ctx, p)
		return err
	})
	if err == nil {
		ui.NewWriter(cmd.OutOrStdout()).KeyValues("container", [][2]string{
			{"records", fmt.Sprint(res.Records)},
			{"edited", fmt.Sprint(res.Edited)},
			{"size", ui.Size(res.Size)},
		})
	}
	return err
}

func runUnpack(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	var res container.UnpackResult
	err := runStages("unpack", func(ctx context.Context, ws *workspace.Workspace) error {
		p, err := ws.Project("")
		if err != nil {
			return err
		}
		res, err = ws.Unpack(ctx, p, path)
		return err
	})
	if len(res.Written) > 0 {
		ui.NewWriter(cmd.OutOrStdout()).Info(fmt.Sprintf("%d of %d record(s) written", len(res.Written), res.Expected))
	}
	return err
}

func runCheck(cmd *cobra.Command, _ []string) error {
	var rep patch.Report
	err := runStages("check", func(ctx context.Context, ws *workspace.Workspace) error {
		p, err := ws.Project("")
		if err != nil {
			return err
		}
		rep, err = ws.Check(ctx, p)
		return err
	})
	out := ui.NewWriter(cmd.OutOrStdout())
	out.List("edited", rep.Edited)
	out.List("unchanged", rep.Unchanged)
	tooBig := make([]string, 0, len(rep.TooBig))
	for _, se := range rep.TooBig {
		tooBig = append(tooBig, fmt.Sprintf("%s  %s > %s", se.Record, ui.Size(se.Edited), ui.Size(se.Original)))
	}
	out.List("too big", tooBig)
	return err
}

func duplicateLines(dups []extract.Duplicate) []string {
	lines := make([]string, 0, len(dups))
	for _, d := range dups {
		lines = append(lines, d.Name+" = "+d.Original)
	}
	return lines
}
