package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/wzpatch/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create, list and inspect projects",
}

var projectNewCmd = &cobra.Command{
	Use:   "new <name> [instruction-doc...]",
	Short: "Create a project and its directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProjectNew,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a project's settings and resolved selection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectShow,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the projects in the work directory",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

func init() {
	projectNewCmd.Flags().Bool("side", false, "also extract from and patch the side archives")
	projectCmd.AddCommand(projectNewCmd, projectShowCmd, projectListCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	side, _ := cmd.Flags().GetBool("side")
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	defer ws.Close()

	p, err := ws.CreateProject(args[0], side)
	if err != nil {
		return err
	}
	out := ui.NewWriter(cmd.OutOrStdout())
	if len(args) > 1 {
		sel, err := ws.Resolve(p, args[1:]...)
		if err != nil {
			return err
		}
		out.Info(fmt.Sprintf("resolved %d container(s) from %d document(s)", sel.Len(), len(args)-1))
	}
	l := ws.Layout(p.Name)
	out.KeyValues("created "+p.Name, [][2]string{
		{"settings", l.Settings()},
		{"originals", l.Unmodified()},
		{"edits", l.Modified()},
		{"instructions", l.InstructionsDir()},
	})
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	defer ws.Close()

	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	p, err := ws.Project(name)
	if err != nil {
		return err
	}
	sel, err := p.Resolved()
	if err != nil {
		return err
	}
	out := ui.NewWriter(cmd.OutOrStdout())
	out.KeyValues(p.Name, [][2]string{
		{"created", p.CreatedAt.Local().Format("2006-01-02 15:04")},
		{"side archives", fmt.Sprint(p.AllowSideArchives)},
		{"instructions", strings.Join(p.Instructions, ", ")},
		{"skip list", strings.Join(p.SkipList, ", ")},
	})
	if sel.Len() > 0 {
		out.List("selection", strings.Split(strings.TrimSpace(sel.String()), "\n"))
	}
	return nil
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	defer ws.Close()
	names, err := ws.Projects()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no projects; create one with: wzpatch project new <name>")
		return nil
	}
	ui.NewWriter(cmd.OutOrStdout()).List("projects", names)
	return nil
}
