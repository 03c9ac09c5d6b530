package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List crop folders of the DSSAT installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		crops, err := a.resolver.Crops()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), crops)
		}
		if len(crops) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no crop folders)")
			return nil
		}
		tw := newTable(cmd.OutOrStdout(), "CODE", "NAME", "DIRECTORY")
		for _, c := range crops {
			dir := c.Dir
			if dir == "" {
				dir = "(not installed)"
			}
			tw.Append([]string{c.Code, c.Name, dir})
		}
		tw.Render()
		return nil
	},
}

var foldersShowCmd = &cobra.Command{
	Use:   "show <folder>",
	Short: "Show the experiments and outputs of a crop folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		dir, err := a.resolver.Resolve(args[0])
		if err != nil {
			return err
		}
		exps, err := a.resolver.Experiments(args[0])
		if err != nil {
			return err
		}
		outs, err := a.resolver.Outputs(args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), map[string]any{"dir": dir, "experiments": exps, "outputs": outs})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Folder: %s\n\nExperiments:\n", dir)
		if len(exps) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, e := range exps {
			fmt.Fprintf(w, "- %s: %s\n", e.File, e.Title)
		}
		fmt.Fprintln(w, "\nOutputs:")
		if len(outs) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, o := range outs {
			fmt.Fprintf(w, "- %s\n", filepath.Base(o))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(foldersCmd)
	foldersCmd.AddCommand(foldersShowCmd)
}
