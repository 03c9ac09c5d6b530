package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dssatview/internal/pipeline"
)

var (
	varsFolder string
	varsFiles  []string
)

var varsCmd = &cobra.Command{
	Use:   "vars [code...]",
	Short: "Look up variable labels, or list the variables of a folder's outputs",
	Example: `  dssatview vars CWAD LAID
  dssatview vars -f Maize --file PlantGro.OUT
  dssatview vars`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var out []pipeline.Variable
		switch {
		case len(args) > 0:
			for _, code := range args {
				out = append(out, pipeline.Variable{Code: code, Label: a.engine.Label(code)})
			}
		case varsFolder != "":
			files := varsFiles
			if len(files) == 0 {
				files = []string{defaultOutput}
			}
			out, err = a.engine.Variables(cmd.Context(), varsFolder, files)
			if err != nil {
				return explain(err)
			}
		default:
			for code, info := range a.catalog.All() {
				out = append(out, pipeline.Variable{Code: code, Label: info.Label})
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), out)
		}
		if len(out) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no variables)")
			return nil
		}
		tw := newTable(cmd.OutOrStdout(), "CODE", "LABEL")
		for _, v := range out {
			tw.Append([]string{v.Code, v.Label})
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(varsCmd)
	varsCmd.Flags().StringVarP(&varsFolder, "folder", "f", "", "list numeric variables of this crop folder's outputs")
	varsCmd.Flags().StringSliceVar(&varsFiles, "file", nil, "output files to scan (default "+defaultOutput+")")
}
