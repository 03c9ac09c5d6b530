package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	scSel       selection
	scListPairs bool
)

var scatterCmd = &cobra.Command{
	Use:   "scatter",
	Short: "Compare simulated and measured end-of-season values from EVALUATE.OUT",
	Example: `  dssatview scatter -f Maize --list-pairs
  dssatview scatter -f Maize --pair HWAM,CWAM -t 1,2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		if scListPairs {
			if scSel.folder == "" {
				return fmt.Errorf("--folder is required")
			}
			pairs, err := a.engine.EvaluatePairs(cmd.Context(), scSel.folder)
			if err != nil {
				return explain(err)
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), pairs)
			}
			if len(pairs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No variable pairs found.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), "VARIABLE", "SIMULATED", "MEASURED")
			for _, p := range pairs {
				tw.Append([]string{p.DisplayName, p.SimVar, p.MeasVar})
			}
			tw.Render()
			return nil
		}
		req, err := scSel.scatterRequest(cmd.Context(), a)
		if err != nil {
			return explain(err)
		}
		sc, err := runScatter(cmd.Context(), a, req)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), sc)
		}
		printScatter(cmd.OutOrStdout(), sc, a.draw)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scatterCmd)
	scSel.bindScatter(scatterCmd)
	scatterCmd.Flags().BoolVar(&scListPairs, "list-pairs", false, "list the variable pairs available in EVALUATE.OUT")
}
