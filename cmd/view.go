package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dssatview/internal/views"
)

var (
	vwSel  selection
	vwKind string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Save, list and replay named plot selections",
}

var viewSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save a time series or scatter selection under a name",
	Example: `  dssatview view save maize-growth -f Maize -e UFGA8201.MZX -y CWAD,LAID
  dssatview view save maize-yield --kind scatter -f Maize --pair HWAM`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		var v *views.View
		switch views.Kind(vwKind) {
		case views.TimeSeries:
			req, err := vwSel.timeSeriesRequest(a)
			if err != nil {
				return err
			}
			v = views.FromTimeSeries(args[0], req)
		case views.Scatter:
			req, err := vwSel.scatterRequest(cmd.Context(), a)
			if err != nil {
				return explain(err)
			}
			v = views.FromScatter(args[0], req)
		default:
			return fmt.Errorf("invalid --kind: %s (use timeseries or scatter)", vwKind)
		}
		if err := a.views.Save(v); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved view %s (%s)\n", v.Name, v.ID)
		return nil
	},
}

var viewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved views",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		list, skipped, err := a.views.List()
		if err != nil {
			return err
		}
		for _, name := range skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: skipping unreadable view %s\n", name)
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), list)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no views)")
			return nil
		}
		for _, v := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s [%s] %s (updated %s)\n", v.Name, v.Kind, v.Folder, v.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var viewShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		v, err := a.views.Load(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	},
}

var viewRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Plot a saved view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		v, err := a.views.Load(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		switch v.Kind {
		case views.Scatter:
			sc, err := runScatter(cmd.Context(), a, v.ScatterRequest())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(w, sc)
			}
			printScatter(w, sc, a.draw)
		default:
			ts, err := runTimeSeries(cmd.Context(), a, v.TimeSeriesRequest())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(w, ts)
			}
			printTimeSeries(w, ts, a.draw)
		}
		return nil
	},
}

var viewDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.views.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted view %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.AddCommand(viewSaveCmd, viewListCmd, viewShowCmd, viewRunCmd, viewDeleteCmd)

	vwSel.bindTimeSeries(viewSaveCmd)
	viewSaveCmd.Flags().StringSliceVar(&vwSel.pairs, "pair", nil, "scatter variables by code, e.g. HWAM (default all)")
	viewSaveCmd.Flags().StringVar(&vwKind, "kind", string(views.TimeSeries), "view kind: timeseries or scatter")
}
