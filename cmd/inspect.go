package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dssatview/internal/dates"
	"github.com/KaramelBytes/dssatview/internal/table"
)

var (
	insOutputPath string
	insGroupBy    string
	insDecimal    string
	insThousands  string
	insOutlierThr float64
	insLabels     bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize a DSSAT output, observation file, CSV or XLSX table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		opt := table.DefaultOptions()
		// Locale separators
		switch strings.ToLower(strings.TrimSpace(insDecimal)) {
		case ",", "comma":
			opt.DecimalSeparator = ','
		case ".", "dot", "":
		default:
			return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", insDecimal)
		}
		switch strings.ToLower(strings.TrimSpace(insThousands)) {
		case ",":
			opt.ThousandsSeparator = ','
		case ".":
			opt.ThousandsSeparator = '.'
		case "space", " ":
			opt.ThousandsSeparator = ' '
		case "":
		default:
			return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", insThousands)
		}

		raw, err := a.loader.ReadTable(cmd.Context(), path)
		if err != nil {
			return err
		}
		t := dates.NewUnifier(cfg.DateCacheSize, a.log).WithDateColumn(table.Normalize(raw, opt))
		popt := table.ProfileOptions{GroupBy: insGroupBy, OutlierThreshold: insOutlierThr}
		if insLabels {
			popt.Labels = map[string]string{}
			for _, name := range t.Names() {
				if label := a.catalog.DisplayName(name); label != name {
					popt.Labels[name] = label
				}
			}
		}
		rep := table.Profile(path, t, popt)
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), rep)
		}
		md := rep.Markdown()
		if insOutputPath != "" {
			if err := os.WriteFile(insOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", insOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "write the summary to this file instead of stdout")
	inspectCmd.Flags().StringVar(&insGroupBy, "group-by", "", "summarize numeric columns per key of this column, e.g. TRT")
	inspectCmd.Flags().StringVar(&insDecimal, "decimal", "", "decimal separator: '.' or 'comma'")
	inspectCmd.Flags().StringVar(&insThousands, "thousands", "", "thousands separator: ',', '.' or 'space'")
	inspectCmd.Flags().Float64Var(&insOutlierThr, "outlier-threshold", 3.5, "robust z threshold for outliers (0 disables)")
	inspectCmd.Flags().BoolVar(&insLabels, "labels", true, "label columns from DATA.CDE")
}
