package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/collision-cli/internal/dashboard"
	"github.com/sells-group/collision-cli/internal/export"
	"github.com/sells-group/collision-cli/internal/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export filtered collisions to an XLSX workbook",
	Long: `Queries the collisions table with the dashboard's filters and writes the
rows plus their statistics to an XLSX workbook.

List filters are repeatable or comma-separated. Use either --time-of-day or
--hour-min/--hour-max.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		q, err := exportQuery(cmd)
		if err != nil {
			return err
		}
		f, err := dashboard.ParseFilter(q)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		st, err := pipeline.StoreOpener(cfg.Store)(ctx)
		if err != nil {
			return eris.Wrap(err, "export: open store")
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.QueryCollisions(ctx, f)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		out, _ := cmd.Flags().GetString("out")
		if err := export.Write(out, rows, dashboard.Describe(f).Pairs()); err != nil {
			return err
		}
		fmt.Printf("Wrote %d collisions to %s\n", len(rows), out)
		return nil
	},
}

// exportFilterFlags maps list flags to the dashboard's query parameters.
var exportFilterFlags = map[string]string{
	"borough":     "borough",
	"month":       "month",
	"day":         "day",
	"factor":      "factor",
	"vehicle":     "vehicle",
	"time-of-day": "time_of_day",
}

var exportIntFlags = map[string]string{
	"hour-min": "hour_min",
	"hour-max": "hour_max",
	"limit":    "limit",
}

func init() {
	exportCmd.Flags().String("out", "collisions.xlsx", "output workbook path")
	for flag := range exportFilterFlags {
		exportCmd.Flags().StringSlice(flag, nil, "filter by "+flag)
	}
	exportCmd.Flags().Int("hour-min", -1, "first hour of the time range (0-24)")
	exportCmd.Flags().Int("hour-max", -1, "last hour of the time range (0-24)")
	exportCmd.Flags().Int("limit", 0, "maximum rows (0 for all)")
	rootCmd.AddCommand(exportCmd)
}

// exportQuery renders the set flags as dashboard query parameters, so both
// surfaces share one filter parser.
func exportQuery(cmd *cobra.Command) (url.Values, error) {
	q := url.Values{}
	for flag, param := range exportFilterFlags {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		vals, err := cmd.Flags().GetStringSlice(flag)
		if err != nil {
			return nil, err
		}
		q[param] = vals
	}
	for flag, param := range exportIntFlags {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		v, err := cmd.Flags().GetInt(flag)
		if err != nil {
			return nil, err
		}
		q.Set(param, strconv.Itoa(v))
	}
	return q, nil
}
