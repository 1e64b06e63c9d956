package main

import (
	"errors"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/collision-cli/internal/model"
	"github.com/sells-group/collision-cli/internal/pipeline"
	"github.com/sells-group/collision-cli/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the global collision statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := pipeline.StoreOpener(cfg.Store)(ctx)
		if err != nil {
			return eris.Wrap(err, "stats: open store")
		}
		defer st.Close() //nolint:errcheck

		gs, err := st.GlobalStatistics(ctx)
		if errors.Is(err, store.ErrNoStatistics) {
			zap.L().Info("no statistics found, run 'collision-cli load' to compute them")
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "stats")
		}
		return writeStats(os.Stdout, gs)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// statsDoc is the YAML rendering of the statistics row.
type statsDoc struct {
	Version              string             `yaml:"version"`
	ComputedAt           string             `yaml:"computed_at"`
	TotalCollisions      int                `yaml:"total_collisions"`
	AvgCrashRate         float64            `yaml:"avg_crash_rate"`
	MostFrequentBorough  string             `yaml:"most_frequent_borough"`
	PeakCollisionTime    string             `yaml:"peak_collision_time"`
	SeverityDistribution map[string]float64 `yaml:"severity_distribution"`
	MostFrequentDay      string             `yaml:"most_frequent_day"`
	MostCommonFactor     string             `yaml:"most_common_factor"`
	MostCommonVehicle    string             `yaml:"most_common_vehicle"`
}

func writeStats(w io.Writer, gs *model.GlobalStatistics) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	doc := statsDoc{
		Version:              gs.Version,
		ComputedAt:           gs.ComputedAt.Format("2006-01-02 15:04:05 MST"),
		TotalCollisions:      gs.TotalCollisions,
		AvgCrashRate:         gs.AvgCrashRate,
		MostFrequentBorough:  gs.MostFrequentBorough,
		PeakCollisionTime:    gs.PeakCollisionTime,
		SeverityDistribution: gs.SeverityDistribution,
		MostFrequentDay:      gs.MostFrequentDay,
		MostCommonFactor:     gs.MostCommonFactor,
		MostCommonVehicle:    gs.MostCommonVehicle,
	}
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "stats: encode")
	}
	return enc.Close()
}
