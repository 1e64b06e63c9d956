package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/config"
	"github.com/sells-group/collision-cli/internal/metrics"
	"github.com/sells-group/collision-cli/internal/pipeline"
)

// stageCmd builds a command that runs a single pipeline stage.
func stageCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStages(cmd, []string{name})
		},
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the batch pipeline",
	Long: `Runs clean, features, load and train in order, stopping at the first failure.

Use --stages to run a subset; stages always run in pipeline order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stages, _ := cmd.Flags().GetStringSlice("stages")
		return runStages(cmd, stages)
	},
}

func init() {
	runCmd.Flags().StringSlice("stages", nil, "comma-separated stages to run (clean,features,load,train)")
	rootCmd.AddCommand(
		stageCmd(pipeline.StageClean, "Clean the raw collision extract"),
		stageCmd(pipeline.StageFeatures, "Engineer, cluster and balance collision features"),
		stageCmd(pipeline.StageLoad, "Assign boroughs and rebuild the database tables"),
		stageCmd(pipeline.StageTrain, "Train the severity classifiers"),
		runCmd,
	)
}

func runStages(cmd *cobra.Command, names []string) error {
	if err := cfg.Validate(config.ModePipeline); err != nil {
		return err
	}
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	env := pipeline.NewEnv(cfg, m)
	engine := pipeline.NewEngine(env, pipeline.NewRegistry())

	zap.L().With(zap.String("command", cmd.Name())).Info("starting pipeline", zap.Strings("stages", names))
	runs, err := engine.Run(cmd.Context(), names)
	formatRuns(os.Stdout, runs)
	if err != nil {
		return eris.Wrap(err, cmd.Name())
	}
	return nil
}

// formatRuns writes a tabular summary of completed stages to w.
func formatRuns(out io.Writer, runs []pipeline.StageRun) {
	if len(runs) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tRECORDS\tELAPSED\tDETAILS")
	_, _ = fmt.Fprintln(w, "-----\t-------\t-------\t-------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			r.Stage, r.Result.Records, r.Elapsed.Round(time.Millisecond), formatMetadata(r.Result.Metadata))
	}
	_ = w.Flush()
}

func formatMetadata(md map[string]any) string {
	if len(md) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, md[k])
	}
	return strings.Join(parts, " ")
}
