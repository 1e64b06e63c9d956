package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/config"
	"github.com/sells-group/collision-cli/internal/dashboard"
	"github.com/sells-group/collision-cli/internal/metrics"
	"github.com/sells-group/collision-cli/internal/ml"
	"github.com/sells-group/collision-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the collision dashboard",
	Long: `Serves the collision explorer and the severity prediction API.

Missing model files are downloaded from model.url first. With --no-model the
explorer runs without the prediction endpoint.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log := zap.L().With(zap.String("command", "serve"))

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}

		st, err := pipeline.StoreOpener(cfg.Store)(ctx)
		if err != nil {
			return eris.Wrap(err, "serve: open store")
		}
		defer st.Close() //nolint:errcheck

		var predictor *ml.Predictor
		if noModel, _ := cmd.Flags().GetBool("no-model"); !noModel {
			if err := pipeline.EnsureModel(ctx, pipeline.NewFetcher(cfg.Fetch), cfg.Model.Dir, cfg.Model.URL); err != nil {
				return eris.Wrap(err, "serve: fetch model")
			}
			art, err := ml.LoadArtifact(cfg.Model.Dir)
			if err != nil {
				return eris.Wrap(err, "serve: load model")
			}
			predictor, err = ml.NewPredictor(art)
			if err != nil {
				return eris.Wrap(err, "serve: load model")
			}
			log.Info("model loaded",
				zap.String("dir", cfg.Model.Dir),
				zap.Int("features", len(predictor.FeatureNames())),
				zap.Time("trained_at", art.Manifest.TrainedAt),
			)
		}

		m, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			return err
		}

		srv := dashboard.New(st, predictor, m, dashboard.Options{
			CacheTTL:    cfg.Cache.TTL(),
			CORSOrigins: cfg.Server.CORSOrigins,
		})
		return srv.ListenAndServe(ctx, cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().Bool("no-model", false, "serve without the prediction endpoint")
	rootCmd.AddCommand(serveCmd)
}
