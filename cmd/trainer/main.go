package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"thermal-backend/internal/artifact"
	"thermal-backend/internal/database"
	"thermal-backend/internal/dataset"
	"thermal-backend/internal/features"
	"thermal-backend/internal/training"
	"thermal-backend/pkg/config"
	"thermal-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fail(err)
	fail(logger.Init(cfg.Logging.Level, cfg.Logging.Env))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fail(newRootCmd(cfg, os.Stdout).ExecuteContext(ctx))
}

func fail(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

func newRootCmd(cfg *config.Config, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "trainer",
		Short:         "train, compare and inspect thermal comfort models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(trainCmd(cfg))
	root.AddCommand(compareCmd(cfg))
	root.AddCommand(inspectCmd())
	root.AddCommand(importCmd(cfg))
	return root
}

// sourceFlags selects where training rows come from
type sourceFlags struct {
	data   string
	source string
}

func (f *sourceFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&f.data, "data", cfg.Training.DataPath, "CSV dataset path")
	cmd.Flags().StringVar(&f.source, "source", "csv", "dataset source: csv or clickhouse")
}

// open returns the dataset source and the run recorder. The recorder is
// nil when ClickHouse is disabled.
func (f *sourceFlags) open(ctx context.Context, cfg *config.Config) (dataset.Source, training.RunRecorder, func(), error) {
	var db *database.ClickHouseDB
	closer := func() {}
	if cfg.ClickHouse.Enabled {
		var err error
		db, err = openClickHouse(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		closer = func() { _ = db.Close() }
	}

	var recorder training.RunRecorder
	if db != nil {
		recorder = db
	}

	switch f.source {
	case "csv":
		return dataset.CSVSource{Path: f.data}, recorder, closer, nil
	case "clickhouse":
		if db == nil {
			closer()
			return nil, nil, nil, fmt.Errorf("--source clickhouse requires CLICKHOUSE_ENABLED=true")
		}
		return dataset.StoreSource{Store: db, Name: cfg.ClickHouse.Database}, recorder, closer, nil
	}
	closer()
	return nil, nil, nil, fmt.Errorf("unknown source %q (want csv or clickhouse)", f.source)
}

func openClickHouse(ctx context.Context, cfg *config.Config) (*database.ClickHouseDB, error) {
	return database.NewClickHouseDB(ctx, cfg.ClickHouse.Addr, cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password)
}

func trainCmd(cfg *config.Config) *cobra.Command {
	var (
		src        sourceFlags
		featureSet string
		outPath    string
		trees      int
		folds      int
		testSize   float64
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "train the temperature ensemble and write the serving artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := features.Lookup(featureSet)
			if err != nil {
				return err
			}

			source, recorder, closer, err := src.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closer()

			rc := training.DefaultRegressionConfig()
			rc.FeatureSet = set
			rc.Folds = folds
			rc.TestSize = testSize
			rc.Seed = seed
			rc.OutputPath = outPath
			if trees > 0 {
				rc.Ensemble = rc.Ensemble.Scaled(trees)
			}

			_, err = training.NewDriver(source, recorder, cmd.OutOrStdout()).Train(cmd.Context(), rc)
			return err
		},
	}

	src.register(cmd, cfg)
	cmd.Flags().StringVar(&featureSet, "feature-set", cfg.Model.FeatureSet, "feature set: "+strings.Join(features.Names(), ", "))
	cmd.Flags().StringVar(&outPath, "out", filepath.Join(cfg.Training.OutputDir, "ensemble_"+cfg.Model.FeatureSet+".bin"), "artifact output path (empty to skip)")
	cmd.Flags().IntVar(&trees, "trees", 0, "trees and boosting stages per member (0 keeps the defaults)")
	cmd.Flags().IntVar(&folds, "folds", cfg.Training.Folds, "cross-validation folds")
	cmd.Flags().Float64Var(&testSize, "test-size", 0.3, "held-out fraction")
	cmd.Flags().Int64Var(&seed, "seed", cfg.Training.Seed, "random seed")
	return cmd
}

func compareCmd(cfg *config.Config) *cobra.Command {
	var (
		src        sourceFlags
		featureSet string
		outDir     string
		folds      int
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "train and rank the comfort-category classifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := features.Lookup(featureSet)
			if err != nil {
				return err
			}

			source, recorder, closer, err := src.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closer()

			cc := training.DefaultCompareConfig()
			cc.FeatureSet = set
			cc.Folds = folds
			cc.Seed = seed
			cc.OutputDir = outDir

			_, err = training.NewDriver(source, recorder, cmd.OutOrStdout()).Compare(cmd.Context(), cc)
			return err
		},
	}

	src.register(cmd, cfg)
	cmd.Flags().StringVar(&featureSet, "feature-set", features.V3Gender.Name, "feature set: "+strings.Join(features.Names(), ", "))
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for classifier artifacts (empty to skip)")
	cmd.Flags().IntVar(&folds, "folds", cfg.Training.Folds, "cross-validation folds")
	cmd.Flags().Int64Var(&seed, "seed", cfg.Training.Seed, "random seed")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect ARTIFACT",
		Short: "print the metadata of a model artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := artifact.ReadMetadata(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			writeMetadata(cmd.OutOrStdout(), args[0], info.Size(), meta)
			return nil
		},
	}
}

func writeMetadata(w io.Writer, path string, size int64, meta artifact.Metadata) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "path\t%s\n", path)
	fmt.Fprintf(tw, "size\t%s\n", humanize.Bytes(uint64(size)))
	fmt.Fprintf(tw, "schema version\t%d\n", meta.SchemaVersion)
	fmt.Fprintf(tw, "kind\t%s\n", meta.Kind)
	fmt.Fprintf(tw, "model type\t%s\n", meta.ModelType)
	fmt.Fprintf(tw, "feature set\t%s\n", meta.FeatureSet)
	fmt.Fprintf(tw, "features\t%s\n", strings.Join(meta.Features, ", "))
	fmt.Fprintf(tw, "target\t%s\n", meta.Target)
	fmt.Fprintf(tw, "created\t%s (%s)\n", meta.CreatedAt.Format("2006-01-02 15:04:05 MST"), humanize.Time(meta.CreatedAt))

	keys := make([]string, 0, len(meta.Metrics))
	for k := range meta.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "metric %s\t%.4f\n", k, meta.Metrics[k])
	}
	tw.Flush()
}

func importCmd(cfg *config.Config) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "load a CSV dataset into the ClickHouse observations table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.ClickHouse.Enabled {
				return fmt.Errorf("import requires CLICKHOUSE_ENABLED=true")
			}

			records, err := dataset.CSVSource{Path: data}.Load(cmd.Context())
			if err != nil {
				return err
			}

			db, err := openClickHouse(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			importID, err := db.SaveObservations(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s observations from %s (import %s)\n", humanize.Comma(int64(len(records))), data, importID)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", cfg.Training.DataPath, "CSV dataset path")
	return cmd
}
