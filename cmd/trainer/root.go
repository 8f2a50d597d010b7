package main

import (
	"errors"
	"fmt"
	"strings"

	"SmartLoan/pkg/config"
	applogger "SmartLoan/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "SMARTLOAN"

// cli carries state shared by the subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
	quiet   bool
	logger  *applogger.Logger
	cfg     config.TrainingConfig
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "trainer",
		Short:         "Train the smart loan approval and fraud models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: ./config/config.yaml if present)")
	pf.BoolVarP(&c.quiet, "quiet", "q", false, "disable the progress bar")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("dataset", "", "training dataset (.xlsx or .csv)")
	pf.String("output-dir", "", "directory for model artifacts")
	pf.String("target", "", "target column")
	pf.String("id-column", "", "identifier column dropped before training")
	pf.StringSlice("features", nil, "feature columns in serving order")
	pf.Bool("all-features", false, "train on every non-target column")
	pf.Float64("test-size", 0, "held-out fraction in (0, 1)")
	pf.Int64("seed", 0, "random seed for split and forest")
	pf.Int("trees", 0, "number of trees in the approval forest")
	pf.Float64("min-accuracy", 0, "fail when test accuracy is below this value")

	bindings := map[string]string{
		"logging.level":         "log-level",
		"training.dataset":      "dataset",
		"training.output_dir":   "output-dir",
		"training.target":       "target",
		"training.id_column":    "id-column",
		"training.features":     "features",
		"training.test_size":    "test-size",
		"training.seed":         "seed",
		"training.trees":        "trees",
		"training.min_accuracy": "min-accuracy",
	}
	for key, flag := range bindings {
		_ = c.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(c.approvalCmd(), c.fraudCmd(), c.allCmd())
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	v := c.v
	if c.cfgFile != "" {
		v.SetConfigFile(c.cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := trainingConfig(v, cmd.Flags().Changed("all-features"))
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = applogger.NewWriter(cmd.ErrOrStderr(), v.GetString("logging.level"))
	return nil
}

// trainingConfig layers the training section of the config file, then
// SMARTLOAN_TRAINING_* variables and flags, over the struct defaults.
func trainingConfig(v *viper.Viper, allFeatures bool) (config.TrainingConfig, error) {
	cfg := config.Default().Training
	if v.IsSet("training") {
		if err := v.UnmarshalKey("training", &cfg); err != nil {
			return cfg, fmt.Errorf("decode training config: %w", err)
		}
	}

	if v.IsSet("training.dataset") {
		cfg.Dataset = v.GetString("training.dataset")
	}
	if v.IsSet("training.output_dir") {
		cfg.OutputDir = v.GetString("training.output_dir")
	}
	if v.IsSet("training.target") {
		cfg.Target = v.GetString("training.target")
	}
	if v.IsSet("training.id_column") {
		cfg.IDColumn = v.GetString("training.id_column")
	}
	if v.IsSet("training.features") {
		cfg.Features = v.GetStringSlice("training.features")
	}
	if v.IsSet("training.test_size") {
		cfg.TestSize = v.GetFloat64("training.test_size")
	}
	if v.IsSet("training.seed") {
		cfg.Seed = v.GetInt64("training.seed")
	}
	if v.IsSet("training.trees") {
		cfg.Trees = v.GetInt("training.trees")
	}
	if v.IsSet("training.min_accuracy") {
		cfg.MinAccuracy = v.GetFloat64("training.min_accuracy")
	}
	if allFeatures {
		cfg.Features = nil
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
