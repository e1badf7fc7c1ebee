package cli

import (
	"os"

	"bloom-client/internal/config"
	"bloom-client/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	port       string
	apiURL     string
	logLevel   string
}

// load reads configuration and applies flag overrides on top of it.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if o.port != "" {
		cfg.Server.Port = o.port
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Directory)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "bloom",
		Short:        "Guided self-analysis survey client",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&opts.port, "port", "", "port to listen on (overrides config and PORT)")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "backend base URL (overrides config and BLOOM_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(NewStartCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewLoginCmd(opts))
	cmd.AddCommand(NewRegisterCmd(opts))
	cmd.AddCommand(NewLogoutCmd(opts))
	cmd.AddCommand(NewWhoamiCmd(opts))
	cmd.AddCommand(NewSurveyCmd(opts))
	cmd.AddCommand(NewOverviewCmd(opts))
	cmd.AddCommand(NewRecalcCmd(opts))
	return cmd
}
