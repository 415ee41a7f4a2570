// Command streamgen drives the correlated synthetic test-data generator
// described by spec.md §6: a generate subcommand that runs the
// Correlation Orchestrator end to end, and a validate subcommand that
// performs the Init-phase checks alone, without touching a broker.
//
// Flag/env wiring follows mcolomerc-pipegen's cobra+viper control
// surface — the one repo in the example pack built around a declarative
// pipeline-stage document and a generate-like verb — rather than the
// GVCUTV-NRG-CHAMP services' flag+os.Getenv pattern, since none of
// those services expose more than one verb or a nested config document.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"streamgen/internal/config"
	"streamgen/internal/errkind"
	"streamgen/internal/fieldgen"
	"streamgen/internal/logging"
	"streamgen/internal/model"
	"streamgen/internal/orchestrator"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errkind.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("STREAMGEN")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "streamgen",
		Short:         "Correlated synthetic test-data generator for a Kafka topic fabric",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to the entity configuration document (YAML)")
	root.PersistentFlags().String("broker-config", "", "path to the broker configuration document (YAML)")
	root.PersistentFlags().String("log-file", "", "optional path to also write JSON logs to")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("broker_config", root.PersistentFlags().Lookup("broker-config"))
	_ = v.BindPFlag("log_file", root.PersistentFlags().Lookup("log-file"))

	root.AddCommand(newValidateCommand(v))
	root.AddCommand(newGenerateCommand(v))
	return root
}

func loadDocument(v *viper.Viper) (*config.Document, error) {
	path := v.GetString("config")
	if path == "" {
		return nil, fmt.Errorf("--config (or STREAMGEN_CONFIG) is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return config.Load(data)
}

func loadBrokerConfig(v *viper.Viper) (*model.BrokerConfig, error) {
	path := v.GetString("broker_config")
	if path == "" {
		return nil, fmt.Errorf("--broker-config (or STREAMGEN_BROKER_CONFIG) is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read broker config %s: %w", path, err)
	}
	return config.LoadBrokerConfig(data)
}

func newValidateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the entity configuration document and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(v)
			if err != nil {
				return err
			}
			if err := config.Validate(doc, fieldgen.KnownMethod); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newGenerateCommand(v *viper.Viper) *cobra.Command {
	var format string
	var dryRun bool
	var cleanTopics bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the correlation orchestrator against a configured broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(v)
			if err != nil {
				return errkind.New(errkind.Config, "", "", err)
			}
			brokerCfg, err := loadBrokerConfig(v)
			if err != nil {
				return errkind.New(errkind.Config, "", "", err)
			}

			log, closeLog := logging.New(v.GetString("log_file"))
			defer closeLog()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			opts := orchestrator.Options{
				Format:      orchestrator.Format(format),
				CleanTopics: cleanTopics,
				DryRun:      dryRun,
				DryRunOut:   cmd.OutOrStdout(),
			}

			summary, runErr := orchestrator.Run(ctx, doc, brokerCfg, opts, log)
			if summary != nil {
				for _, es := range summary.Entities {
					log.Info("entity_summary", "entity", es.Entity, "sent", es.Sent, "acked", es.Acked, "failed", es.Failed)
				}
			}
			if runErr != nil {
				log.Error("generate_failed", "err", runErr)
				os.Exit(errkind.ExitCode(runErr))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "wire format: json or binary")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print records instead of publishing to a broker")
	cmd.Flags().BoolVar(&cleanTopics, "clean-topics", false, "delete all declared topics' messages before running")
	return cmd
}
