// Command graphqlview serves a GraphQL schema over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "GRAPHQLVIEW"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Every command reads its settings from
// conf: flags override GRAPHQLVIEW_* environment variables, which override
// the --config file.
func newRootCmd() *cobra.Command {
	conf := viper.New()
	root := &cobra.Command{
		Use:           "graphqlview",
		Short:         "GraphQL over HTTP: JSON, batching and the GraphiQL explorer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(conf, cmd)
		},
	}
	f := root.PersistentFlags()
	f.String("config", "",
		"YAML configuration file. Overridden by environment variables and flags.")
	f.String("schema.name", "default", "Example schema to serve, one of [default, async]")
	f.String("log.level", "info", "Log level, one of [debug, info, warn, error]")
	f.String("log.format", "json", "Log encoding, one of [json, console]")

	root.AddCommand(newServeCmd(conf), newPrintSchemaCmd(conf))
	return root
}

func loadConfig(conf *viper.Viper, cmd *cobra.Command) error {
	if err := conf.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	conf.SetEnvPrefix(envPrefix)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	conf.AutomaticEnv()

	cfg := conf.GetString("config")
	if cfg == "" {
		return nil
	}
	conf.SetConfigFile(cfg)
	return errors.Wrapf(conf.ReadInConfig(), "read config %s", cfg)
}
