package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	demo "github.com/hanpama/graphqlview/internal/demo"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

func newPrintSchemaCmd(conf *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print-schema",
		Short: "Print the SDL of the served schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := demo.Load(conf.GetString("schema.name"))
			if err != nil {
				return err
			}
			sdl := schema.Render(app.Schema)
			out := conf.GetString("out")
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return errors.Wrapf(os.WriteFile(out, []byte(sdl), 0o644), "write %s", out)
		},
	}
	cmd.Flags().String("out", "", "Write the SDL to a file (default: stdout)")
	return cmd
}
