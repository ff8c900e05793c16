// Package cmd implements the leadfinder command-line interface.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/leadfinder/cmd/crawl"
	"github.com/jonesrussell/north-cloud/leadfinder/cmd/httpd"
	"github.com/jonesrussell/north-cloud/leadfinder/cmd/search"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/bootstrap"
)

const version = "1.0.0"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands.
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "leadfinder",
		Short: "Discover and rank research leads",
		Long: `leadfinder searches the web for people matching a research topic,
crawls the pages it finds for contact details and ranks each lead.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Start(cmd.Context(), options())
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "leadfinder version %s\n", version)
		},
	})

	rootCmd.AddCommand(httpd.Command(options))
	rootCmd.AddCommand(search.Command(options))
	rootCmd.AddCommand(crawl.Command(options))
}

// initConfig binds the global flags to their environment variables. The
// service configuration itself is loaded by bootstrap.
func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindEnv("config", "CONFIG_PATH")
	_ = viper.BindEnv("app.debug", "APP_DEBUG")
}

// options resolves the global settings, flags first, then environment.
func options() bootstrap.Options {
	return bootstrap.Options{
		ConfigPath: viper.GetString("config"),
		Debug:      Debug || viper.GetBool("app.debug"),
	}
}
