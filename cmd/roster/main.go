package main

import (
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/roster/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	cfgFile     string
	configViper *viper.Viper
}

func newRootCommand() *cobra.Command {
	options := &rootOptions{configViper: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:          "roster",
		Short:        "Roster user administration service and client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return options.initConfig()
		},
	}

	options.setupFlags(rootCmd)
	rootCmd.AddCommand(newServeCommand(options))
	rootCmd.AddCommand(newUsersCommand(options))
	return rootCmd
}

func (o *rootOptions) setupFlags(cmd *cobra.Command) {
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "Path to configuration file")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.StringSlice("cors-allowed-origins", defaults.GetStringSlice("cors.allowed_origins"), "Origins allowed to call the API")
	flags.String("api-base-url", defaults.GetString("api.base_url"), "Base URL of the roster API used by the users commands")
	flags.Int("api-timeout-seconds", defaults.GetInt("api.timeout_seconds"), "Timeout for API requests in seconds")
	flags.Int("panel-page-size", defaults.GetInt("panel.page_size"), "Default page size (5, 10, 20 or 50)")

	o.bindFlag(cmd, "http.address", "http-address")
	o.bindFlag(cmd, "database.path", "database-path")
	o.bindFlag(cmd, "log.level", "log-level")
	o.bindFlag(cmd, "cors.allowed_origins", "cors-allowed-origins")
	o.bindFlag(cmd, "api.base_url", "api-base-url")
	o.bindFlag(cmd, "api.timeout_seconds", "api-timeout-seconds")
	o.bindFlag(cmd, "panel.page_size", "panel-page-size")
}

func (o *rootOptions) bindFlag(cmd *cobra.Command, key, flag string) {
	if err := o.configViper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func (o *rootOptions) initConfig() error {
	if o.cfgFile == "" {
		return nil
	}
	o.configViper.SetConfigFile(o.cfgFile)
	if err := o.configViper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", o.cfgFile, err)
	}
	return nil
}

func (o *rootOptions) load() (config.AppConfig, error) {
	return config.Load(o.configViper)
}
