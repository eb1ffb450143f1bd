// Package cmd provides the command-line interface for the ctfc site
// compiler.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--port, --output, ...)
//  2. CTFC_ environment variables (CTFC_SERVER_PORT, CTFC_OUTPUT, ...)
//  3. A .ctfc.yml file in the working directory
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Wyatt-Stanke/ctf/internal/config"
	"github.com/Wyatt-Stanke/ctf/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ctfc",
	Short: "CTF site compiler: build and serve challenges with directive processing",
	Long: `ctfc compiles a directory of CTF challenge sites into a deployable static
tree. Files are copied byte-for-byte except where a first-line compiler
directive requests a transformation (minification, directory-listing
generation, challenge page templating, payload bundling) or exclusion.

Quick start:
  ctfc compile pipeline/          Compile one challenge into dist/pipeline/
  ctfc compile-all                Compile every challenge plus the homepage
  ctfc serve pipeline/            Serve a challenge with live directive processing`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .ctfc.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ctfc")
	}

	viper.SetEnvPrefix("CTFC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the loaded config.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.New(&logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
