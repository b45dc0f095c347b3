package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowtap/flowtap/internal/config"
)

var (
	cfgFile      string
	serverURL    string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flowtap",
	Short: "Supervisor for interactively submitted workflow cells",
	Long: `flowtap supervises execution of workflow cells against a shared
execution backend: one worker at a time, FIFO admission keyed by cell
identity, replace-on-resubmit and confirmed cancellation of the whole
worker process tree.`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flowtap/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "supervisor API URL (default from config or http://127.0.0.1:9640)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in the config file and environment variables
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".flowtap"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FLOWTAP")
	viper.AutomaticEnv()

	// missing config file is fine, defaults apply
	viper.ReadInConfig()

	if serverURL == "" {
		serverURL = viper.GetString("server_url")
	}
	if serverURL == "" {
		serverURL = "http://127.0.0.1:9640"
	}
}

// IsJSONOutput reports whether --output json was requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
