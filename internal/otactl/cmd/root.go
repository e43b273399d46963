package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var (
	cfgFile      string
	serverURL    string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "otactl",
	Short: "OTA Fleet CLI for managing apps and update rollouts",
	Long: `otactl is a command-line tool for operating an OTA Fleet server.

It allows you to:
  - Manage applications and their update versions
  - Publish, schedule and roll back releases
  - Inspect devices and organize them into groups
  - Follow rollout tasks and audit logs
  - Administer platform user accounts

Configuration:
  Environment variables:
    OTAFLEET_URL        - API endpoint (required)

  Config file (~/.otafleet/config.yaml):
    url: https://ota.example.com

  CLI flags override environment variables and config file.

Example usage:
  otactl login admin@otafleet.local
  otactl app list
  otactl version publish <app-id> <version-id>`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.otafleet/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "API endpoint")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}

func loadConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".otafleet"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OTAFLEET")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

// getServerURL returns the configured API endpoint
func getServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	return viper.GetString("url")
}

// getOutputFormat returns the selected output format
func getOutputFormat() output.Format {
	return output.Format(outputFormat)
}

// newClient builds an SDK client with the durable credential store
func newClient() (*client.Client, error) {
	url := getServerURL()
	if url == "" {
		return nil, fmt.Errorf("API endpoint is required (set OTAFLEET_URL env var, --url flag, or url in config file)")
	}

	store, err := client.NewFileStore("")
	if err != nil {
		return nil, err
	}
	return client.New(url, client.WithCredentialStore(store)), nil
}
