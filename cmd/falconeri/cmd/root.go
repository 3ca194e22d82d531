package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "falconeri",
	Short: "falconeri is a command line tool for interacting with a Falconeri coordinator",
	Long: `falconeri is the command-line interface for Falconeri, a distributed batch
job runner. It talks to the coordinator's REST facade to submit pipelines,
inspect job and datum state, and retry failed work.

Example:
  falconeri submit --name edges-run --pipeline ./pipeline.json
  falconeri list
  falconeri describe <job-id>
  falconeri retry <job-id>

Configuration:
  Set the coordinator URL and admin password via flags, environment
  variables, or a config file:
    FALCONERI_URL       Coordinator URL (default: http://localhost:8089)
    FALCONERI_PASSWORD  HTTP Basic auth password for the "falconeri" user`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".falconeri")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FALCONERI")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.falconeri.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8089", "Falconeri coordinator URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("password", "p", "", "HTTP Basic auth password for the falconeri user")
	viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))
}
