/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/jackarian/serialport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// registry is shared by all commands so records survive across operations
// within one invocation.
var registry = serialport.NewRegistry()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialport",
	Short: "Serial port discovery, I/O and monitoring",
	Long: `serialport is a command line tool for working with serial devices.

It discovers communication-capable ports, opens them with configurable
line settings and timeout modes, streams and captures data, watches
typed port events and drives the modem control pins.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialport.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serialport")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
