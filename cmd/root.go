/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cortexa",
	Short: "Cortexa cognitive risk assessment backend",
	Long: `Cortexa cognitive risk assessment backend.

Accepts behavioral-test measurements, forwards them to the ML risk
prediction service, persists the results, and manages accounts with
email verification.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
