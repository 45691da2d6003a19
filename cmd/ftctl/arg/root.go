package arg

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var server string

var rootCmd = &cobra.Command{
	Use:   "ftctl",
	Short: "ftctl is the command line tool for the floortimer daemon",
	Long: `ftctl talks to a running floortimer daemon over its HTTP API.
			You can start, pause, resume and stop work-session timers,
			inspect daily hours and limit countdowns, resolve recovery
			snapshots, and pull labor reports.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&server, "server", "s", "http://localhost:8460", "floortimer daemon address")
}
