package cli

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "signalwatch",
	Short: "Evaluate a change-governance ruleset against a diff",
	Long: `signalwatch answers one question per governed concern: what changed
between two revisions that someone should know about?

Given a base and head revision and a declarative configuration of watches,
reports and signals, it runs the change-analysis pipeline (diff, per-file
pattern extraction, artifact diffing, report rendering) and prints the
resulting reports.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "signalwatch.yaml", "Path to the signalwatch configuration file")
	rootCmd.AddCommand(versionCmd)
	log.SetReportTimestamp(false)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		log.Infof("signalwatch %s", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
