package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/signalwatch/internal/watch"
)

var dryRunPaths []string

func init() {
	validateCmd.Flags().StringSliceVar(&dryRunPaths, "dry-run", nil, "Preview which configured watches a file path would match, without running a diff")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a signalwatch configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig(configPath)
		if err != nil {
			return err
		}

		fmt.Println("Configuration is valid.")

		if len(dryRunPaths) == 0 {
			return nil
		}

		// Dry-run glob preview: report which defined watches would have
		// considered each given path, without needing an actual base/head
		// diff to drive.
		for _, path := range dryRunPaths {
			var matched []string
			for name, wc := range cfg.Defined.Watches {
				if watch.MatchesInclude(wc, path) {
					matched = append(matched, name)
				}
			}
			if len(matched) == 0 {
				fmt.Printf("%s: no watch matches\n", path)
				continue
			}
			fmt.Printf("%s: %v\n", path, matched)
		}
		return nil
	},
}
