package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/re-cinq/signalwatch/internal/diffparse"
	"github.com/re-cinq/signalwatch/internal/gitrepo"
	"github.com/re-cinq/signalwatch/internal/runner"
)

var jsonOutput bool

func init() {
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit reports as JSON instead of text")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <base> <head>",
	Short: "Evaluate the configuration against the diff between two revisions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, head := args[0], args[1]

		cfg, err := loadAndValidateConfig(configPath)
		if err != nil {
			return err
		}

		repoDir, err := resolveRepo(configPath)
		if err != nil {
			return err
		}
		repo := gitrepo.NewRepo(repoDir)

		diffText, err := repo.UnifiedDiff(base, head)
		if err != nil {
			return fmt.Errorf("computing diff: %w", err)
		}

		files, err := diffparse.Parse(diffText)
		if err != nil {
			return fmt.Errorf("parsing diff: %w", err)
		}

		result, err := runner.Run(context.Background(), files, cfg, runner.Context{
			Provider: repo,
			Refs:     runner.Refs{Base: base, Head: head},
		})
		if err != nil {
			return err
		}

		for _, f := range result.Failures {
			log.Warnf("%s (%s#%d): %s", f.File, f.Concern, f.Signal, f.Err)
		}

		if jsonOutput {
			return printJSON(result)
		}
		printText(result)
		return nil
	},
}

func printJSON(result *runner.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Reports  interface{} `json:"reports"`
		Concerns interface{} `json:"concerns,omitempty"`
	}{
		Reports:  result.Reports,
		Concerns: result.Concerns,
	})
}

func printText(result *runner.Result) {
	if len(result.Reports) == 0 {
		fmt.Println("No reportable changes.")
		return
	}
	for i, r := range result.Reports {
		if i > 0 {
			fmt.Println("---")
		}
		fmt.Println(r.Content)
	}
}
