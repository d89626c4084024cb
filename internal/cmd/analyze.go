package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hargabyte/apishape/internal/output"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <target>...",
	Short: "Extract merged declarations from files, directories or classes",
	Long: `Analyze PHP files, directory trees or class names and print their
declarations with every type resolved.

A target naming an existing file is parsed. A directory is walked for PHP
files, honoring scan.exclude and auto-detected dependency directories.
Anything else is looked up as a class in the reflection dump and its source
file, when known, is parsed too.

Examples:
  apishape analyze src/Models/User.php
  apishape analyze src/ --format json
  apishape analyze 'App\Models\User' --public-only
  apishape analyze src/ --strict          # Fail on syntax errors`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var analyzeStrict bool

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeStrict, "strict", false, "Exit non-zero when any file has syntax errors")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := outputOptions(cfg)
	list := output.NewListOutput()
	syntaxErrors := 0

	for _, target := range args {
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			results, errs := a.AnalyzeDir(target)
			for _, r := range results {
				list.AddFile(r.File, opts)
				syntaxErrors += len(r.Errors())
			}
			for _, err := range errs {
				list.AddFailure(err)
			}
			continue
		}

		r, err := a.Analyze(target)
		if err != nil {
			list.AddFailure(err)
			continue
		}
		if r.Class != nil {
			list.AddClass(r.Class, opts)
		} else {
			list.AddFile(r.File, opts)
		}
		syntaxErrors += len(r.Errors())
	}

	if err := writeOutput(cmd.OutOrStdout(), cfg, list); err != nil {
		return err
	}

	if len(list.Failures) > 0 {
		return fmt.Errorf("%d of %d targets failed", len(list.Failures), len(list.Failures)+list.Count)
	}
	if analyzeStrict && syntaxErrors > 0 {
		return fmt.Errorf("%d syntax errors", syntaxErrors)
	}
	return nil
}
