package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// commentCmd represents the comment command
var commentCmd = &cobra.Command{
	Use:   "comment <file|->",
	Short: "Parse a doc comment into summary, description and tags",
	Long: `Parse a PHP doc comment and print its structure. Type expressions in
@param, @return, @var, @property and @throws tags are resolved.

The argument is a file holding the comment, or '-' to read standard input.
Use --text to pass the comment inline.

Examples:
  apishape comment docblock.txt
  echo '/** @return list<int> */' | apishape comment -
  apishape comment --text '/** @var ?string */'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runComment,
}

var commentText string

func init() {
	rootCmd.AddCommand(commentCmd)
	commentCmd.Flags().StringVar(&commentText, "text", "", "Comment text to parse")
}

func runComment(cmd *cobra.Command, args []string) error {
	text := commentText
	switch {
	case text != "":
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read comment: %w", err)
		}
		text = string(data)
	default:
		return fmt.Errorf("give a file, '-' or --text")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty comment")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return writeOutput(cmd.OutOrStdout(), cfg, a.ParseComment(text))
}
