package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

// inferCmd represents the infer command
var inferCmd = &cobra.Command{
	Use:   "infer <expression>",
	Short: "Infer the static type of a PHP expression",
	Long: `Infer the type of a PHP expression without running it.

Literals, arrays, arithmetic, concatenation, casts, new-expressions and calls
to configured builtins (inference.builtins) are understood. Anything else is
mixed.

Examples:
  apishape infer '1 + 2.5'             # float
  apishape infer "['a' => 1, 'b' => 2]" # array<string, int>
  apishape infer 'new User()'          # User`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfer,
}

// inferOutput is the result of the infer command.
type inferOutput struct {
	Expression string   `yaml:"expression" json:"expression"`
	Type       string   `yaml:"type" json:"type"`
	Errors     []string `yaml:"errors,omitempty" json:"errors,omitempty"`
}

func init() {
	rootCmd.AddCommand(inferCmd)
}

func runInfer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	expr := strings.Join(args, " ")
	typ, errs, err := a.InferExpression(expr)
	if err != nil {
		return err
	}

	out := inferOutput{Expression: expr, Type: typ.String()}
	for _, e := range errs {
		out.Errors = append(out.Errors, e.Error())
	}
	return writeOutput(cmd.OutOrStdout(), cfg, out)
}
