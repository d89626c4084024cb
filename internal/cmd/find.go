package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hargabyte/apishape/internal/store"
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Find class members in the index by name",
	Long: `Search the declaration index for methods, properties and constants
whose name matches a pattern. '*' matches any run of characters; matching
is case-insensitive. Run 'apishape index' first.

Examples:
  apishape find find                  # Members named exactly "find"
  apishape find 'get*'                # Getters
  apishape find '*Id' --kind property # Properties ending in Id
  apishape find '*' --limit 20 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

var (
	findKind  string
	findLimit int
)

// findOutput is the result of the find command.
type findOutput struct {
	Pattern string          `yaml:"pattern" json:"pattern"`
	Count   int             `yaml:"count" json:"count"`
	Results []*store.Member `yaml:"results" json:"results"`
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringVar(&findKind, "kind", "", "Only members of this kind (method|property|constant)")
	findCmd.Flags().IntVar(&findLimit, "limit", 100, "Maximum results (0 for no limit)")
}

func runFind(cmd *cobra.Command, args []string) error {
	switch findKind {
	case "", store.MemberMethod, store.MemberProperty, store.MemberConstant:
	default:
		return fmt.Errorf("invalid kind: %q (expected method, property, or constant)", findKind)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	out, err := findMembers(idx, args[0], findKind, findLimit)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), cfg, out)
}

// findMembers searches idx. Count is taken before the limit applies.
func findMembers(idx *store.Store, pattern, kind string, limit int) (*findOutput, error) {
	members, err := idx.FindMembers(pattern)
	if err != nil {
		return nil, err
	}

	out := &findOutput{Pattern: pattern, Results: []*store.Member{}}
	for _, m := range members {
		if kind != "" && m.Kind != kind {
			continue
		}
		out.Count++
		if limit <= 0 || len(out.Results) < limit {
			out.Results = append(out.Results, m)
		}
	}
	return out, nil
}
