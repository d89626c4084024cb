package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hargabyte/apishape/internal/output"
	"github.com/hargabyte/apishape/internal/store"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show an indexed class or function",
	Long: `Show a class or function from the declaration index without
re-analyzing its source. Names are case-insensitive; a leading namespace
separator is optional. Without a name, every indexed declaration is listed.

Examples:
  apishape show 'App\Models\User'
  apishape show 'App\helpers\money' --format json
  apishape show                       # List everything indexed
  apishape show --type function       # List indexed functions`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var showType string

// declarationList is the listing form of the show command.
type declarationList struct {
	Count        int                  `yaml:"count" json:"count"`
	Declarations []*store.Declaration `yaml:"declarations" json:"declarations"`
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showType, "type", "", "Restrict to class or function")
}

func runShow(cmd *cobra.Command, args []string) error {
	switch showType {
	case "", store.EntityClass, store.EntityFunction:
	default:
		return fmt.Errorf("invalid type: %q (expected class or function)", showType)
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

	if len(args) == 0 {
		decls, err := idx.ListDeclarations(showType)
		if err != nil {
			return err
		}
		if decls == nil {
			decls = []*store.Declaration{}
		}
		return writeOutput(cmd.OutOrStdout(), cfg, &declarationList{Count: len(decls), Declarations: decls})
	}

	v, err := lookupDeclaration(idx, args[0], showType, outputOptions(cfg))
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), cfg, v)
}

// lookupDeclaration finds name as a class, then as a function.
func lookupDeclaration(idx *store.Store, name, entityType string, opts output.Options) (interface{}, error) {
	if entityType != store.EntityFunction {
		c, err := idx.GetClass(name)
		if err == nil {
			return output.FromClass(c, opts), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if entityType != store.EntityClass {
		fn, err := idx.GetFunction(name)
		if err == nil {
			return output.FromFunction(fn), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%q is not indexed: %w", name, store.ErrNotFound)
}
