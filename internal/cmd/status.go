package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hargabyte/apishape/internal/store"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project configuration and index status",
	Long: `Show where apishape found its configuration and what the declaration
index holds.

Examples:
  apishape status
  apishape status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// StatusOutput represents the status output structure
type StatusOutput struct {
	Root       string       `json:"root,omitempty" yaml:"root,omitempty"`
	Reflection string       `json:"reflection,omitempty" yaml:"reflection,omitempty"`
	Extensions []string     `json:"extensions" yaml:"extensions"`
	Index      IndexStatus  `json:"index" yaml:"index"`
	Files      []FileStatus `json:"files,omitempty" yaml:"files,omitempty"`
}

// IndexStatus describes the declaration index.
type IndexStatus struct {
	Path      string `json:"path" yaml:"path"`
	Files     int64  `json:"files" yaml:"files"`
	Classes   int64  `json:"classes" yaml:"classes"`
	Functions int64  `json:"functions" yaml:"functions"`
	Members   int64  `json:"members" yaml:"members"`
}

// FileStatus is the scan state of one indexed file.
type FileStatus struct {
	Path      string `json:"path" yaml:"path"`
	Hash      string `json:"hash" yaml:"hash"`
	ScannedAt string `json:"scanned_at" yaml:"scanned_at"`
}

var statusFiles bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusFiles, "files", false, "List indexed files with their content hashes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	out, err := indexStatus(idx, statusFiles)
	if err != nil {
		return err
	}
	out.Root = cfg.Root
	out.Extensions = cfg.Scan.Extensions
	if cfg.Reflection.Dump != "" {
		out.Reflection = cfg.Resolve(cfg.Reflection.Dump)
	}
	return writeOutput(cmd.OutOrStdout(), cfg, out)
}

func indexStatus(idx *store.Store, withFiles bool) (*StatusOutput, error) {
	stats, err := idx.GetStats()
	if err != nil {
		return nil, err
	}
	out := &StatusOutput{
		Index: IndexStatus{
			Path:      idx.Path(),
			Files:     stats.Files,
			Classes:   stats.Classes,
			Functions: stats.Functions,
			Members:   stats.Members,
		},
	}

	if withFiles {
		entries, err := idx.GetAllFileEntries()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			out.Files = append(out.Files, FileStatus{
				Path:      e.FilePath,
				Hash:      e.ScanHash,
				ScannedAt: e.ScannedAt.Format("2006-01-02 15:04:05"),
			})
		}
	}
	return out, nil
}
