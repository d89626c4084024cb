package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/hargabyte/apishape/internal/analyzer"
	"github.com/hargabyte/apishape/internal/store"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Analyze a project and store its declarations for lookup",
	Long: `Index walks the given directory (or the project root), analyzes every
PHP file and stores the merged declarations in the index database
(index.path, default .apishape/index.db).

Indexing is incremental: files whose content hash is unchanged since the
last run are skipped. Entries for files that no longer exist below the
indexed directory are pruned.

Examples:
  apishape index              # Index the project
  apishape index src/         # Index one subtree
  apishape index --force      # Re-analyze every file
  apishape index --clear      # Drop the index and rebuild it`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var (
	indexForce bool
	indexClear bool
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-analyze even if a file is unchanged")
	indexCmd.Flags().BoolVar(&indexClear, "clear", false, "Clear the index before indexing")
}

// indexStats tracks index statistics for summary output
type indexStats struct {
	files     int
	indexed   int
	unchanged int
	failed    int
	pruned    int
	classes   int
	functions int
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := cfg.Root
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		root = "."
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	base := cfg.Root
	if base == "" {
		base = root
	}

	a, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	if indexClear {
		if err := idx.Clear(); err != nil {
			return err
		}
	}

	stats, err := indexTree(a, idx, root, base, indexForce)
	if err != nil {
		return err
	}
	printIndexSummary(cmd.OutOrStdout(), idx.Path(), stats)

	if stats.failed > 0 {
		return fmt.Errorf("%d files could not be indexed", stats.failed)
	}
	return nil
}

// indexTree indexes the PHP files below root. Index paths are relative to
// base. Unless force is set, files whose hash matches the index are skipped.
func indexTree(a *analyzer.Analyzer, idx *store.Store, root, base string, force bool) (*indexStats, error) {
	log := commonlog.GetLogger("apishape.index")
	stats := &indexStats{}

	paths, errs := a.SourceFiles(root)
	for _, err := range errs {
		log.Warningf("%v", err)
	}

	valid := make(map[string]bool, len(paths))
	for _, path := range paths {
		stats.files++
		rel := indexPath(path, base)
		valid[rel] = true

		content, err := os.ReadFile(path)
		if err != nil {
			log.Warningf("read %s: %v", path, err)
			stats.failed++
			continue
		}
		hash := store.HashContent(content)

		if !force {
			changed, err := idx.IsFileChanged(rel, hash)
			if err != nil {
				return stats, err
			}
			if !changed {
				stats.unchanged++
				continue
			}
		}

		r, err := a.Analyze(path)
		if err != nil {
			log.Warningf("%v", err)
			stats.failed++
			continue
		}

		f := *r.File
		f.Path = rel
		if err := idx.SaveFile(&f, hash); err != nil {
			return stats, err
		}
		stats.indexed++
		stats.classes += len(f.Classes)
		stats.functions += len(f.Functions)
		log.Debugf("indexed %s", rel)
	}

	// Entries outside the indexed subtree are kept.
	prefix := indexPath(root, base)
	entries, err := idx.GetAllFileEntries()
	if err != nil {
		return stats, err
	}
	for _, e := range entries {
		if !underPrefix(e.FilePath, prefix) {
			valid[e.FilePath] = true
		}
	}
	pruned, err := idx.PruneStaleEntries(valid)
	if err != nil {
		return stats, err
	}
	stats.pruned = pruned

	return stats, nil
}

// indexPath returns path relative to base with forward slashes, or the
// absolute path when it lies outside base.
func indexPath(path, base string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func underPrefix(path, prefix string) bool {
	if prefix == "." {
		return !filepath.IsAbs(path)
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func printIndexSummary(w io.Writer, dbPath string, stats *indexStats) {
	fmt.Fprintf(w, "Indexed %d of %d files into %s\n", stats.indexed, stats.files, dbPath)
	fmt.Fprintf(w, "  classes:   %d\n", stats.classes)
	fmt.Fprintf(w, "  functions: %d\n", stats.functions)
	if stats.unchanged > 0 {
		fmt.Fprintf(w, "  unchanged: %d\n", stats.unchanged)
	}
	if stats.pruned > 0 {
		fmt.Fprintf(w, "  pruned:    %d\n", stats.pruned)
	}
	if stats.failed > 0 {
		fmt.Fprintf(w, "  failed:    %d\n", stats.failed)
	}
}
