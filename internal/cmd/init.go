package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hargabyte/apishape/internal/config"
	"github.com/hargabyte/apishape/internal/store"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .apishape directory, config and index",
	Long: `Initialize the .apishape directory in the current directory with a
default config.yaml and an empty declaration index.

Examples:
  apishape init          # Initialize in current directory
  apishape init --force  # Reinitialize (overwrites config and index)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if .apishape already exists")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	return initProject(cmd, cwd, initForce)
}

func initProject(cmd *cobra.Command, dir string, force bool) error {
	configDir := filepath.Join(dir, config.ConfigDirName)
	configFile := filepath.Join(configDir, config.ConfigFileName)

	if _, err := os.Stat(configFile); err == nil {
		if !force {
			fmt.Fprintf(cmd.OutOrStdout(), "Already initialized at %s\n", config.ConfigDirName)
			return nil
		}
		if err := os.Remove(configFile); err != nil {
			return fmt.Errorf("removing existing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking config path: %w", err)
	}

	if _, err := config.SaveDefault(dir); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Root = dir
	dbPath := cfg.Resolve(cfg.Index.Path)
	if force {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing index: %w", err)
		}
	}

	idx, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("initializing index: %w", err)
	}
	defer idx.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized apishape at %s\n", config.ConfigDirName)
	return nil
}
