package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/hargabyte/apishape/internal/config"
	"github.com/hargabyte/apishape/internal/lsp"
	"github.com/hargabyte/apishape/internal/mcp"
	"github.com/hargabyte/apishape/internal/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analysis to AI agents (MCP) or editors (LSP)",
	Long: `Run a long-lived server on stdin and stdout. The analyzer and its caches
stay loaded between requests.

Subcommands:
  mcp     Model Context Protocol server for AI agents
  lsp     Language server with hover for PHP editors
  status  Check whether a server is running for this project
  stop    Stop the running server

MCP tools:
  analyze        Merged declarations for a file, directory or class
  parse_comment  Structure of a doc comment
  infer_type     Static type of an expression
  clear_cache    Drop cached analyses
  find_member    Search the declaration index (needs 'apishape index')

Examples:
  apishape serve mcp                          # Default tools
  apishape serve mcp --tools analyze,infer_type
  apishape serve mcp --timeout 30m            # Auto-stop after 30 idle minutes
  apishape serve lsp                          # Start the language server
  apishape serve stop`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server (stdio transport)",
	Args:  cobra.NoArgs,
	RunE:  runServeMCP,
}

var lspServeCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the language server (stdio transport)",
	Args:  cobra.NoArgs,
	RunE:  runServeLSP,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if a server is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkServerStatus(cmd)
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer(cmd)
	},
}

var (
	serveTools   string
	serveTimeout string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(mcpServeCmd, lspServeCmd, serveStatusCmd, serveStopCmd)

	mcpServeCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all available)")
	mcpServeCmd.Flags().StringVar(&serveTimeout, "timeout", "30m", "Inactivity timeout (0 for no timeout)")
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	log := commonlog.GetLogger("apishape.serve")

	timeout, err := parseDuration(serveTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
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

	// The index is optional; find_member needs it.
	var idx *store.Store
	dbPath := cfg.Resolve(cfg.Index.Path)
	if _, err := os.Stat(dbPath); err == nil {
		if idx, err = openIndex(cfg); err != nil {
			return err
		}
		defer idx.Close()
	}

	tools := parseTools(serveTools)
	if len(tools) == 0 && idx != nil {
		tools = mcp.AllTools
	}

	server, err := mcp.New(a, idx, mcp.Config{
		Tools:      tools,
		Timeout:    timeout,
		PublicOnly: outputOptions(cfg).PublicOnly,
		Version:    Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := writePIDFile(); err != nil {
		log.Warningf("could not write PID file: %v", err)
	}
	defer removePIDFile()
	handleSignals("mcp")

	log.Noticef("starting MCP server with tools %v", server.ListTools())
	if timeout > 0 {
		log.Noticef("timeout: %v", timeout)
	}
	return server.ServeStdio()
}

func runServeLSP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := writePIDFile(); err != nil {
		commonlog.GetLogger("apishape.serve").Warningf("could not write PID file: %v", err)
	}
	defer removePIDFile()
	handleSignals("lsp")

	return lsp.NewServer(a, Version).RunStdio()
}

// parseTools splits a --tools value into tool names.
func parseTools(s string) []string {
	var tools []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tools = append(tools, t)
		}
	}
	return tools
}

func handleSignals(name string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		commonlog.GetLogger("apishape.serve").Noticef("%s: shutting down", name)
		removePIDFile()
		os.Exit(0)
	}()
}

func parseDuration(s string) (time.Duration, error) {
	if s == "0" || s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func getPIDFilePath() (string, error) {
	dir, err := config.FindConfigDir(".")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "serve.pid"), nil
}

func writePIDFile() error {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePIDFile() {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return
	}
	os.Remove(pidPath)
}

// readPID returns the PID recorded for this project, or 0 when there is none.
func readPID() (int, error) {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return 0, nil
	}
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		removePIDFile()
		return 0, fmt.Errorf("invalid PID file")
	}
	return pid, nil
}

func checkServerStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	pid, err := readPID()
	if err != nil || pid == 0 {
		fmt.Fprintln(out, "Status: not running")
		return nil
	}

	// On Unix, FindProcess always succeeds, so send signal 0 to check
	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.Signal(0))
	}
	if err != nil {
		fmt.Fprintln(out, "Status: not running (stale PID file)")
		removePIDFile()
		return nil
	}

	fmt.Fprintf(out, "Status: running (PID %d)\n", pid)
	return nil
}

func stopServer(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	pid, err := readPID()
	if err != nil {
		return err
	}
	if pid == 0 {
		fmt.Fprintln(out, "No server running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		removePIDFile()
		fmt.Fprintln(out, "No server running")
		return nil
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile()
		fmt.Fprintln(out, "No server running")
		return nil
	}

	fmt.Fprintf(out, "Stopped server (PID %d)\n", pid)
	return nil
}
