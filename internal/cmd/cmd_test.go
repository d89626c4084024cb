package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/hargabyte/apishape/internal/config"
)

const userSource = `<?php
namespace App;

class User
{
    private string $secret = '';

    /** @return static|null */
    public static function find(int $id) {}

    protected function hidden(): void {}
}

function money(int $cents): float {}
`

// newProject initializes a project in a temp dir and returns its root and
// config path.
func newProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	c := &cobra.Command{}
	c.SetOut(&bytes.Buffer{})
	if err := initProject(c, dir, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	return dir, filepath.Join(dir, config.ConfigDirName, config.ConfigFileName)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	outputFormat, publicOnly, configPath = "", false, ""
	analyzeStrict, commentText = false, ""
	findKind, findLimit, showType = "", 100, ""
	indexForce, indexClear, statusFiles = false, false, false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func decodeJSON(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, s)
	}
	return out
}

func TestInitProject(t *testing.T) {
	dir, cfgPath := newProject(t)

	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".apishape", "index.db")); err != nil {
		t.Fatalf("expected index database: %v", err)
	}

	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	if err := initProject(c, dir, false); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if !strings.Contains(buf.String(), "Already initialized") {
		t.Errorf("expected already-initialized notice, got %q", buf.String())
	}

	buf.Reset()
	if err := initProject(c, dir, true); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	if !strings.Contains(buf.String(), "Initialized apishape") {
		t.Errorf("expected reinitialization, got %q", buf.String())
	}
}

func TestAnalyzeCommand(t *testing.T) {
	dir, cfgPath := newProject(t)
	path := writeFile(t, dir, "src/User.php", userSource)

	out, err := run(t, "analyze", path, "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"(int $id): ?static"`) {
		t.Errorf("expected doc return type in signature, got:\n%s", out)
	}
	if !strings.Contains(out, `"hidden"`) {
		t.Errorf("expected protected method, got:\n%s", out)
	}
	if decodeJSON(t, out)["count"] != float64(1) {
		t.Errorf("expected count=1, got:\n%s", out)
	}

	out, err = run(t, "analyze", path, "--config", cfgPath, "--format", "json", "--public-only")
	if err != nil {
		t.Fatalf("analyze --public-only: %v", err)
	}
	if strings.Contains(out, `"hidden"`) || strings.Contains(out, `"secret"`) {
		t.Errorf("expected non-public members dropped, got:\n%s", out)
	}
}

func TestAnalyzeCommandDirectory(t *testing.T) {
	dir, cfgPath := newProject(t)
	writeFile(t, dir, "src/User.php", userSource)
	writeFile(t, dir, "src/Broken.php", "<?php class {")

	out, err := run(t, "analyze", filepath.Join(dir, "src"), "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("analyze dir: %v\n%s", err, out)
	}
	if decodeJSON(t, out)["count"] != float64(2) {
		t.Errorf("expected both files, got:\n%s", out)
	}

	if _, err := run(t, "analyze", filepath.Join(dir, "src"), "--config", cfgPath, "--strict"); err == nil {
		t.Error("expected --strict to fail on syntax errors")
	}
}

func TestAnalyzeCommandFailure(t *testing.T) {
	_, cfgPath := newProject(t)

	out, err := run(t, "analyze", `App\Missing`, "--config", cfgPath, "--format", "json")
	if err == nil {
		t.Fatal("expected error for unknown target")
	}
	if !strings.Contains(err.Error(), "1 of 1 targets failed") {
		t.Errorf("unexpected error %v", err)
	}
	failures, _ := decodeJSON(t, out)["failures"].([]interface{})
	if len(failures) != 1 {
		t.Errorf("expected one failure in output, got:\n%s", out)
	}
}

func TestInferCommand(t *testing.T) {
	_, cfgPath := newProject(t)

	out, err := run(t, "infer", "1 + 2", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	result := decodeJSON(t, out)
	if result["type"] != "int" {
		t.Errorf("expected int, got %v", result["type"])
	}
	if result["expression"] != "1 + 2" {
		t.Errorf("unexpected expression %v", result["expression"])
	}

	if _, err := run(t, "infer", "  ", "--config", cfgPath); err == nil {
		t.Error("expected error for blank expression")
	}
}

func TestCommentCommand(t *testing.T) {
	dir, cfgPath := newProject(t)

	out, err := run(t, "comment", "--text", "/**\n * Load a user.\n * @param int $id\n */", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if decodeJSON(t, out)["summary"] != "Load a user." {
		t.Errorf("unexpected output:\n%s", out)
	}

	path := writeFile(t, dir, "doc.txt", "/** @return list<int> */")
	out, err = run(t, "comment", path, "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("comment file: %v", err)
	}
	if !strings.Contains(out, `"array<int>"`) {
		t.Errorf("expected resolved return type, got:\n%s", out)
	}

	if _, err := run(t, "comment", "--config", cfgPath); err == nil {
		t.Error("expected error without input")
	}
}

func TestIndexFindShow(t *testing.T) {
	dir, cfgPath := newProject(t)
	userPath := writeFile(t, dir, "src/User.php", userSource)

	out, err := run(t, "index", "--config", cfgPath)
	if err != nil {
		t.Fatalf("index: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Indexed 1 of 1 files") {
		t.Errorf("unexpected summary:\n%s", out)
	}

	out, err = run(t, "index", "--config", cfgPath)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if !strings.Contains(out, "Indexed 0 of 1 files") || !strings.Contains(out, "unchanged: 1") {
		t.Errorf("expected unchanged file to be skipped, got:\n%s", out)
	}

	out, err = run(t, "find", "*i*", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if decodeJSON(t, out)["count"] != float64(2) {
		t.Errorf("expected find and hidden, got:\n%s", out)
	}

	out, err = run(t, "find", "*", "--kind", "property", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("find --kind: %v", err)
	}
	if decodeJSON(t, out)["count"] != float64(1) {
		t.Errorf("expected one property, got:\n%s", out)
	}

	if _, err := run(t, "find", "x", "--kind", "trait", "--config", cfgPath); err == nil {
		t.Error("expected error for invalid kind")
	}

	out, err = run(t, "show", `\app\user`, "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("show class: %v", err)
	}
	if !strings.Contains(out, `"(int $id): ?static"`) {
		t.Errorf("expected indexed signature, got:\n%s", out)
	}

	out, err = run(t, "show", `App\money`, "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("show function: %v", err)
	}
	if !strings.Contains(out, `"(int $cents): float"`) {
		t.Errorf("expected function signature, got:\n%s", out)
	}

	out, err = run(t, "show", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("show list: %v", err)
	}
	if decodeJSON(t, out)["count"] != float64(2) {
		t.Errorf("expected class and function listed, got:\n%s", out)
	}

	if _, err := run(t, "show", `App\Nope`, "--config", cfgPath); err == nil {
		t.Error("expected error for unindexed name")
	}

	if err := os.Remove(userPath); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "index", "--config", cfgPath)
	if err != nil {
		t.Fatalf("index after delete: %v", err)
	}
	if !strings.Contains(out, "pruned:    1") {
		t.Errorf("expected deleted file to be pruned, got:\n%s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	dir, cfgPath := newProject(t)
	writeFile(t, dir, "User.php", userSource)

	if _, err := run(t, "index", "--config", cfgPath); err != nil {
		t.Fatalf("index: %v", err)
	}

	out, err := run(t, "status", "--files", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	result := decodeJSON(t, out)
	index, _ := result["index"].(map[string]interface{})
	if index["classes"] != float64(1) || index["functions"] != float64(1) {
		t.Errorf("unexpected index stats %v", index)
	}
	files, _ := result["files"].([]interface{})
	if len(files) != 1 {
		t.Fatalf("expected one file, got %v", result["files"])
	}
	if files[0].(map[string]interface{})["path"] != "User.php" {
		t.Errorf("expected project-relative path, got %v", files[0])
	}
}

func TestIndexPath(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "proj")

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(base, "src", "User.php"), "src/User.php"},
		{base, "."},
		{filepath.Join(string(filepath.Separator), "other", "x.php"), "/other/x.php"},
	}
	for _, tt := range tests {
		if got := indexPath(tt.path, base); got != tt.want {
			t.Errorf("indexPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestUnderPrefix(t *testing.T) {
	tests := []struct {
		path, prefix string
		want         bool
	}{
		{"src/User.php", ".", true},
		{"/abs/User.php", ".", false},
		{"src/User.php", "src", true},
		{"src2/User.php", "src", false},
		{"lib/x.php", "src", false},
	}
	for _, tt := range tests {
		if got := underPrefix(tt.path, tt.prefix); got != tt.want {
			t.Errorf("underPrefix(%q, %q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestParseTools(t *testing.T) {
	got := parseTools(" analyze, ,infer_type,")
	if strings.Join(got, ",") != "analyze,infer_type" {
		t.Errorf("unexpected tools %v", got)
	}
	if parseTools("") != nil {
		t.Error("expected no tools for empty flag")
	}
}

func TestParseDuration(t *testing.T) {
	for _, s := range []string{"", "0"} {
		if d, err := parseDuration(s); err != nil || d != 0 {
			t.Errorf("parseDuration(%q) = %v, %v", s, d, err)
		}
	}
	if d, err := parseDuration("30m"); err != nil || d.Minutes() != 30 {
		t.Errorf("parseDuration(30m) = %v, %v", d, err)
	}
	if _, err := parseDuration("soon"); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestBuildCommandInfo(t *testing.T) {
	info := buildCommandInfo(rootCmd)

	subs := make(map[string]CommandInfo)
	for _, s := range info.Subcommands {
		subs[s.Name] = s
	}
	for _, name := range []string{"analyze", "comment", "infer", "index", "find", "show", "status", "init", "serve"} {
		if _, ok := subs[name]; !ok {
			t.Errorf("missing command %s", name)
		}
	}

	var serveSubs []string
	for _, s := range subs["serve"].Subcommands {
		serveSubs = append(serveSubs, s.Name)
	}
	if joined := strings.Join(serveSubs, ","); !strings.Contains(joined, "mcp") || !strings.Contains(joined, "lsp") {
		t.Errorf("expected mcp and lsp under serve, got %v", serveSubs)
	}
}
