// Package analyzer merges syntax, doc-comment and reflection data into one
// declaration record per PHP entity.
//
// A declared type in source always wins. A doc comment type fills in when
// the source has none, and reflection data fills in after that. A field with
// no type from any of the three stays nil rather than becoming mixed, so
// callers can tell an unknown type from an explicit one.
package analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"

	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/docblock"
	"github.com/hargabyte/apishape/internal/exclude"
	"github.com/hargabyte/apishape/internal/extract"
	"github.com/hargabyte/apishape/internal/infer"
	"github.com/hargabyte/apishape/internal/introspect"
	"github.com/hargabyte/apishape/internal/parser"
	"github.com/hargabyte/apishape/internal/types"
)

// Result is the outcome of analyzing one target. File is set for file
// targets and for entities whose source file could be read; Class is set
// for entity targets.
type Result struct {
	Target string      `json:"target" yaml:"target"`
	Class  *decl.Class `json:"class,omitempty" yaml:"class,omitempty"`
	File   *decl.File  `json:"file,omitempty" yaml:"file,omitempty"`
}

// Errors returns the syntax errors of the analyzed source, if any.
func (r *Result) Errors() []*parser.ParseError {
	if r == nil || r.File == nil {
		return nil
	}
	return r.File.Errors
}

// Analyzer is the entry point for analysis. It owns the parser, the
// inference engine, the reflection adapter and the result caches; all of
// them live until ClearCache or Close.
//
// An Analyzer may be shared between goroutines. Analyses are serialized.
type Analyzer struct {
	mu sync.Mutex

	parser  *parser.Parser
	engine  *infer.Engine
	adapter *introspect.Adapter
	merger  *merger
	log     commonlog.Logger

	builtins   map[string]string
	extensions []string
	excludes   []string
	baseDir    string
	host       introspect.Host

	files   map[string]*Result
	classes map[string]*Result
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithHost sets the reflection host. The default is introspect.NoHost.
func WithHost(host introspect.Host) Option {
	return func(a *Analyzer) { a.host = host }
}

// WithLogger sets the logger.
func WithLogger(log commonlog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithBuiltins adds builtin function result types to the inference engine.
func WithBuiltins(builtins map[string]string) Option {
	return func(a *Analyzer) { a.builtins = builtins }
}

// WithExtensions sets the file extensions AnalyzeDir considers PHP.
func WithExtensions(exts ...string) Option {
	return func(a *Analyzer) { a.extensions = exts }
}

// WithExclude sets glob patterns AnalyzeDir skips, relative to its root.
func WithExclude(patterns ...string) Option {
	return func(a *Analyzer) { a.excludes = patterns }
}

// WithBaseDir resolves relative source file names reported by the host
// against dir.
func WithBaseDir(dir string) Option {
	return func(a *Analyzer) { a.baseDir = dir }
}

// New creates an analyzer.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		log:        commonlog.GetLogger("apishape.analyzer"),
		extensions: parser.Extensions(),
		host:       introspect.NoHost{},
		files:      make(map[string]*Result),
		classes:    make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(a)
	}

	p, err := parser.NewParser()
	if err != nil {
		return nil, fmt.Errorf("creating parser: %w", err)
	}
	a.parser = p
	a.engine = infer.New(infer.WithBuiltins(a.builtins))
	a.adapter = introspect.NewAdapter(a.host)
	a.merger = &merger{docs: docblock.NewParser()}

	return a, nil
}

// Close releases the parser.
func (a *Analyzer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parser.Close()
}

// Analyze analyzes a file path or an entity name known to the host. A
// readable file is always treated as a file target. Failures are returned
// as *AnalysisError.
func (a *Analyzer) Analyze(target string) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return nil, &AnalysisError{Target: target, Stage: StageResolve, Err: fmt.Errorf("%s is a directory", target)}
		}
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, &AnalysisError{Target: target, Stage: StageResolve, Err: err}
		}
		return a.analyzeFile(abs)
	}

	if a.adapter.Knows(target) {
		return a.analyzeEntity(target)
	}

	var cause error = &introspect.NotFoundError{Name: target}
	if looksLikePath(target, a.extensions) {
		cause = &parser.FileReadError{Path: target, Err: fs.ErrNotExist}
	}
	a.log.Debugf("unresolved target %s", target)
	return nil, &AnalysisError{Target: target, Stage: StageResolve, Err: cause}
}

// AnalyzeDir analyzes every PHP file below root. A failing file does not
// stop the scan; its error is collected and the walk continues. Results are
// ordered by path.
func (a *Analyzer) AnalyzeDir(root string) ([]*Result, []error) {
	paths, errs := a.SourceFiles(root)

	results := make([]*Result, 0, len(paths))
	for _, path := range paths {
		r, err := a.Analyze(path)
		if err != nil {
			a.log.Warningf("%v", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}
	return results, errs
}

// SourceFiles lists the PHP files below root that AnalyzeDir would analyze,
// sorted. Configured and auto-detected exclusions apply.
func (a *Analyzer) SourceFiles(root string) ([]string, []error) {
	auto := exclude.DetectAutoExcludes(root)
	matcher := exclude.NewMatcher(append(append([]string(nil), a.excludes...), auto.Patterns()...)...)

	var (
		paths []string
		errs  []error
	)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path != root && matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(rel, false) || !parser.IsPHPFile(path, a.extensions...) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	sort.Strings(paths)
	return paths, errs
}

// InferType infers the type of an expression or type node. Callers holding
// their own syntax trees use this directly.
func (a *Analyzer) InferType(node *sitter.Node, src []byte) *types.Type {
	return a.engine.Infer(node, src)
}

// InferExpression parses a single PHP expression and infers its type. The
// syntax errors of the snippet are returned alongside the type.
func (a *Analyzer) InferExpression(expr string) (*types.Type, []*parser.ParseError, error) {
	expr = strings.TrimSuffix(strings.TrimSpace(expr), ";")
	if expr == "" {
		return nil, nil, errors.New("empty expression")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	src := []byte("<?php " + expr + ";")
	result, err := a.parser.Parse(src)
	if err != nil {
		return nil, nil, err
	}
	defer result.Close()

	stmts := result.FindNodesByType("expression_statement")
	if len(stmts) == 0 || stmts[0].NamedChildCount() == 0 {
		return nil, result.Errors, fmt.Errorf("no expression in %q", expr)
	}
	return a.engine.Infer(stmts[0].NamedChild(0), src).Clone(), result.Errors, nil
}

// ParseComment parses a doc comment with the analyzer's tag grammars.
func (a *Analyzer) ParseComment(text string) *docblock.Comment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.merger.docs.Parse(text)
}

// RegisterTag adds a doc comment tag grammar used by ParseComment and by
// later analyses.
func (a *Analyzer) RegisterTag(name string, fn docblock.TagFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merger.docs.Register(name, fn)
}

// ClearCache drops every cached result, the reflection cache and the
// inference memo.
func (a *Analyzer) ClearCache() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.files = make(map[string]*Result)
	a.classes = make(map[string]*Result)
	a.adapter.ClearCache()
	a.engine.ClearCache()
	a.parser.ClearErrors()
	a.log.Debug("caches cleared")
}

// Invalidate drops the cached results for one file and the entities it
// declared. Reflection data is kept.
func (a *Analyzer) Invalidate(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	delete(a.files, abs)
	for key, r := range a.classes {
		if r.File != nil && r.File.Path == abs {
			delete(a.classes, key)
		}
	}
	a.engine.ClearCache()
}

// AnalyzeSource analyzes src as the current content of the file at path,
// such as an unsaved editor buffer. The file need not exist and the result
// is not cached.
func (a *Analyzer) AnalyzeSource(path string, src []byte) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return a.buildFile(abs, func() (*decl.File, error) {
		return extract.WalkSource(a.parser, a.engine, abs, src)
	})
}

func (a *Analyzer) analyzeFile(abs string) (*Result, error) {
	if r, ok := a.files[abs]; ok {
		return r, nil
	}

	r, err := a.buildFile(abs, func() (*decl.File, error) {
		return extract.WalkFile(a.parser, a.engine, abs)
	})
	if err != nil {
		return nil, err
	}
	a.files[abs] = r
	return r, nil
}

// buildFile walks one file with walk and merges every declaration in it.
func (a *Analyzer) buildFile(abs string, walk func() (*decl.File, error)) (*Result, error) {
	var file *decl.File
	err := guard(abs, StageParse, func() error {
		f, err := walk()
		if err != nil {
			return err
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.parser.ClearErrors()

	merged := decl.NewFile(file.Path)
	merged.Namespace = file.Namespace
	merged.Errors = file.Errors

	err = guard(abs, StageMerge, func() error {
		for name, class := range file.Classes {
			var refl *decl.Class
			if a.adapter.Knows(name) {
				c, err := a.adapter.Introspect(name)
				if err != nil {
					return err
				}
				refl = c
			}
			merged.Classes[name] = a.merger.mergeClass(class, refl)
		}
		for name, fn := range file.Functions {
			merged.Functions[name] = a.merger.mergeFunction(fn, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if merged.HasErrors() {
		a.log.Warningf("%s: %d syntax errors", abs, len(merged.Errors))
	}
	a.log.Debugf("analyzed %s: %d classes, %d functions", abs, len(merged.Classes), len(merged.Functions))

	return &Result{Target: abs, File: merged}, nil
}

func (a *Analyzer) analyzeEntity(name string) (*Result, error) {
	key := cacheKey(name)
	if r, ok := a.classes[key]; ok {
		return r, nil
	}

	var (
		info *introspect.EntityInfo
		refl *decl.Class
	)
	err := guard(name, StageIntrospect, func() error {
		var err error
		if info, err = a.adapter.Info(name); err != nil {
			return err
		}
		refl, err = a.adapter.Introspect(name)
		return err
	})
	if err != nil {
		return nil, err
	}

	r := &Result{Target: name}
	if src := a.sourcePath(info.FileName); src != "" {
		fr, err := a.analyzeFile(src)
		switch {
		case err != nil:
			a.log.Warningf("source of %s unavailable: %v", name, err)
		default:
			r.File = fr.File
			r.Class = lookupClass(fr.File, refl.Name)
		}
	}

	if r.Class == nil {
		err := guard(name, StageMerge, func() error {
			r.Class = a.merger.mergeClass(nil, refl)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	a.classes[key] = r
	return r, nil
}

// sourcePath resolves a host-reported file name to a readable path, or ""
// when there is none.
func (a *Analyzer) sourcePath(name string) string {
	if name == "" {
		return ""
	}
	if !filepath.IsAbs(name) && a.baseDir != "" {
		name = filepath.Join(a.baseDir, name)
	}
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		return ""
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return ""
	}
	return abs
}

func lookupClass(file *decl.File, name string) *decl.Class {
	if c, ok := file.Classes[name]; ok {
		return c
	}
	for k, c := range file.Classes {
		if cacheKey(k) == cacheKey(name) {
			return c
		}
	}
	return nil
}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), `\`))
}

func looksLikePath(target string, extensions []string) bool {
	return strings.ContainsRune(target, '/') || parser.IsPHPFile(target, extensions...)
}

// IsNotFound reports whether err means the target was neither a readable
// file nor an entity known to the host.
func IsNotFound(err error) bool {
	var nf *introspect.NotFoundError
	var fr *parser.FileReadError
	return errors.As(err, &nf) || errors.As(err, &fr)
}
