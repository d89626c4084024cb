package analyzer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hargabyte/apishape/internal/docblock"
	"github.com/hargabyte/apishape/internal/introspect"
	"github.com/hargabyte/apishape/internal/parser"
	"github.com/hargabyte/apishape/internal/types"
)

const invoiceSource = `<?php
namespace App;

/**
 * An invoice.
 *
 * @property string $nickname
 * @property-read int $version
 */
class Invoice
{
    /** @var int */
    public $total;

    /** @var int */
    public string $label;

    public $untyped;

    /**
     * @param int $x
     * @param string $y
     * @return array<int>
     */
    public function compute(string $x, $y, $z)
    {
        return [$x];
    }

    /**
     * @return int
     */
    public function declared(): float
    {
        return 1.0;
    }

    /**
     * @param int $id
     */
    public function __construct(private $id, public ?string $code = null)
    {
    }
}

/**
 * @return int
 */
function helper($a, $b)
{
    return $a + $b;
}
`

func writePHP(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestAnalyzeFilePrecedence(t *testing.T) {
	path := writePHP(t, t.TempDir(), "Invoice.php", invoiceSource)
	a := newAnalyzer(t)

	r, err := a.Analyze(path)
	require.NoError(t, err)
	require.NotNil(t, r.File)
	assert.Empty(t, r.Errors())

	invoice := r.File.Classes[`App\Invoice`]
	require.NotNil(t, invoice)

	compute := invoice.Methods["compute"]
	require.NotNil(t, compute)
	assert.True(t, types.Equal(types.String(), compute.Parameter("x").Type), "syntax wins over comment")
	assert.True(t, types.Equal(types.String(), compute.Parameter("y").Type), "comment fills a missing type")
	assert.Nil(t, compute.Parameter("z").Type, "no source leaves the type unset")
	assert.True(t, types.Equal(types.ArrayOf(nil, types.Int()), compute.ReturnType))

	assert.True(t, types.Equal(types.Float(), invoice.Methods["declared"].ReturnType))

	assert.True(t, types.Equal(types.Int(), invoice.Properties["total"].Type))
	assert.True(t, types.Equal(types.String(), invoice.Properties["label"].Type))
	assert.Nil(t, invoice.Properties["untyped"].Type)

	// Promoted property typed from the constructor's @param.
	assert.True(t, types.Equal(types.Int(), invoice.Properties["id"].Type))
	assert.True(t, types.Equal(types.String().WithNullable(true), invoice.Properties["code"].Type))

	nickname := invoice.Properties["nickname"]
	require.NotNil(t, nickname, "@property tags declare magic properties")
	assert.True(t, types.Equal(types.String(), nickname.Type))
	assert.True(t, invoice.Properties["version"].Readonly)

	helper := r.File.Functions[`App\helper`]
	require.NotNil(t, helper)
	assert.True(t, types.Equal(types.Int(), helper.ReturnType))
	assert.Nil(t, helper.Parameter("a").Type)
}

func invoiceRegistry(path string) *introspect.Registry {
	return introspect.NewRegistry(
		&introspect.EntityInfo{
			Name:     `App\Invoice`,
			FileName: path,
			Kind:     "class",
			Methods: []introspect.MethodInfo{
				{
					Name: "compute",
					Params: []introspect.ParamInfo{
						{Name: "x", Type: &introspect.TypeInfo{Name: "int"}},
						{Name: "y", Type: &introspect.TypeInfo{Name: "int"}},
						{Name: "z", Type: &introspect.TypeInfo{Name: "bool"}},
					},
					ReturnType: &introspect.TypeInfo{Name: "array"},
				},
				{
					Name:       "fromRuntime",
					Static:     true,
					ReturnType: &introspect.TypeInfo{Name: "static"},
				},
			},
			Properties: []introspect.PropertyInfo{
				{Name: "total", Type: &introspect.TypeInfo{Name: "string"}},
				{Name: "untyped", Type: &introspect.TypeInfo{Name: "float"}},
				{Name: "dynamic", Visibility: "protected", Type: &introspect.TypeInfo{Name: "bool"}},
			},
		},
		&introspect.EntityInfo{
			Name: `Vendor\Lib`,
			Kind: "interface",
			Methods: []introspect.MethodInfo{
				{
					Name:       "version",
					ReturnType: &introspect.TypeInfo{Name: "int"},
					DocComment: "/** @return string */",
				},
				{
					Name:       "name",
					DocComment: "/** @return string */",
				},
				{
					Name:       "count",
					ReturnType: &introspect.TypeInfo{Name: "int"},
				},
			},
		},
	)
}

func TestAnalyzeEntityMergesReflection(t *testing.T) {
	path := writePHP(t, t.TempDir(), "Invoice.php", invoiceSource)
	a := newAnalyzer(t, WithHost(invoiceRegistry(path)))

	r, err := a.Analyze(`App\Invoice`)
	require.NoError(t, err)
	require.NotNil(t, r.Class)
	require.NotNil(t, r.File, "readable source is walked")

	class := r.Class
	compute := class.Methods["compute"]
	assert.True(t, types.Equal(types.String(), compute.Parameter("x").Type), "syntax beats reflection")
	assert.True(t, types.Equal(types.String(), compute.Parameter("y").Type), "comment beats reflection")
	assert.True(t, types.Equal(types.Bool(), compute.Parameter("z").Type), "reflection fills the rest")
	assert.True(t, types.Equal(types.ArrayOf(nil, types.Int()), compute.ReturnType))

	assert.True(t, types.Equal(types.Int(), class.Properties["total"].Type))
	assert.True(t, types.Equal(types.Float(), class.Properties["untyped"].Type))

	// Member sets are the union of source and reflection.
	require.Contains(t, class.Methods, "fromRuntime")
	assert.True(t, class.Methods["fromRuntime"].Modifiers.Static)
	assert.Equal(t, `App\Invoice`, class.Methods["fromRuntime"].Class)
	require.Contains(t, class.Properties, "dynamic")
	assert.True(t, types.Equal(types.Bool(), class.Properties["dynamic"].Type))
	assert.Contains(t, class.Methods, "declared")

	// The file result carries the same merged class.
	fileResult, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Same(t, class, fileResult.File.Classes[`App\Invoice`])
}

func TestAnalyzeReflectionOnly(t *testing.T) {
	a := newAnalyzer(t, WithHost(invoiceRegistry("")))

	r, err := a.Analyze(`\vendor\lib`)
	require.NoError(t, err)
	require.NotNil(t, r.Class)
	assert.Nil(t, r.File)

	lib := r.Class
	assert.Equal(t, `Vendor\Lib`, lib.Name)
	assert.EqualValues(t, "interface", lib.Kind)
	assert.True(t, types.Equal(types.String(), lib.Methods["version"].ReturnType), "comment beats reflection")
	assert.True(t, types.Equal(types.String(), lib.Methods["name"].ReturnType))
	assert.True(t, types.Equal(types.Int(), lib.Methods["count"].ReturnType))
}

func TestAnalyzeSyntaxErrors(t *testing.T) {
	path := writePHP(t, t.TempDir(), "Broken.php", "<?php\nclass Broken {\n    public function bad( {\n}\n")
	a := newAnalyzer(t)

	r, err := a.Analyze(path)
	require.NoError(t, err, "syntax errors are data, not failures")
	assert.NotEmpty(t, r.Errors())
}

func TestAnalyzeNotFound(t *testing.T) {
	a := newAnalyzer(t)

	_, err := a.Analyze(filepath.Join(t.TempDir(), "missing", "File.php"))
	require.Error(t, err)
	var ae *AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, StageResolve, ae.Stage)
	var readErr *parser.FileReadError
	assert.True(t, errors.As(err, &readErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.True(t, IsNotFound(err))

	_, err = a.Analyze(`No\Such\Entity`)
	var nf *introspect.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, `No\Such\Entity`, nf.Name)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), `No\Such\Entity`)

	_, err = a.Analyze(t.TempDir())
	require.True(t, errors.As(err, &ae))
	assert.False(t, IsNotFound(err))
}

func TestAnalyzeCaching(t *testing.T) {
	dir := t.TempDir()
	path := writePHP(t, dir, "A.php", "<?php class A { public function one(): int { return 1; } }")
	a := newAnalyzer(t)

	first, err := a.Analyze(path)
	require.NoError(t, err)
	second, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	writePHP(t, dir, "A.php", "<?php class A { public function two(): string { return ''; } }")

	cached, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Same(t, first, cached, "caches are only dropped explicitly")

	a.ClearCache()
	fresh, err := a.Analyze(path)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Contains(t, fresh.File.Classes["A"].Methods, "two")
	assert.NotContains(t, fresh.File.Classes["A"].Methods, "one")
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := writePHP(t, dir, "A.php", "<?php class A {}")
	a := newAnalyzer(t)

	first, err := a.Analyze(path)
	require.NoError(t, err)

	writePHP(t, dir, "A.php", "<?php class B {}")
	a.Invalidate(path)

	fresh, err := a.Analyze(path)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Contains(t, fresh.File.Classes, "B")
}

func TestAnalyzeSource(t *testing.T) {
	dir := t.TempDir()
	path := writePHP(t, dir, "A.php", "<?php class A { public function one(): int { return 1; } }")
	a := newAnalyzer(t)

	onDisk, err := a.Analyze(path)
	require.NoError(t, err)

	buffer := []byte("<?php class A {\n    /** @return list<string> */\n    public function two() {}\n}\n")
	r, err := a.AnalyzeSource(path, buffer)
	require.NoError(t, err)
	require.Contains(t, r.File.Classes, "A")
	methods := r.File.Classes["A"].Methods
	assert.NotContains(t, methods, "one")
	require.Contains(t, methods, "two")
	assert.Equal(t, "array<string>", methods["two"].ReturnType.String())

	cached, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Same(t, onDisk, cached, "buffer results do not replace the file cache")

	unsaved, err := a.AnalyzeSource(filepath.Join(dir, "New.php"), []byte("<?php function f(): bool {}"))
	require.NoError(t, err)
	assert.Contains(t, unsaved.File.Functions, "f")

	broken, err := a.AnalyzeSource(path, []byte("<?php class A { public function ( }"))
	require.NoError(t, err)
	assert.NotEmpty(t, broken.Errors())
}

func TestAnalyzeDir(t *testing.T) {
	dir := t.TempDir()
	writePHP(t, dir, "src/Models/User.php", "<?php namespace App\\Models; class User {}")
	writePHP(t, dir, "src/Http/routes.php", "<?php function route(): void {}")
	writePHP(t, dir, "src/Broken.php", "<?php class {")
	writePHP(t, dir, "src/README.md", "# not php")
	writePHP(t, dir, "composer.json", `{"name": "acme/app"}`)
	writePHP(t, dir, "vendor/autoload.php", "<?php")
	writePHP(t, dir, "vendor/acme/lib/Lib.php", "<?php class Lib {}")
	writePHP(t, dir, "tests/fixtures/Fixture.php", "<?php class Fixture {}")

	a := newAnalyzer(t, WithExclude("tests/**"))

	results, errs := a.AnalyzeDir(dir)
	assert.Empty(t, errs)
	require.Len(t, results, 3)

	var paths []string
	for _, r := range results {
		rel, err := filepath.Rel(dir, r.File.Path)
		require.NoError(t, err)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"src/Broken.php", "src/Http/routes.php", "src/Models/User.php"}, paths)
	assert.NotEmpty(t, results[0].Errors())
}

func TestSourceFiles(t *testing.T) {
	dir := t.TempDir()
	writePHP(t, dir, "b.php", "<?php")
	writePHP(t, dir, "a.inc", "<?php")
	writePHP(t, dir, "vendor/x.php", "<?php")
	writePHP(t, dir, "notes.txt", "")

	a := newAnalyzer(t, WithExtensions(".php", ".inc"), WithExclude("vendor/**"))
	paths, errs := a.SourceFiles(dir)
	assert.Empty(t, errs)
	assert.Equal(t, []string{filepath.Join(dir, "a.inc"), filepath.Join(dir, "b.php")}, paths)
}

func TestInferTypeAndParseComment(t *testing.T) {
	a := newAnalyzer(t, WithBuiltins(map[string]string{"money": "float"}))

	p, err := parser.NewParser()
	require.NoError(t, err)
	defer p.Close()

	src := []byte("<?php money(1) + 2;")
	result, err := p.Parse(src)
	require.NoError(t, err)
	defer result.Close()

	sums := result.FindNodesByType("binary_expression")
	require.Len(t, sums, 1)
	assert.True(t, types.Equal(types.Float(), a.InferType(sums[0], src)))

	c := a.ParseComment("/**\n * Find a user.\n *\n * @param int $id the identifier\n */")
	assert.Equal(t, "Find a user.", c.Summary)
	tag, ok := c.Param("id")
	require.True(t, ok)
	assert.Equal(t, "int", tag.TypeExpr)
	assert.Equal(t, "the identifier", tag.Description)
}

func TestInferExpression(t *testing.T) {
	a := newAnalyzer(t, WithBuiltins(map[string]string{"money": "float"}))

	typ, errs, err := a.InferExpression("money(1) + 2;")
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.True(t, types.Equal(types.Float(), typ), "got %s", typ)

	typ, _, err = a.InferExpression(`"id-" . 5`)
	require.NoError(t, err)
	assert.True(t, types.Equal(types.String(), typ), "got %s", typ)

	_, _, err = a.InferExpression("   ")
	assert.Error(t, err)
}

func TestRegisterTag(t *testing.T) {
	a := newAnalyzer(t)
	a.RegisterTag("route", func(tag *docblock.Tag) bool {
		tag.Description = strings.ToUpper(strings.TrimSpace(tag.Raw))
		return true
	})

	c := a.ParseComment("/** @route get /users */")
	tags := c.Tagged("route")
	require.Len(t, tags, 1)
	assert.True(t, tags[0].Parsed)
	assert.Equal(t, "GET /USERS", tags[0].Description)
}

func TestGuardRecoversPanics(t *testing.T) {
	err := guard("target", StageMerge, func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})

	var ae *AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, StageMerge, ae.Stage)
	assert.Contains(t, ae.Error(), "panic")
}
