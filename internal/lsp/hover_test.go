package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hargabyte/apishape/internal/analyzer"
	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/types"
)

const invoiceSource = `<?php
namespace App;

final class Invoice extends Document
{
    public const PREFIX = 'INV';

    /** @var list<string> */
    public $lines = [];

    private static int $count = 0;

    /** @return static */
    public static function make(int $id) {}
}

function total(float ...$amounts): float {}
`

func TestWordAt(t *testing.T) {
	content := []byte("<?php\n$this->email = $count;\nnew \\App\\User();\n")

	tests := []struct {
		name       string
		line, char int
		want       string
	}{
		{"property access", 1, 9, "email"},
		{"variable", 1, 18, "$count"},
		{"cursor at name start", 1, 16, "$count"},
		{"qualified name", 2, 8, `\App\User`},
		{"punctuation", 2, 14, ""},
		{"line out of range", 9, 0, ""},
		{"char out of range", 1, 99, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WordAt(content, tt.line, tt.char))
		})
	}
}

func TestDescribeInFile(t *testing.T) {
	f := decl.NewFile("User.php")
	f.Namespace = "App"

	c := decl.NewClass(`App\User`, decl.KindClass)
	c.Modifiers.Final = true
	c.Parent = `App\Model`
	c.Methods["find"] = &decl.Method{
		Name:       "find",
		Class:      c.Name,
		Visibility: decl.Public,
		Modifiers:  decl.Modifiers{Static: true},
		Parameters: []*decl.Parameter{{Name: "id", Type: types.Int()}},
		ReturnType: types.Named("static").WithNullable(true),
	}
	c.Properties["email"] = &decl.Property{Name: "email", Visibility: decl.Public, Type: types.String()}
	c.Properties["token"] = &decl.Property{Name: "token", Visibility: decl.Private, Readonly: true, Type: types.String()}
	c.Constants["TABLE"] = &decl.Constant{Name: "TABLE", Visibility: decl.Public, Type: types.String(), Value: "'users'"}
	f.Classes[c.Name] = c

	f.Functions[`App\helper`] = &decl.Function{Name: `App\helper`, ReturnType: types.Bool()}

	t.Run("class by short name", func(t *testing.T) {
		got := describeInFile(f, "User")
		assert.Contains(t, got, `final class App\User extends App\Model`)
		assert.Contains(t, got, "string $email")
		assert.Contains(t, got, "find(int $id): ?static")
		assert.NotContains(t, got, "token")
	})

	t.Run("class by qualified name", func(t *testing.T) {
		assert.Contains(t, describeInFile(f, `\App\User`), `class App\User`)
	})

	t.Run("method is case-insensitive", func(t *testing.T) {
		assert.Equal(t, "```php\npublic static function User::find(int $id): ?static\n```", describeInFile(f, "FIND"))
	})

	t.Run("property with dollar", func(t *testing.T) {
		assert.Equal(t, "```php\nprivate readonly string User::$token\n```", describeInFile(f, "$token"))
	})

	t.Run("dollar never matches a method", func(t *testing.T) {
		assert.Empty(t, describeInFile(f, "$find"))
	})

	t.Run("constant", func(t *testing.T) {
		assert.Equal(t, "```php\nconst string User::TABLE = 'users'\n```", describeInFile(f, "TABLE"))
	})

	t.Run("function", func(t *testing.T) {
		assert.Equal(t, "```php\nfunction App\\helper(): bool\n```", describeInFile(f, "helper"))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, describeInFile(f, "Nope"))
		assert.Empty(t, describeInFile(nil, "User"))
	})
}

func TestServerDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Invoice.php")
	require.NoError(t, os.WriteFile(path, []byte(invoiceSource), 0644))

	a, err := analyzer.New()
	require.NoError(t, err)
	defer a.Close()

	ls := NewServer(a, "test")

	t.Run("class", func(t *testing.T) {
		got := ls.Describe(path, "Invoice")
		assert.Contains(t, got, `final class App\Invoice extends`)
		assert.Contains(t, got, "make(int $id): static")
		assert.Contains(t, got, "array<string> $lines")
		assert.NotContains(t, got, "$count")
	})

	t.Run("static property", func(t *testing.T) {
		assert.Contains(t, ls.Describe(path, "$count"), "private static int Invoice::$count")
	})

	t.Run("method", func(t *testing.T) {
		assert.Contains(t, ls.Describe(path, "make"), "public static function Invoice::make(int $id): static")
	})

	t.Run("constant", func(t *testing.T) {
		got := ls.Describe(path, "PREFIX")
		assert.Contains(t, got, "Invoice::PREFIX")
		assert.Contains(t, got, "'INV'")
	})

	t.Run("function", func(t *testing.T) {
		assert.Contains(t, ls.Describe(path, "total"), `function App\total(float ...$amounts): float`)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Empty(t, ls.Describe(path, "Nope"))
		assert.Empty(t, ls.Describe(path, "$nope"))
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Empty(t, ls.Describe(filepath.Join(t.TempDir(), "gone.php"), "Invoice"))
	})
}

func TestServerDescribeUsesBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Invoice.php")
	require.NoError(t, os.WriteFile(path, []byte(invoiceSource), 0644))

	a, err := analyzer.New()
	require.NoError(t, err)
	defer a.Close()

	ls := NewServer(a, "test")
	assert.Contains(t, ls.Describe(path, "make"), "make(int $id): static")

	edited := strings.Replace(invoiceSource, "make(int $id)", "make(string $code): self", 1)
	ls.setDocument(path, []byte(edited))
	got := ls.Describe(path, "make")
	assert.Contains(t, got, "make(string $code): self")
	assert.NotContains(t, got, "int $id")

	unsaved := filepath.Join(filepath.Dir(path), "Draft.php")
	ls.setDocument(unsaved, []byte("<?php\nfunction draft(): int {}\n"))
	assert.Contains(t, ls.Describe(unsaved, "draft"), "function draft(): int")
}

func TestURIToPath(t *testing.T) {
	got, err := uriToPath("file:///tmp/src/App%20Dir/User.php")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/src/App Dir/User.php", got)

	got, err = uriToPath("/plain/path.php")
	require.NoError(t, err)
	assert.Equal(t, "/plain/path.php", got)
}
