package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/output"
)

// SaveFile replaces everything indexed for f.Path with the declarations in
// f and records hash as the file's scan state. It runs in one transaction.
func (s *Store) SaveFile(f *decl.File, hash string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := deleteFile(tx, f.Path); err != nil {
		tx.Rollback()
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, name := range f.ClassNames() {
		if err := insertClass(tx, f.Classes[name], f.Path, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, fn := range f.Functions {
		if err := insertFunction(tx, fn, f.Path, now); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := setFileScanned(tx, f.Path, hash); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteFile removes a file and every declaration it contributed.
func (s *Store) DeleteFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := deleteFile(tx, path); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM file_index WHERE file_path = ?", path); err != nil {
		tx.Rollback()
		return fmt.Errorf("delete file entry %s: %w", path, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func deleteFile(tx *sql.Tx, path string) error {
	_, err := tx.Exec(`
		DELETE FROM members WHERE owner_key IN (
			SELECT decl_key FROM declarations WHERE file_path = ? AND entity_type = ?)`,
		path, EntityClass)
	if err != nil {
		return fmt.Errorf("delete members %s: %w", path, err)
	}
	if _, err := tx.Exec("DELETE FROM declarations WHERE file_path = ?", path); err != nil {
		return fmt.Errorf("delete declarations %s: %w", path, err)
	}
	return nil
}

func insertClass(tx *sql.Tx, c *decl.Class, path, now string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode class %s: %w", c.Name, err)
	}

	key := Key(c.Name)
	if _, err := tx.Exec("DELETE FROM members WHERE owner_key = ?", key); err != nil {
		return fmt.Errorf("delete members %s: %w", c.Name, err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO declarations (decl_key, name, entity_type, kind, file_path,
			line_start, line_end, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, c.Name, EntityClass, string(c.Kind), path, c.StartLine, c.EndLine, string(data), now)
	if err != nil {
		return fmt.Errorf("insert class %s: %w", c.Name, err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO members (owner_key, member_kind, name, visibility, signature)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for name, m := range c.Methods {
		if _, err := stmt.Exec(key, MemberMethod, name, string(m.Visibility), output.Signature(m)); err != nil {
			return fmt.Errorf("insert method %s::%s: %w", c.Name, name, err)
		}
	}
	for name, p := range c.Properties {
		if _, err := stmt.Exec(key, MemberProperty, name, string(p.Visibility), p.Type.String()); err != nil {
			return fmt.Errorf("insert property %s::%s: %w", c.Name, name, err)
		}
	}
	for name, k := range c.Constants {
		if _, err := stmt.Exec(key, MemberConstant, name, string(k.Visibility), k.Type.String()); err != nil {
			return fmt.Errorf("insert constant %s::%s: %w", c.Name, name, err)
		}
	}
	return nil
}

func insertFunction(tx *sql.Tx, fn *decl.Function, path, now string) error {
	data, err := json.Marshal(fn)
	if err != nil {
		return fmt.Errorf("encode function %s: %w", fn.Name, err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO declarations (decl_key, name, entity_type, kind, file_path,
			line_start, line_end, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		Key(fn.Name), fn.Name, EntityFunction, "", path, fn.StartLine, fn.EndLine, string(data), now)
	if err != nil {
		return fmt.Errorf("insert function %s: %w", fn.Name, err)
	}
	return nil
}

// GetClass loads an indexed class by name. Lookup is case-insensitive and
// ignores a leading namespace separator.
func (s *Store) GetClass(name string) (*decl.Class, error) {
	data, err := s.payload(name, EntityClass)
	if err != nil {
		return nil, err
	}
	c := decl.NewClass("", "")
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode class %s: %w", name, err)
	}
	return c, nil
}

// GetFunction loads an indexed free function by name.
func (s *Store) GetFunction(name string) (*decl.Function, error) {
	data, err := s.payload(name, EntityFunction)
	if err != nil {
		return nil, err
	}
	var fn decl.Function
	if err := json.Unmarshal(data, &fn); err != nil {
		return nil, fmt.Errorf("decode function %s: %w", name, err)
	}
	return &fn, nil
}

func (s *Store) payload(name, entityType string) ([]byte, error) {
	var data string
	err := s.db.QueryRow(`
		SELECT data FROM declarations WHERE decl_key = ? AND entity_type = ?`,
		Key(name), entityType).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", entityType, name, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s %s: %w", entityType, name, err)
	}
	return []byte(data), nil
}

// ListDeclarations returns indexed declarations ordered by name. An empty
// entityType lists both classes and functions.
func (s *Store) ListDeclarations(entityType string) ([]*Declaration, error) {
	query := `SELECT name, entity_type, kind, file_path, line_start, line_end FROM declarations`
	var args []any
	if entityType != "" {
		query += " WHERE entity_type = ?"
		args = append(args, entityType)
	}
	query += " ORDER BY name"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	var result []*Declaration
	for rows.Next() {
		var d Declaration
		var kind sql.NullString
		var start, end sql.NullInt64
		if err := rows.Scan(&d.Name, &d.EntityType, &kind, &d.FilePath, &start, &end); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		d.Kind = kind.String
		d.LineStart = int(start.Int64)
		d.LineEnd = int(end.Int64)
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// FindMembers returns members whose name matches pattern. A '*' in the
// pattern matches any run of characters; matching ignores ASCII case.
func (s *Store) FindMembers(pattern string) ([]*Member, error) {
	like := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`, "*", "%").Replace(pattern)

	rows, err := s.db.Query(`
		SELECT d.name, m.member_kind, m.name, m.visibility, m.signature
		FROM members m JOIN declarations d ON d.decl_key = m.owner_key
		WHERE m.name LIKE ? ESCAPE '\'
		ORDER BY d.name, m.member_kind, m.name`, like)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var result []*Member
	for rows.Next() {
		var m Member
		var vis, sig sql.NullString
		if err := rows.Scan(&m.Owner, &m.Kind, &m.Name, &vis, &sig); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		m.Visibility = vis.String
		m.Signature = sig.String
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// Key normalizes a declaration name for lookup.
func Key(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, `\`))
}
