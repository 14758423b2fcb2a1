// Package state provides a SQLite-backed implementation of the host
// contracts. It is the standalone repository used by the CLI and the admin
// server; embedded deployments supply their own host instead.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/pkg/core"
)

// SQLiteHost implements the repository, field registry, template registry
// and instance store contracts over a single SQLite database.
type SQLiteHost struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and runs pending migrations.
// Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteHost, error) {
	dsn := path + "?_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	// The in-memory database lives per connection; a second connection
	// would see an empty schema.
	db.SetMaxOpenConns(1)

	h := &SQLiteHost{db: db, path: path}
	if err := h.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the underlying database.
func (h *SQLiteHost) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// DB exposes the underlying connection for maintenance tooling.
func (h *SQLiteHost) DB() *sql.DB { return h.db }

// SQLRecord is one record row plus its decoded value map.
type SQLRecord struct {
	id       int64
	created  time.Time
	modified time.Time
	values   map[string]any
}

func (r *SQLRecord) ID() int64 { return r.id }

func (r *SQLRecord) Get(name string) any {
	switch name {
	case "id":
		return r.id
	case "created":
		return r.created
	case "modified":
		return r.modified
	}
	return r.values[name]
}

func (r *SQLRecord) Data() map[string]any {
	out := map[string]any{
		"id":       r.id,
		"created":  r.created,
		"modified": r.modified,
	}
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// AddTemplate registers a record template. Re-adding is a no-op.
func (h *SQLiteHost) AddTemplate(name string) error {
	_, err := h.db.Exec(`INSERT INTO templates (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("add template %q: %w", name, err)
	}
	return nil
}

// AddField registers or updates a field definition.
func (h *SQLiteHost) AddField(name, declaredType, label string) error {
	_, err := h.db.Exec(
		`INSERT INTO fields (name, declared_type, label) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET declared_type = excluded.declared_type, label = excluded.label`,
		name, declaredType, label,
	)
	if err != nil {
		return fmt.Errorf("add field %q: %w", name, err)
	}
	return nil
}

// AddRecord inserts a record under the given template and returns its id.
// The created and modified entries of data, when present as time.Time, set
// the record timestamps; all other entries become JSON-encoded values.
func (h *SQLiteHost) AddRecord(template string, data map[string]any) (int64, error) {
	now := time.Now().UTC()
	created, modified := now, now
	if t, ok := data["created"].(time.Time); ok {
		created = t
	}
	if t, ok := data["modified"].(time.Time); ok {
		modified = t
	}

	tx, err := h.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("add record: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO records (template, created, modified) VALUES (?, ?, ?)`,
		template, created.Unix(), modified.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	for name, value := range data {
		if name == "created" || name == "modified" {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return 0, fmt.Errorf("encode value %q: %w", name, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO record_values (record_id, name, value, value_text) VALUES (?, ?, ?, ?)`,
			id, name, string(raw), fmt.Sprint(value),
		); err != nil {
			return 0, fmt.Errorf("insert value %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add record: %w", err)
	}
	return id, nil
}

// HasTemplate implements the template registry.
func (h *SQLiteHost) HasTemplate(name string) bool {
	var one int
	err := h.db.QueryRow(`SELECT 1 FROM templates WHERE name = ?`, name).Scan(&one)
	return err == nil
}

// GetFieldMeta implements the field registry.
func (h *SQLiteHost) GetFieldMeta(name string) (host.FieldMeta, bool) {
	var meta host.FieldMeta
	err := h.db.QueryRow(
		`SELECT declared_type, label FROM fields WHERE name = ?`, name,
	).Scan(&meta.DeclaredType, &meta.Label)
	if err != nil {
		return host.FieldMeta{}, false
	}
	return meta, true
}

// FindRecords implements the repository. The filter is a comma-separated
// list of name=value equality terms matched against the plain string
// rendering of each value.
func (h *SQLiteHost) FindRecords(ctx context.Context, template, filter string, limit, offset int) ([]host.Record, error) {
	query, args := recordQuery(`SELECT id, created, modified FROM records`, template, filter)
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	var out []host.Record
	for rows.Next() {
		var id, createdUnix, modifiedUnix int64
		if err := rows.Scan(&id, &createdUnix, &modifiedUnix); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec := &SQLRecord{
			id:       id,
			created:  time.Unix(createdUnix, 0).UTC(),
			modified: time.Unix(modifiedUnix, 0).UTC(),
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}

	for _, rec := range out {
		r := rec.(*SQLRecord)
		values, err := h.loadValues(ctx, r.id)
		if err != nil {
			return nil, err
		}
		r.values = values
	}
	return out, nil
}

// CountRecords implements the repository.
func (h *SQLiteHost) CountRecords(ctx context.Context, template, filter string) (int, error) {
	query, args := recordQuery(`SELECT COUNT(*) FROM records`, template, filter)
	var n int
	if err := h.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// recordQuery appends the template and filter conditions to a base SELECT.
func recordQuery(base, template, filter string) (string, []any) {
	query := base + ` WHERE template = ?`
	args := []any{template}
	for _, term := range strings.Split(filter, ",") {
		name, want, ok := strings.Cut(strings.TrimSpace(term), "=")
		if !ok {
			continue
		}
		query += ` AND id IN (SELECT record_id FROM record_values WHERE name = ? AND value_text = ?)`
		args = append(args, strings.TrimSpace(name), strings.TrimSpace(want))
	}
	return query, args
}

func (h *SQLiteHost) loadValues(ctx context.Context, recordID int64) (map[string]any, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT name, value FROM record_values WHERE record_id = ?`, recordID)
	if err != nil {
		return nil, fmt.Errorf("load values for record %d: %w", recordID, err)
	}
	defer rows.Close()

	values := make(map[string]any)
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("decode value %q of record %d: %w", name, recordID, err)
		}
		values[name] = v
	}
	return values, rows.Err()
}

// decodeValue parses a stored JSON value, keeping integral numbers as int64.
func decodeValue(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	}
	return v
}

// ListInstances implements the instance store, ordered by name.
func (h *SQLiteHost) ListInstances(ctx context.Context) ([]core.TableInstance, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT name, title, source_template, filter, columns_raw FROM table_instances ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var out []core.TableInstance
	for rows.Next() {
		var inst core.TableInstance
		if err := rows.Scan(&inst.Name, &inst.Title, &inst.SourceTemplate, &inst.Filter, &inst.ColumnsRaw); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// GetInstance implements the instance store.
func (h *SQLiteHost) GetInstance(ctx context.Context, name string) (*core.TableInstance, error) {
	var inst core.TableInstance
	err := h.db.QueryRowContext(ctx,
		`SELECT name, title, source_template, filter, columns_raw FROM table_instances WHERE name = ?`,
		name,
	).Scan(&inst.Name, &inst.Title, &inst.SourceTemplate, &inst.Filter, &inst.ColumnsRaw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table instance %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %q: %w", name, err)
	}
	return &inst, nil
}

// SaveInstance implements the instance store as an upsert keyed by name.
func (h *SQLiteHost) SaveInstance(ctx context.Context, inst *core.TableInstance) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO table_instances (name, title, source_template, filter, columns_raw)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   title = excluded.title,
		   source_template = excluded.source_template,
		   filter = excluded.filter,
		   columns_raw = excluded.columns_raw`,
		inst.Name, inst.Title, inst.SourceTemplate, inst.Filter, inst.ColumnsRaw,
	)
	if err != nil {
		return fmt.Errorf("save instance %q: %w", inst.Name, err)
	}
	return nil
}

// DeleteInstance implements the instance store. Deleting a missing instance
// is not an error.
func (h *SQLiteHost) DeleteInstance(ctx context.Context, name string) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM table_instances WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete instance %q: %w", name, err)
	}
	return nil
}
