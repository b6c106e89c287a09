// Package tracking implements the append-only provenance trail: flat CSV
// tables for experiments, datasets, models, results, and optimizer-best
// rows, with stable identifiers and equality-filter scans.
package tracking

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Table is one flat CSV file with a fixed column set. Appends are single
// whole-line writes under an advisory file lock, so concurrent orchestrator
// processes sharing a tracking directory interleave rows without tearing
// them.
type Table struct {
	path    string
	columns []string

	mu sync.Mutex   // serialises access within this process
	fl *flock.Flock // serialises access across processes
}

// OpenTable opens (creating if needed) the table file and bootstraps the
// header row on first creation.
func OpenTable(path string, columns []string) (*Table, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create tracking directory: %w", err)
	}
	t := &Table{
		path:    path,
		columns: columns,
		fl:      flock.New(path + ".lock"),
	}
	if err := t.withLock(t.ensureHeader); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the backing file path.
func (t *Table) Path() string { return t.path }

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) withLock(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.fl.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", t.path, err)
	}
	defer t.fl.Unlock()
	return fn()
}

func (t *Table) ensureHeader() error {
	info, err := os.Stat(t.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return t.appendLine(t.columns)
}

// appendLine writes one complete CSV line in a single write call. Fields
// containing the delimiter, quotes, or newlines are quoted with doubled
// embedded quotes by encoding/csv.
func (t *Table) appendLine(row []string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

// Append adds one row to the table.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("table %s: row has %d fields, want %d", filepath.Base(t.path), len(row), len(t.columns))
	}
	return t.withLock(func() error {
		return t.appendLine(row)
	})
}

func (t *Table) readAll() ([][]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(t.columns)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil // drop the header row
}

// Rows returns every data row as a column-name to value map.
func (t *Table) Rows() ([]map[string]string, error) {
	var records [][]string
	err := t.withLock(func() error {
		var err error
		records, err = t.readAll()
		return err
	})
	if err != nil {
		return nil, err
	}
	return t.toMaps(records), nil
}

// Scan returns the rows whose column equals value (linear scan).
func (t *Table) Scan(column, value string) ([]map[string]string, error) {
	idx := t.columnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("table %s has no column %q", filepath.Base(t.path), column)
	}
	var records [][]string
	err := t.withLock(func() error {
		var err error
		records, err = t.readAll()
		return err
	})
	if err != nil {
		return nil, err
	}
	var matched [][]string
	for _, rec := range records {
		if rec[idx] == value {
			matched = append(matched, rec)
		}
	}
	return t.toMaps(matched), nil
}

// Update rewrites the file, applying mutate to every row whose key column
// equals key. The read-modify-write runs under the exclusive lock and lands
// via an atomic rename. Returns the number of mutated rows.
func (t *Table) Update(keyColumn, key string, mutate func(row map[string]string)) (int, error) {
	idx := t.columnIndex(keyColumn)
	if idx < 0 {
		return 0, fmt.Errorf("table %s has no column %q", filepath.Base(t.path), keyColumn)
	}

	changed := 0
	err := t.withLock(func() error {
		records, err := t.readAll()
		if err != nil {
			return err
		}
		for i, rec := range records {
			if rec[idx] != key {
				continue
			}
			m := t.toMap(rec)
			mutate(m)
			for j, col := range t.columns {
				records[i][j] = m[col]
			}
			changed++
		}
		if changed == 0 {
			return nil
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(t.columns); err != nil {
			return err
		}
		if err := w.WriteAll(records); err != nil {
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}

		tmp := t.path + ".tmp"
		if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
			return err
		}
		return os.Rename(tmp, t.path)
	})
	return changed, err
}

func (t *Table) columnIndex(column string) int {
	for i, c := range t.columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (t *Table) toMap(rec []string) map[string]string {
	m := make(map[string]string, len(t.columns))
	for i, c := range t.columns {
		m[c] = rec[i]
	}
	return m
}

func (t *Table) toMaps(records [][]string) []map[string]string {
	out := make([]map[string]string, len(records))
	for i, rec := range records {
		out[i] = t.toMap(rec)
	}
	return out
}
