package tracking

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := OpenTable(filepath.Join(t.TempDir(), "rows.csv"), []string{"id", "name", "notes"})
	require.NoError(t, err)
	return tbl
}

func TestOpenTableWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")

	_, err := OpenTable(path, []string{"id", "name"})
	require.NoError(t, err)
	_, err = OpenTable(path, []string{"id", "name"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n", string(data))
}

func TestAppendAndScanRoundTrip(t *testing.T) {
	tbl := openTestTable(t)

	awkward := "said \"hello, world\"\nsecond line"
	require.NoError(t, tbl.Append([]string{"a1", "alpha", awkward}))
	require.NoError(t, tbl.Append([]string{"a2", "beta", "plain"}))

	rows, err := tbl.Scan("id", "a1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0]["name"])
	assert.Equal(t, awkward, rows[0]["notes"])
}

func TestAppendQuotesAwkwardFields(t *testing.T) {
	tbl := openTestTable(t)
	require.NoError(t, tbl.Append([]string{"a1", `needs "quotes", yes`, "x"}))

	data, err := os.ReadFile(tbl.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"needs ""quotes"", yes"`)
}

func TestAppendRejectsWrongWidth(t *testing.T) {
	tbl := openTestTable(t)
	err := tbl.Append([]string{"only", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3")
}

func TestScanUnknownColumn(t *testing.T) {
	tbl := openTestTable(t)
	_, err := tbl.Scan("nope", "x")
	require.Error(t, err)
}

func TestUpdateMutatesMatchingRow(t *testing.T) {
	tbl := openTestTable(t)
	require.NoError(t, tbl.Append([]string{"a1", "alpha", ""}))
	require.NoError(t, tbl.Append([]string{"a2", "beta", ""}))

	changed, err := tbl.Update("id", "a2", func(row map[string]string) {
		row["notes"] = "updated"
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	rows, err := tbl.Scan("id", "a2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "updated", rows[0]["notes"])

	rows, err = tbl.Scan("id", "a1")
	require.NoError(t, err)
	assert.Equal(t, "", rows[0]["notes"])
}

func TestUpdateMissingKeyChangesNothing(t *testing.T) {
	tbl := openTestTable(t)
	require.NoError(t, tbl.Append([]string{"a1", "alpha", ""}))

	before, err := os.ReadFile(tbl.Path())
	require.NoError(t, err)

	changed, err := tbl.Update("id", "ghost", func(row map[string]string) { row["notes"] = "x" })
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	after, err := os.ReadFile(tbl.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestConcurrentAppendsNeverTearLines(t *testing.T) {
	tbl := openTestTable(t)

	const workers, perWorker = 8, 50
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := tbl.Append([]string{id, "name, with comma", "note\nwith newline"}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	rows, err := tbl.Rows()
	require.NoError(t, err)
	assert.Len(t, rows, workers*perWorker)
	for _, row := range rows {
		assert.True(t, strings.HasPrefix(row["id"], "w"))
		assert.Equal(t, "name, with comma", row["name"])
	}
}
