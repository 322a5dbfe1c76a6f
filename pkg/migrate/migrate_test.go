package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir(DefaultDir))

	entries, err := os.ReadDir("migrations")
	require.NoError(t, err)
	embeddedEntries, err := fs.ReadDir(Embedded(), ".")
	require.NoError(t, err)
	assert.Len(t, embeddedEntries, len(entries))
}

func TestValidateFSRejectsBrokenMigrations(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"2026_notices.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"no down":  {"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"duplicate": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"unbalanced": {"20260101000000_a.sql": {Data: []byte(
			"-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		)}},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateFS(fsys))
		})
	}

	ok := fstest.MapFS{
		"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 2;\n")},
		"README.md":            {Data: []byte("ignored")},
	}
	assert.NoError(t, ValidateFS(ok))
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := createSQLMigration(dir, "  Add Notice Index! ", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260304050607_add_notice_index.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "-- +goose Up"))
	assert.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "add notice index", now)
	assert.ErrorContains(t, err, "already exists")

	_, err = createSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}
