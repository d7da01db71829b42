package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lebroads/pothole-map/migrations"
)

func TestReadMigrationsPairsAndSorts(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_votes.up.sql":   {Data: []byte("CREATE TABLE votes ();")},
		"002_add_votes.down.sql": {Data: []byte("DROP TABLE votes;")},
		"001_init.up.sql":        {Data: []byte("CREATE TABLE reports ();")},
		"003_orphan.down.sql":    {Data: []byte("SELECT 1;")},
		"README.md":              {Data: []byte("ignored")},
		"nounderscore.up.sql":    {Data: []byte("SELECT 1;")},
	}

	got, err := ReadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2, "down-only migrations are skipped")

	assert.Equal(t, "001", got[0].Version)
	assert.Equal(t, "init", got[0].Title)
	assert.Equal(t, "002", got[1].Version)
	assert.Equal(t, "add votes", got[1].Title)
	assert.Equal(t, "DROP TABLE votes;", got[1].DownSQL)
	assert.Equal(t, calculateChecksum("CREATE TABLE votes ();"), got[1].Checksum)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ReadMigrations(migrations.FS)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for _, mg := range got {
		assert.NotEmpty(t, mg.DownSQL, "migration %s needs a down file", mg.Version)
		assert.Len(t, mg.Checksum, 64)
	}
	assert.Contains(t, got[0].UpSQL, "reports_identical_unique")
	assert.Contains(t, got[1].UpSQL, "report_scores")
	assert.Contains(t, got[2].UpSQL, "pg_notify")
}
