package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_outbox.sql": {Data: []byte("SELECT 2")},
		"0001_images.sql": {Data: []byte("SELECT 1")},
		"README.md":       {Data: []byte("docs")},
		"old/0000.sql":    {Data: []byte("SELECT 0")},
	}

	names, err := migrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_images.sql", "0002_outbox.sql"}, names)
}
