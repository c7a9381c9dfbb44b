package database

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestMigrateReportsUnreadableDir(t *testing.T) {
	sub, err := fs.Sub(fstest.MapFS{}, "missing")
	require.NoError(t, err)

	err = Migrate(context.Background(), nil, sub)
	require.ErrorContains(t, err, "read migrations dir")
}

func TestMigrateSkipsNonUpFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"000001_init.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE x;")},
		"README.md":            &fstest.MapFile{Data: []byte("notes")},
	}

	// No up files means the nil db is never touched.
	require.NoError(t, Migrate(context.Background(), nil, fsys))
}
