package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "abrstream.db")

	db, err := Open(Options{Type: "sqlite", Path: path, LogLevel: "silent"})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&VideoAsset{}))
	assert.True(t, db.Migrator().HasTable("video_renditions"))
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(Options{Type: "mysql"})
	assert.Error(t, err)
}
