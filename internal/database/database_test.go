package database

import (
	"path/filepath"
	"testing"

	"vocata/config"
	"vocata/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vocata.db")
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)

	for _, m := range []any{&model.Character{}, &model.Conversation{}, &model.Message{}, &model.UserFavorite{}, &model.File{}, &model.TtsVoice{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
