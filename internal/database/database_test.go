package database

import (
	"testing"

	"github.com/communehq/commune/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "mysql", URL: "x"})
	assert.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := Open(Options{Driver: "sqlite", URL: "file:migrate_test?mode=memory"})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db))
	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	community := models.Community{Slug: "gardeners", Name: "Gardeners", OwnerID: "u1", Tags: models.StringArray{"plants", "food"}}
	require.NoError(t, db.Create(&community).Error)

	var loaded models.Community
	require.NoError(t, db.First(&loaded, "id = ?", community.ID).Error)
	assert.Equal(t, models.StringArray{"plants", "food"}, loaded.Tags)
}

func TestMigrateNilDB(t *testing.T) {
	assert.Error(t, Migrate(nil))
}
