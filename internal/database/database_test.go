package database_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := testhelpers.SetupTestDB(t)

	for _, table := range []string{"users", "subscriptions", "tags", "ingredients", "recipes", "recipe_tags", "recipe_ingredients", "favorites", "shopping_carts"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestUniqueViolationIsTranslated(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "alice")

	err := db.Create(&models.User{
		Email:        user.Email,
		Username:     "other",
		FirstName:    "A",
		LastName:     "B",
		PasswordHash: "x",
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite"} {
		d, err := database.Dialector(&config.Config{DBDriver: driver, DBPath: "x.db"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := database.Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_more.sql", "000001_init.sql", "000001_init_rollback.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.sql"), 0o755))

	files, err := database.MigrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init.sql", "000002_more.sql"}, files)

	_, err = database.MigrationFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRunMigrationsOnPostgres(t *testing.T) {
	_, db := testhelpers.SetupPostgres(t)

	require.NoError(t, database.RunMigrations(db, "../../migrations"))
	// applied files are skipped on the second run
	require.NoError(t, database.RunMigrations(db, "../../migrations"))

	var applied int64
	require.NoError(t, db.Table("migrations").Count(&applied).Error)
	assert.Equal(t, int64(1), applied)

	user := testhelpers.CreateUser(t, db, "alice")
	recipe := testhelpers.CreateRecipe(t, db, user, "soup", nil)
	testhelpers.AddFavorite(t, db, user, recipe)

	err := db.Create(&models.Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestNewRedisClient(t *testing.T) {
	client, err := database.NewRedisClient(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = database.NewRedisClient(&config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()})
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	_, err = database.NewRedisClient(&config.Config{RedisURL: "not a url"})
	assert.Error(t, err)
}
