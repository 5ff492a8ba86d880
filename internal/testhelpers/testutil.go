package testhelpers

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TestPassword is the password of every user made by CreateUser
const TestPassword = "testpassword123"

var colorSeq atomic.Uint32

// CreateUser creates a user <username>@example.com with TestPassword
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hashed),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateAdmin creates a user with the admin flag set
func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := CreateUser(t, db, username)
	require.NoError(t, db.Model(user).Update("is_admin", true).Error)
	user.IsAdmin = true
	return user
}

// CreateTag creates a tag with a unique color
func CreateTag(t *testing.T, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{
		Name:  name,
		Slug:  slug,
		Color: fmt.Sprintf("#%06X", colorSeq.Add(1)),
	}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

// Line is an ingredient line for CreateRecipe
type Line struct {
	Ingredient *models.Ingredient
	Amount     int
}

// CreateRecipe inserts a recipe with its tags and lines directly, bypassing validation
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, lines ...Line) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        name + " instructions",
		CookingTime: 10,
		Image:       "/media/recipes/" + name + ".png",
	}
	require.NoError(t, db.Omit(clause.Associations).Create(recipe).Error)

	for _, tag := range tags {
		require.NoError(t, db.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipe.ID, tag.ID).Error)
	}
	for _, line := range lines {
		row := &models.IngredientInRecipe{RecipeID: recipe.ID, IngredientID: line.Ingredient.ID, Amount: line.Amount}
		require.NoError(t, db.Omit(clause.Associations).Create(row).Error)
	}
	return recipe
}

func AddFavorite(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	require.NoError(t, db.Omit(clause.Associations).Create(&models.Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error)
}

func AddToCart(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	require.NoError(t, db.Omit(clause.Associations).Create(&models.ShoppingCart{UserID: user.ID, RecipeID: recipe.ID}).Error)
}

func Subscribe(t *testing.T, db *gorm.DB, user, author *models.User) {
	t.Helper()
	require.NoError(t, db.Omit(clause.Associations).Create(&models.Subscribe{UserID: user.ID, AuthorID: author.ID}).Error)
}

// Count returns the number of rows of model matching the optional condition
func Count(t *testing.T, db *gorm.DB, model interface{}, query ...interface{}) int64 {
	t.Helper()
	q := db.Model(model)
	if len(query) > 0 {
		q = q.Where(query[0], query[1:]...)
	}
	var n int64
	require.NoError(t, q.Count(&n).Error)
	return n
}

// PNGDataURI is a 1x1 png encoded the way clients upload recipe images
const PNGDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="
