package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recipeFixture struct {
	db        *gorm.DB
	svc       *service.RecipeService
	author    *models.User
	breakfast *models.Tag
	lunch     *models.Tag
	eggs      *models.Ingredient
	milk      *models.Ingredient
}

func setupRecipeTest(t *testing.T) *recipeFixture {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	return &recipeFixture{
		db:        db,
		svc:       service.NewRecipeService(db, storage.NewLocalImageStore(t.TempDir(), "/media")),
		author:    testhelpers.CreateUser(t, db, "chef"),
		breakfast: testhelpers.CreateTag(t, db, "Breakfast", "breakfast"),
		lunch:     testhelpers.CreateTag(t, db, "Lunch", "lunch"),
		eggs:      testhelpers.CreateIngredient(t, db, "eggs", "pcs"),
		milk:      testhelpers.CreateIngredient(t, db, "milk", "ml"),
	}
}

func (f *recipeFixture) request() *types.RecipeWriteRequest {
	image := testhelpers.PNGDataURI
	return &types.RecipeWriteRequest{
		Ingredients: []types.IngredientAmount{{ID: f.eggs.ID, Amount: 2}, {ID: f.milk.ID, Amount: 200}},
		Tags:        []uint{f.breakfast.ID},
		Image:       &image,
		Name:        "Omelette",
		Text:        "Whisk and fry.",
		CookingTime: 10,
	}
}

func TestValidateRecipeInput(t *testing.T) {
	base := func() *types.RecipeWriteRequest {
		return &types.RecipeWriteRequest{
			Ingredients: []types.IngredientAmount{{ID: 1, Amount: 1}},
			Tags:        []uint{1},
			Name:        "Soup",
			Text:        "Boil.",
			CookingTime: 1,
		}
	}

	tests := []struct {
		name   string
		modify func(r *types.RecipeWriteRequest)
		field  string
	}{
		{"valid", func(r *types.RecipeWriteRequest) {}, ""},
		{"upper bounds", func(r *types.RecipeWriteRequest) {
			r.CookingTime = models.MaxCookingTime
			r.Ingredients[0].Amount = models.MaxAmount
		}, ""},
		{"empty tags", func(r *types.RecipeWriteRequest) { r.Tags = nil }, "tags"},
		{"duplicate tags", func(r *types.RecipeWriteRequest) { r.Tags = []uint{1, 1} }, "tags"},
		{"empty ingredients", func(r *types.RecipeWriteRequest) { r.Ingredients = nil }, "ingredients"},
		{"duplicate ingredients", func(r *types.RecipeWriteRequest) {
			r.Ingredients = []types.IngredientAmount{{ID: 1, Amount: 1}, {ID: 1, Amount: 3}}
		}, "ingredients"},
		{"zero amount", func(r *types.RecipeWriteRequest) { r.Ingredients[0].Amount = 0 }, "ingredients"},
		{"amount too large", func(r *types.RecipeWriteRequest) { r.Ingredients[0].Amount = models.MaxAmount + 1 }, "ingredients"},
		{"zero cooking time", func(r *types.RecipeWriteRequest) { r.CookingTime = 0 }, "cooking_time"},
		{"cooking time too large", func(r *types.RecipeWriteRequest) { r.CookingTime = models.MaxCookingTime + 1 }, "cooking_time"},
		{"blank name", func(r *types.RecipeWriteRequest) { r.Name = "  " }, "name"},
		{"long name", func(r *types.RecipeWriteRequest) { r.Name = strings.Repeat("a", 201) }, "name"},
		{"blank text", func(r *types.RecipeWriteRequest) { r.Text = "" }, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.modify(req)
			err := service.ValidateRecipeInput(req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreateRecipe(t *testing.T) {
	f := setupRecipeTest(t)

	recipe, err := f.svc.Create(context.Background(), f.author.ID, f.request())
	require.NoError(t, err)

	assert.Equal(t, "Omelette", recipe.Name)
	assert.Equal(t, f.author.ID, recipe.Author.ID)
	assert.True(t, strings.HasPrefix(recipe.Image, "/media/recipes/"))
	assert.True(t, strings.HasSuffix(recipe.Image, ".png"))
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "breakfast", recipe.Tags[0].Slug)
	require.Len(t, recipe.IngredientLines, 2)
	assert.Equal(t, "eggs", recipe.IngredientLines[0].Ingredient.Name)
	assert.Equal(t, 2, recipe.IngredientLines[0].Amount)
	assert.Equal(t, 200, recipe.IngredientLines[1].Amount)
}

func TestCreateRecipeRejectsWithoutWriting(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *recipeFixture, r *types.RecipeWriteRequest)
		field  string
	}{
		{"duplicate ingredient", func(f *recipeFixture, r *types.RecipeWriteRequest) {
			r.Ingredients = []types.IngredientAmount{{ID: f.eggs.ID, Amount: 1}, {ID: f.eggs.ID, Amount: 2}}
		}, "ingredients"},
		{"unknown tag", func(f *recipeFixture, r *types.RecipeWriteRequest) { r.Tags = []uint{f.breakfast.ID, 999} }, "tags"},
		{"unknown ingredient", func(f *recipeFixture, r *types.RecipeWriteRequest) {
			r.Ingredients = append(r.Ingredients, types.IngredientAmount{ID: 999, Amount: 1})
		}, "ingredients"},
		{"missing image", func(f *recipeFixture, r *types.RecipeWriteRequest) { r.Image = nil }, "image"},
		{"bad image", func(f *recipeFixture, r *types.RecipeWriteRequest) {
			bad := "data:image/png;base64,bm90IGFuIGltYWdl"
			r.Image = &bad
		}, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupRecipeTest(t)
			req := f.request()
			tt.modify(f, req)

			_, err := f.svc.Create(context.Background(), f.author.ID, req)
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			assert.Zero(t, testhelpers.Count(t, f.db, &models.Recipe{}))
			assert.Zero(t, testhelpers.Count(t, f.db, &models.IngredientInRecipe{}))
		})
	}
}

func TestCreateRecipeImageStoreFailure(t *testing.T) {
	f := setupRecipeTest(t)
	images := new(testhelpers.MockImageStore)
	images.On("Save", mock.Anything, mock.Anything).Return("", assert.AnError)
	svc := service.NewRecipeService(f.db, images)

	_, err := svc.Create(context.Background(), f.author.ID, f.request())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, testhelpers.Count(t, f.db, &models.Recipe{}))
	images.AssertExpectations(t)
}

// refuseWrites makes every statement of kind on the recipes table fail
func refuseWrites(t *testing.T, db *gorm.DB, kind string) {
	t.Helper()
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == "recipes" {
			_ = tx.AddError(errors.New("recipes table is read-only"))
		}
	}
	var err error
	switch kind {
	case "create":
		err = db.Callback().Create().Before("gorm:create").Register("test:refuse_recipes", fail)
	case "update":
		err = db.Callback().Update().Before("gorm:update").Register("test:refuse_recipes", fail)
	}
	require.NoError(t, err)
}

func TestCreateRecipeDiscardsImageOnRollback(t *testing.T) {
	f := setupRecipeTest(t)
	images := new(testhelpers.MockImageStore)
	images.On("Save", mock.Anything, mock.Anything).Return("/media/recipes/omelette.png", nil)
	images.On("Delete", mock.Anything, "/media/recipes/omelette.png").Return(nil)
	svc := service.NewRecipeService(f.db, images)
	refuseWrites(t, f.db, "create")

	_, err := svc.Create(context.Background(), f.author.ID, f.request())
	require.Error(t, err)
	images.AssertExpectations(t)
}

func TestUpdateRecipeDiscardsNewImageOnRollback(t *testing.T) {
	f := setupRecipeTest(t)
	recipe := testhelpers.CreateRecipe(t, f.db, f.author, "Omelette", []*models.Tag{f.breakfast})
	images := new(testhelpers.MockImageStore)
	images.On("Save", mock.Anything, mock.Anything).Return("/media/recipes/new.png", nil)
	images.On("Delete", mock.Anything, "/media/recipes/new.png").Return(assert.AnError)
	svc := service.NewRecipeService(f.db, images)
	refuseWrites(t, f.db, "update")

	_, err := svc.Update(context.Background(), f.author.ID, recipe.ID, f.request())
	require.Error(t, err)
	images.AssertExpectations(t)

	var stored models.Recipe
	require.NoError(t, f.db.First(&stored, recipe.ID).Error)
	assert.Equal(t, recipe.Image, stored.Image)
}

func TestUpdateRecipeReplacesRelations(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.author.ID, f.request())
	require.NoError(t, err)

	req := f.request()
	req.Image = nil
	req.Name = "Milk porridge"
	req.Tags = []uint{f.lunch.ID}
	req.Ingredients = []types.IngredientAmount{{ID: f.milk.ID, Amount: 500}}
	req.CookingTime = 25

	updated, err := f.svc.Update(ctx, f.author.ID, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Milk porridge", updated.Name)
	assert.Equal(t, 25, updated.CookingTime)
	assert.Equal(t, created.Image, updated.Image)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "lunch", updated.Tags[0].Slug)
	require.Len(t, updated.IngredientLines, 1)
	assert.Equal(t, f.milk.ID, updated.IngredientLines[0].IngredientID)
	assert.Equal(t, 500, updated.IngredientLines[0].Amount)

	assert.Equal(t, int64(1), testhelpers.Count(t, f.db, &models.IngredientInRecipe{}, "recipe_id = ?", created.ID))
}

func TestUpdateRecipeInvalidKeepsOriginal(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.author.ID, f.request())
	require.NoError(t, err)

	req := f.request()
	req.Tags = []uint{}
	_, err = f.svc.Update(ctx, f.author.ID, created.ID, req)
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)

	reloaded, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Tags, 1)
	assert.Len(t, reloaded.IngredientLines, 2)
}

func TestRecipeWritePermissions(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.author.ID, f.request())
	require.NoError(t, err)

	stranger := testhelpers.CreateUser(t, f.db, "stranger")
	admin := testhelpers.CreateAdmin(t, f.db, "admin")

	_, err = f.svc.Update(ctx, stranger.ID, created.ID, f.request())
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, stranger.ID, created.ID), service.ErrForbidden)

	_, err = f.svc.Update(ctx, admin.ID, created.ID, f.request())
	assert.NoError(t, err)

	_, err = f.svc.Update(ctx, f.author.ID, 999, f.request())
	assert.ErrorIs(t, err, service.ErrRecipeNotFound)
}

func TestDeleteRecipe(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.author.ID, f.request())
	require.NoError(t, err)
	fan := testhelpers.CreateUser(t, f.db, "fan")
	testhelpers.AddFavorite(t, f.db, fan, created)
	testhelpers.AddToCart(t, f.db, fan, created)

	require.NoError(t, f.svc.Delete(ctx, f.author.ID, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, service.ErrRecipeNotFound)
	assert.Zero(t, testhelpers.Count(t, f.db, &models.IngredientInRecipe{}))
	assert.Zero(t, testhelpers.Count(t, f.db, &models.Favorite{}))
	assert.Zero(t, testhelpers.Count(t, f.db, &models.ShoppingCart{}))

	assert.ErrorIs(t, f.svc.Delete(ctx, f.author.ID, created.ID), service.ErrRecipeNotFound)
}

func TestListRecipesFilters(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	other := testhelpers.CreateUser(t, f.db, "other")
	dinner := testhelpers.CreateTag(t, f.db, "Dinner", "dinner")

	first := testhelpers.CreateRecipe(t, f.db, f.author, "first", []*models.Tag{f.breakfast, f.lunch})
	second := testhelpers.CreateRecipe(t, f.db, f.author, "second", []*models.Tag{f.lunch})
	third := testhelpers.CreateRecipe(t, f.db, other, "third", []*models.Tag{dinner})

	viewer := testhelpers.CreateUser(t, f.db, "viewer")
	testhelpers.AddFavorite(t, f.db, viewer, first)
	testhelpers.AddToCart(t, f.db, viewer, third)

	names := func(recipes []models.Recipe) []string {
		out := make([]string, 0, len(recipes))
		for _, r := range recipes {
			out = append(out, r.Name)
		}
		return out
	}

	recipes, total, err := f.svc.List(ctx, types.RecipeFilter{}, nil, types.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"third", "second", "first"}, names(recipes))

	recipes, total, err = f.svc.List(ctx, types.RecipeFilter{Tags: []string{"breakfast", "lunch"}}, nil, types.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"second", "first"}, names(recipes))

	recipes, _, err = f.svc.List(ctx, types.RecipeFilter{AuthorID: &other.ID}, nil, types.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, names(recipes))

	recipes, _, err = f.svc.List(ctx, types.RecipeFilter{IsFavorited: true}, &viewer.ID, types.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, names(recipes))

	recipes, _, err = f.svc.List(ctx, types.RecipeFilter{IsInShoppingCart: true}, &viewer.ID, types.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, names(recipes))

	recipes, total, err = f.svc.List(ctx, types.RecipeFilter{IsFavorited: true}, nil, types.PageQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, recipes)

	recipes, total, err = f.svc.List(ctx, types.RecipeFilter{}, nil, types.PageQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"first"}, names(recipes))
	assert.Equal(t, second.AuthorID, recipes[0].Author.ID)
}

func TestPresentRecipes(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	recipe := testhelpers.CreateRecipe(t, f.db, f.author, "stew", []*models.Tag{f.lunch},
		testhelpers.Line{Ingredient: f.eggs, Amount: 3})
	viewer := testhelpers.CreateUser(t, f.db, "viewer")
	testhelpers.AddFavorite(t, f.db, viewer, recipe)
	testhelpers.Subscribe(t, f.db, viewer, f.author)

	loaded, err := f.svc.Get(ctx, recipe.ID)
	require.NoError(t, err)

	out, err := f.svc.Present(ctx, &viewer.ID, []models.Recipe{*loaded})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsFavorited)
	assert.False(t, out[0].IsInShoppingCart)
	assert.True(t, out[0].Author.IsSubscribed)
	require.Len(t, out[0].Ingredients, 1)
	assert.Equal(t, f.eggs.ID, out[0].Ingredients[0].ID)
	assert.Equal(t, "pcs", out[0].Ingredients[0].MeasurementUnit)
	assert.Equal(t, 3, out[0].Ingredients[0].Amount)

	out, err = f.svc.Present(ctx, nil, []models.Recipe{*loaded})
	require.NoError(t, err)
	assert.False(t, out[0].IsFavorited)
	assert.False(t, out[0].Author.IsSubscribed)
}
