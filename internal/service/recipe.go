package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxRecipeNameLength = 200

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images storage.ImageStore
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images storage.ImageStore) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
	}
}

// ValidateRecipeInput checks the parts of a write request that need no
// database access. It reports the first problem found.
func ValidateRecipeInput(req *types.RecipeWriteRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "name is required")
	}
	if utf8.RuneCountInString(req.Name) > maxRecipeNameLength {
		return invalid("name", fmt.Sprintf("name must be at most %d characters", maxRecipeNameLength))
	}
	if strings.TrimSpace(req.Text) == "" {
		return invalid("text", "text is required")
	}
	if req.CookingTime < models.MinCookingTime {
		return invalid("cooking_time", fmt.Sprintf("cooking time must be at least %d", models.MinCookingTime))
	}
	if req.CookingTime > models.MaxCookingTime {
		return invalid("cooking_time", fmt.Sprintf("cooking time must be at most %d", models.MaxCookingTime))
	}

	if len(req.Tags) == 0 {
		return invalid("tags", "at least one tag is required")
	}
	seenTags := make(map[uint]struct{}, len(req.Tags))
	for _, id := range req.Tags {
		if _, dup := seenTags[id]; dup {
			return invalid("tags", "tags must not repeat")
		}
		seenTags[id] = struct{}{}
	}

	if len(req.Ingredients) == 0 {
		return invalid("ingredients", "at least one ingredient is required")
	}
	seenIngredients := make(map[uint]struct{}, len(req.Ingredients))
	for _, line := range req.Ingredients {
		if _, dup := seenIngredients[line.ID]; dup {
			return invalid("ingredients", "ingredients must not repeat")
		}
		seenIngredients[line.ID] = struct{}{}
		if line.Amount < models.MinAmount {
			return invalid("ingredients", fmt.Sprintf("amount must be at least %d", models.MinAmount))
		}
		if line.Amount > models.MaxAmount {
			return invalid("ingredients", fmt.Sprintf("amount must be at most %d", models.MaxAmount))
		}
	}
	return nil
}

// Create validates req and writes the recipe, its tags and ingredient lines in one transaction
func (s *RecipeService) Create(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	if err := ValidateRecipeInput(req); err != nil {
		return nil, err
	}
	if req.Image == nil || strings.TrimSpace(*req.Image) == "" {
		return nil, invalid("image", "image is required")
	}
	tags, err := s.loadTags(ctx, req.Tags)
	if err != nil {
		return nil, err
	}
	if err := s.checkIngredients(ctx, req.Ingredients); err != nil {
		return nil, err
	}
	imageURL, err := s.storeImage(ctx, *req.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(req.Name),
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       imageURL,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return replaceRecipeRelations(tx, recipe.ID, tags, req.Ingredients)
	})
	if err != nil {
		s.discardImage(ctx, imageURL)
		return nil, err
	}

	metrics.RecordRecipeWrite("create")
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("recipe created")
	return s.Get(ctx, recipe.ID)
}

// Update replaces every field of the recipe. Tags and ingredient lines are
// cleared and recreated; a missing image keeps the current one.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID uint, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	recipe, err := s.find(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, recipe); err != nil {
		return nil, err
	}
	if err := ValidateRecipeInput(req); err != nil {
		return nil, err
	}
	tags, err := s.loadTags(ctx, req.Tags)
	if err != nil {
		return nil, err
	}
	if err := s.checkIngredients(ctx, req.Ingredients); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         strings.TrimSpace(req.Name),
		"text":         req.Text,
		"cooking_time": req.CookingTime,
	}
	if req.Image != nil && strings.TrimSpace(*req.Image) != "" {
		imageURL, err := s.storeImage(ctx, *req.Image)
		if err != nil {
			return nil, err
		}
		updates["image"] = imageURL
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		return replaceRecipeRelations(tx, recipe.ID, tags, req.Ingredients)
	})
	if err != nil {
		if imageURL, ok := updates["image"].(string); ok {
			s.discardImage(ctx, imageURL)
		}
		return nil, err
	}

	metrics.RecordRecipeWrite("update")
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("recipe updated")
	return s.Get(ctx, recipe.ID)
}

// Delete removes the recipe and every row that references it
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID uint) error {
	recipe, err := s.find(ctx, recipeID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, recipe); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipe.ID).Error; err != nil {
			return fmt.Errorf("failed to delete recipe tags: %w", err)
		}
		for _, model := range []interface{}{&models.IngredientInRecipe{}, &models.Favorite{}, &models.ShoppingCart{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete recipe relations: %w", err)
			}
		}
		if err := tx.Delete(&models.Recipe{}, recipe.ID).Error; err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordRecipeWrite("delete")
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("recipe deleted")
	return nil
}

// Get loads a recipe with its author, tags and ingredient lines
func (s *RecipeService) Get(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// List returns one page of recipes, newest first. The favorite and cart
// filters only match for an authenticated viewer.
func (s *RecipeService) List(ctx context.Context, filter types.RecipeFilter, viewerID *uint, page types.PageQuery) ([]models.Recipe, int64, error) {
	page = page.Normalize()
	if viewerID == nil && (filter.IsFavorited || filter.IsInShoppingCart) {
		return []models.Recipe{}, 0, nil
	}

	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Recipe{})
		if len(filter.Tags) > 0 {
			tagged := s.db.Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", filter.Tags)
			q = q.Where("recipes.id IN (?)", tagged)
		}
		if filter.AuthorID != nil {
			q = q.Where("recipes.author_id = ?", *filter.AuthorID)
		}
		if filter.IsFavorited {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *viewerID))
		}
		if filter.IsInShoppingCart {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", *viewerID))
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := withDetails(filtered()).
		Order("recipes.pub_date DESC").
		Order("recipes.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// Present converts recipes to their representation as seen by viewerID
func (s *RecipeService) Present(ctx context.Context, viewerID *uint, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	ids := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}

	favorited, err := relationSet(ctx, s.db, &models.Favorite{}, viewerID, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := relationSet(ctx, s.db, &models.ShoppingCart{}, viewerID, ids)
	if err != nil {
		return nil, err
	}
	subscribed, err := subscribedAuthors(ctx, s.db, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		out = append(out, types.NewRecipeResponse(r, types.RecipeFlags{
			Favorited:        favorited[r.ID],
			InShoppingCart:   inCart[r.ID],
			AuthorSubscribed: subscribed[r.AuthorID],
		}))
	}
	return out, nil
}

func (s *RecipeService) find(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// authorize allows the author and admins to change a recipe
func (s *RecipeService) authorize(ctx context.Context, actorID uint, recipe *models.Recipe) error {
	if recipe.AuthorID == actorID {
		return nil
	}
	var actor models.User
	if err := s.db.WithContext(ctx).Select("id", "is_admin").First(&actor, actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *RecipeService) loadTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(ids) {
		return nil, invalid("tags", "unknown tag id")
	}
	return tags, nil
}

func (s *RecipeService) checkIngredients(ctx context.Context, lines []types.IngredientAmount) error {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}
	if count != int64(len(ids)) {
		return invalid("ingredients", "unknown ingredient id")
	}
	return nil
}

func (s *RecipeService) storeImage(ctx context.Context, raw string) (string, error) {
	img, err := storage.DecodeBase64Image(raw)
	if err != nil {
		return "", invalid("image", err.Error())
	}
	url, err := s.images.Save(ctx, img)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

// discardImage removes an image whose recipe write was rolled back
func (s *RecipeService) discardImage(ctx context.Context, url string) {
	if err := s.images.Delete(ctx, url); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("image", url).Msg("failed to discard orphaned image")
	}
}

// replaceRecipeRelations swaps the tag links and ingredient lines of a
// recipe. It must run inside a transaction.
func replaceRecipeRelations(tx *gorm.DB, recipeID uint, tags []models.Tag, lines []types.IngredientAmount) error {
	if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipeID).Error; err != nil {
		return fmt.Errorf("failed to clear recipe tags: %w", err)
	}
	links := make([]map[string]interface{}, 0, len(tags))
	for _, tag := range tags {
		links = append(links, map[string]interface{}{"recipe_id": recipeID, "tag_id": tag.ID})
	}
	if err := tx.Table("recipe_tags").Create(links).Error; err != nil {
		return fmt.Errorf("failed to link recipe tags: %w", err)
	}

	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.IngredientInRecipe{}).Error; err != nil {
		return fmt.Errorf("failed to clear recipe ingredients: %w", err)
	}
	rows := make([]models.IngredientInRecipe, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, models.IngredientInRecipe{RecipeID: recipeID, IngredientID: line.ID, Amount: line.Amount})
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to add recipe ingredients: %w", err)
	}
	return nil
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("IngredientLines", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("IngredientLines.Ingredient")
}
