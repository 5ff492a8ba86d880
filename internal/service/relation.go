package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRecipeRelation describes a per-user set of recipes such as favorites
type userRecipeRelation struct {
	name       string
	model      interface{}
	newRow     func(userID, recipeID uint) interface{}
	errExists  error
	errMissing error
}

var (
	favorites = userRecipeRelation{
		name:  "favorite",
		model: &models.Favorite{},
		newRow: func(userID, recipeID uint) interface{} {
			return &models.Favorite{UserID: userID, RecipeID: recipeID}
		},
		errExists:  ErrAlreadyFavorited,
		errMissing: ErrNotFavorited,
	}
	shoppingCart = userRecipeRelation{
		name:  "shopping_cart",
		model: &models.ShoppingCart{},
		newRow: func(userID, recipeID uint) interface{} {
			return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
		},
		errExists:  ErrAlreadyInCart,
		errMissing: ErrNotInCart,
	}
)

// RelationService manages favorites and shopping carts
type RelationService struct {
	db *gorm.DB
}

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

func (s *RelationService) AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.add(ctx, favorites, userID, recipeID)
}

func (s *RelationService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, favorites, userID, recipeID)
}

func (s *RelationService) AddToShoppingCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.add(ctx, shoppingCart, userID, recipeID)
}

func (s *RelationService) RemoveFromShoppingCart(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, shoppingCart, userID, recipeID)
}

func (s *RelationService) add(ctx context.Context, rel userRecipeRelation, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := s.recipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.db.WithContext(ctx).Model(rel.model).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", rel.name, err)
	}
	if count > 0 {
		return nil, rel.errExists
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(rel.newRow(userID, recipeID)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, rel.errExists
		}
		return nil, fmt.Errorf("failed to add %s: %w", rel.name, err)
	}

	metrics.RecordRelationChange(rel.name, "add")
	logging.Ctx(ctx).Debug().Str("relation", rel.name).Uint("recipe_id", recipeID).Msg("recipe added")
	return recipe, nil
}

func (s *RelationService) remove(ctx context.Context, rel userRecipeRelation, userID, recipeID uint) error {
	if _, err := s.recipe(ctx, recipeID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(rel.model)
	if res.Error != nil {
		return fmt.Errorf("failed to remove %s: %w", rel.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return rel.errMissing
	}

	metrics.RecordRelationChange(rel.name, "remove")
	return nil
}

func (s *RelationService) recipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// relationSet reports which of recipeIDs the viewer has in the table of model.
// An anonymous viewer has nothing.
func relationSet(ctx context.Context, db *gorm.DB, model interface{}, viewerID *uint, recipeIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if viewerID == nil || len(recipeIDs) == 0 {
		return result, nil
	}

	var ids []uint
	err := db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND recipe_id IN ?", *viewerID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe relations: %w", err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
