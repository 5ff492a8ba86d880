package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
)

// TagService reads the tag catalog
type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// IngredientService reads the ingredient catalog
type IngredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// Search returns ingredients whose name starts with namePrefix, ignoring case
func (s *IngredientService) Search(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	prefix := strings.ToLower(strings.TrimSpace(namePrefix))
	q := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	// sqlite's LOWER folds ASCII only, so non-latin names are matched here
	sqlite := s.db.Dialector.Name() == "sqlite"
	if prefix != "" && !sqlite {
		q = q.Where("LOWER(name) LIKE ?", escapeLike(prefix)+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}
	if prefix == "" || !sqlite {
		return ingredients, nil
	}

	matched := ingredients[:0]
	for _, ingredient := range ingredients {
		if strings.HasPrefix(strings.ToLower(ingredient.Name), prefix) {
			matched = append(matched, ingredient)
		}
	}
	return matched, nil
}

func (s *IngredientService) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ingredient, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
