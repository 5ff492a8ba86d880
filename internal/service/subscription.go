package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionService handles users following authors
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Subscribe makes userID follow authorID and returns the author's subscription representation
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	author, err := s.author(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if userID == authorID {
		return nil, ErrSelfSubscription
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.Subscribe{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadySubscribed
	}

	sub := &models.Subscribe{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	metrics.RecordRelationChange("subscription", "add")
	logging.Ctx(ctx).Info().Uint("author_id", authorID).Msg("subscribed to author")

	resp, err := s.present(ctx, author, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unsubscribe removes the subscription; absent subscriptions are ErrNotSubscribed
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if _, err := s.author(ctx, authorID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscribe{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotSubscribed
	}

	metrics.RecordRelationChange("subscription", "remove")
	return nil
}

// List returns the authors userID follows, ordered by username, each with
// their newest recipes truncated to recipesLimit when it is positive
func (s *SubscriptionService) List(ctx context.Context, userID uint, page types.PageQuery, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	page = page.Normalize()
	followed := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&models.User{}).
			Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
			Where("subscriptions.user_id = ?", userID)
	}

	var total int64
	if err := followed().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := followed().
		Order("users.username").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		resp, err := s.present(ctx, &authors[i], recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, resp)
	}
	return out, total, nil
}

func (s *SubscriptionService) author(ctx context.Context, id uint) (*models.User, error) {
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	return &author, nil
}

// present builds the representation of a followed author
func (s *SubscriptionService) present(ctx context.Context, author *models.User, recipesLimit int) (types.SubscriptionResponse, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
		return types.SubscriptionResponse{}, fmt.Errorf("failed to count recipes: %w", err)
	}

	q := s.db.WithContext(ctx).
		Where("author_id = ?", author.ID).
		Order("pub_date DESC, id DESC")
	if recipesLimit > 0 {
		q = q.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return types.SubscriptionResponse{}, fmt.Errorf("failed to list author recipes: %w", err)
	}

	short := make([]types.RecipeShortResponse, 0, len(recipes))
	for i := range recipes {
		short = append(short, types.NewRecipeShortResponse(&recipes[i]))
	}

	return types.SubscriptionResponse{
		UserResponse: types.NewUserResponse(author, true),
		Recipes:      short,
		RecipesCount: count,
	}, nil
}
