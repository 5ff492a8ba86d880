package service

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// IUserService defines the interface for account operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context, page types.PageQuery) ([]models.User, int64, error)
	SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error
	Present(ctx context.Context, viewerID *uint, users []models.User) ([]types.UserResponse, error)
}

// ISubscriptionService defines the interface for following authors
type ISubscriptionService interface {
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	List(ctx context.Context, userID uint, page types.PageQuery, recipesLimit int) ([]types.SubscriptionResponse, int64, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	Create(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*models.Recipe, error)
	Update(ctx context.Context, actorID, recipeID uint, req *types.RecipeWriteRequest) (*models.Recipe, error)
	Delete(ctx context.Context, actorID, recipeID uint) error
	Get(ctx context.Context, id uint) (*models.Recipe, error)
	List(ctx context.Context, filter types.RecipeFilter, viewerID *uint, page types.PageQuery) ([]models.Recipe, int64, error)
	Present(ctx context.Context, viewerID *uint, recipes []models.Recipe) ([]types.RecipeResponse, error)
}

// IRelationService defines the interface for favorites and the shopping cart
type IRelationService interface {
	AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToShoppingCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFromShoppingCart(ctx context.Context, userID, recipeID uint) error
}

// IShoppingListService aggregates the ingredients of a user's cart
type IShoppingListService interface {
	Items(ctx context.Context, userID uint) ([]types.ShoppingListItem, error)
}

type ITagService interface {
	List(ctx context.Context) ([]models.Tag, error)
	Get(ctx context.Context, id uint) (*models.Tag, error)
}

type IIngredientService interface {
	Search(ctx context.Context, namePrefix string) ([]models.Ingredient, error)
	Get(ctx context.Context, id uint) (*models.Ingredient, error)
}
