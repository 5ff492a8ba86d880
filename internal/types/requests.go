package types

// LoginRequest represents the request body for obtaining a token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
}

// SetPasswordRequest represents the request body for changing the password
type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// IngredientAmount is one ingredient line of a recipe write request
type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeWriteRequest is the body of recipe create and update requests.
// Image is a base64 data URI; it may be omitted on update to keep the current image.
type RecipeWriteRequest struct {
	Ingredients []IngredientAmount `json:"ingredients"`
	Tags        []uint             `json:"tags"`
	Image       *string            `json:"image"`
	Name        string             `json:"name"`
	Text        string             `json:"text"`
	CookingTime int                `json:"cooking_time"`
}

// RecipeFilter narrows the recipe list
type RecipeFilter struct {
	Tags             []string
	AuthorID         *uint
	IsFavorited      bool
	IsInShoppingCart bool
}

// PageQuery selects a page of a list endpoint
type PageQuery struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 6
	MaxPageLimit     = 100
)

// Normalize clamps page and limit into their valid ranges
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

// Offset returns the number of rows to skip
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
