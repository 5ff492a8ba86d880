package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
)

// UserService handles accounts
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register creates an account; email and username must be unused
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, invalid("email", "a user with this email already exists")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, invalid("username", "a user with this username already exists")
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hashed,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("email", "a user with this email or username already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List returns one page of users ordered by username
func (s *UserService) List(ctx context.Context, page types.PageQuery) ([]models.User, int64, error) {
	page = page.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("username").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// SetPassword replaces the password after checking the current one
func (s *UserService) SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return ErrWrongPassword
	}

	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hashed).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Present converts users to their representation as seen by viewerID
func (s *UserService) Present(ctx context.Context, viewerID *uint, users []models.User) ([]types.UserResponse, error) {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := subscribedAuthors(ctx, s.db, viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]types.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, types.NewUserResponse(&users[i], subscribed[users[i].ID]))
	}
	return out, nil
}

// subscribedAuthors reports which of authorIDs the viewer follows. An
// anonymous viewer follows nobody.
func subscribedAuthors(ctx context.Context, db *gorm.DB, viewerID *uint, authorIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if viewerID == nil || len(authorIDs) == 0 {
		return result, nil
	}

	var followed []uint
	err := db.WithContext(ctx).
		Model(&models.Subscribe{}).
		Where("user_id = ? AND author_id IN ?", *viewerID, authorIDs).
		Pluck("author_id", &followed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	for _, id := range followed {
		result[id] = true
	}
	return result, nil
}
