package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pageza/foodgram/backend/internal/types"
	"gorm.io/gorm"
)

const shoppingListHeader = "Shopping list:\n\n"

// ShoppingListService builds the aggregated shopping list of a user's cart
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Items sums the ingredient amounts of every recipe in the user's cart,
// grouped by ingredient name and measurement unit
func (s *ShoppingListService) Items(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	items := []types.ShoppingListItem{}
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS amount").
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_carts sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name, i.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// RenderShoppingList formats items as the plain text download
func RenderShoppingList(items []types.ShoppingListItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s, %d %s", item.Name, item.Amount, item.MeasurementUnit))
	}
	return shoppingListHeader + strings.Join(lines, "\n")
}

// ShoppingListFilename names the download after the given day
func ShoppingListFilename(t time.Time) string {
	return t.Format("2006-01-02") + "_shopping_list.txt"
}
