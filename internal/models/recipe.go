package models

import (
	"time"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 32767
	MinAmount      = 1
	MaxAmount      = 32767
)

// Recipe is ordered newest first by PubDate
type Recipe struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	AuthorID        uint                 `gorm:"not null;index" json:"author_id"`
	Author          User                 `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Name            string               `gorm:"size:200;not null" json:"name"`
	Image           string               `gorm:"size:255" json:"image"`
	Text            string               `gorm:"type:text;not null" json:"text"`
	CookingTime     int                  `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1 AND cooking_time <= 32767" json:"cooking_time"`
	PubDate         time.Time            `gorm:"autoCreateTime;index" json:"pub_date"`
	Tags            []Tag                `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	IngredientLines []IngredientInRecipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
}

// IngredientInRecipe is one ingredient line of a recipe. An ingredient
// appears at most once per recipe.
type IngredientInRecipe struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"ingredient"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1 AND amount <= 32767" json:"amount"`
}

func (IngredientInRecipe) TableName() string {
	return "recipe_ingredients"
}
