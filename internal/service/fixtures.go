package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const fixtureBatchSize = 500

// IngredientFixture is one entry of an ingredients JSON file
type IngredientFixture struct {
	Name            string `json:"name" binding:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" binding:"required,max=200"`
}

// TagFixture is one entry of a tags JSON file; Slug is derived from Name when empty
type TagFixture struct {
	Name  string `json:"name" binding:"required,max=200"`
	Color string `json:"color" binding:"required,hexcolor"`
	Slug  string `json:"slug" binding:"omitempty,max=200,slug"`
}

// FixtureLoader fills the tag and ingredient catalogs from JSON files
type FixtureLoader struct {
	db *gorm.DB
}

func NewFixtureLoader(db *gorm.DB) *FixtureLoader {
	return &FixtureLoader{db: db}
}

// LoadIngredients inserts every ingredient of r, skipping pairs that already
// exist. It returns the number of rows read.
func (l *FixtureLoader) LoadIngredients(ctx context.Context, r io.Reader) (int, error) {
	var fixtures []IngredientFixture
	if err := json.NewDecoder(r).Decode(&fixtures); err != nil {
		return 0, fmt.Errorf("failed to decode ingredients: %w", err)
	}

	rows := make([]models.Ingredient, 0, len(fixtures))
	for i := range fixtures {
		f := fixtures[i]
		f.Name = strings.TrimSpace(f.Name)
		f.MeasurementUnit = strings.TrimSpace(f.MeasurementUnit)
		if err := validation.Struct(&f); err != nil {
			return 0, fmt.Errorf("ingredient %d: %w", i, err)
		}
		rows = append(rows, models.Ingredient{Name: f.Name, MeasurementUnit: f.MeasurementUnit})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, fixtureBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to insert ingredients: %w", err)
	}

	logging.Info().Int("count", len(rows)).Msg("ingredients loaded")
	return len(rows), nil
}

// LoadTags creates every tag of r that does not exist yet, matching by slug.
// It returns the number of tags read.
func (l *FixtureLoader) LoadTags(ctx context.Context, r io.Reader) (int, error) {
	var fixtures []TagFixture
	if err := json.NewDecoder(r).Decode(&fixtures); err != nil {
		return 0, fmt.Errorf("failed to decode tags: %w", err)
	}

	tags := make([]models.Tag, 0, len(fixtures))
	for i := range fixtures {
		f := fixtures[i]
		if f.Slug == "" {
			f.Slug = slug.Make(f.Name)
		}
		if err := validation.Struct(&f); err != nil {
			return 0, fmt.Errorf("tag %d: %w", i, err)
		}
		tags = append(tags, models.Tag{Name: f.Name, Color: strings.ToUpper(f.Color), Slug: f.Slug})
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tags {
			tag := tags[i]
			if err := tx.Where(models.Tag{Slug: tag.Slug}).Attrs(tag).FirstOrCreate(&tag).Error; err != nil {
				return fmt.Errorf("failed to load tag %q: %w", tag.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.Info().Int("count", len(tags)).Msg("tags loaded")
	return len(tags), nil
}
