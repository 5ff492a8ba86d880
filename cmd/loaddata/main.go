// Command loaddata fills the ingredient and tag catalogs from JSON files.
//
//	loaddata ingredients --file data/ingredients.json
//	loaddata tags --file data/tags.json
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "loaddata",
		Short:        "Load catalog fixtures into the database",
		SilenceUsage: true,
	}
	root.AddCommand(
		fixtureCmd("ingredients", "data/ingredients.json", (*service.FixtureLoader).LoadIngredients),
		fixtureCmd("tags", "data/tags.json", (*service.FixtureLoader).LoadTags),
	)
	return root
}

type loadFunc func(*service.FixtureLoader, context.Context, io.Reader) (int, error)

func fixtureCmd(name, defaultFile string, load loadFunc) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Load %s from a JSON array", name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := connect()
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			n, err := load(service.NewFixtureLoader(db), cmd.Context(), f)
			if err != nil {
				return err
			}
			logging.Info().Str("fixture", name).Int("rows", n).Str("file", file).Msg("fixtures loaded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", defaultFile, "path to the JSON file")
	return cmd
}

func connect() (*gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})

	// the schema comes from the server's startup migration or cmd/migrate
	return database.New(cfg)
}
