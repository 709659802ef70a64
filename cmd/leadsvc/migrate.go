package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-leads-backend/internal/services"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			closeDB(db)
			log.Info().Msg("schema up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the service and city catalog from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}
			svcs, cities, err := services.ParseCatalog(data)
			if err != nil {
				return err
			}
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := services.SeedCatalog(ctx, db, svcs, cities); err != nil {
				return err
			}
			log.Info().Int("services", len(svcs)).Int("cities", len(cities)).Msg("catalog seeded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "catalog YAML file")
	return cmd
}
