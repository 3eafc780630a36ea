package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tbourn/campus-market/internal/config"
	"github.com/tbourn/campus-market/internal/repo"
	"github.com/tbourn/campus-market/internal/services"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or upgrade the database schema",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			defer closeStore(db)

			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("schema up to date")
			return nil
		},
	}
}

// pruneCartsCommand deletes carts not read or changed for longer than
// --older-than. Nothing expires carts automatically; operators schedule this.
func pruneCartsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune-carts",
		Usage: "delete carts not read or modified within the given age",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "minimum age since the cart was last read or changed",
				Value: 30 * 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			defer closeStore(db)

			age := c.Duration("older-than")
			n, err := services.NewCartService(db).Prune(c.Context, age)
			if err != nil {
				return err
			}
			log.Info().Int64("carts", n).Dur("older_than", age).Msg("carts pruned")
			return nil
		},
	}
}

func envCommand() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "print the configuration variables and their defaults",
		Action: func(c *cli.Context) error {
			return config.Usage(c.App.Writer)
		},
	}
}
