package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mankai/mankai-server/pkg/auth"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/database"
	"github.com/mankai/mankai-server/pkg/migrations"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	var (
		cfg *config.Config
		db  *bun.DB
	)

	// withMigrator builds the migrator once Before has opened the database.
	withMigrator := func(fn func(c *cli.Context, migrator *migrate.Migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			return fn(c, migrations.NewMigrator(db))
		}
	}

	app := &cli.App{
		Name:  "migrations",
		Usage: "manage the mankai database schema",
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.New()
			if err != nil {
				return err
			}
			db, err = database.New(cfg)
			return err
		},
		After: func(c *cli.Context) error {
			if db == nil {
				return nil
			}
			return errors.WithStack(db.Close())
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(c *cli.Context, migrator *migrate.Migrator) error {
					return errors.WithStack(migrator.Init(c.Context))
				}),
			},
			{
				Name:  "migrate",
				Usage: "apply pending migrations",
				Action: func(c *cli.Context) error {
					group, err := migrations.BringUpToDate(c.Context, db)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("There are no new migrations to run")
						return nil
					}
					fmt.Printf("Migrated to %s\n", group)
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: withMigrator(func(c *cli.Context, migrator *migrate.Migrator) error {
					group, err := migrator.Rollback(c.Context)
					if err != nil {
						return errors.WithStack(err)
					}
					if group.IsZero() {
						fmt.Println("There are no groups to roll back")
						return nil
					}
					fmt.Printf("Rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "create a Go migration",
				ArgsUsage: "<name words...>",
				Action: withMigrator(func(c *cli.Context, migrator *migrate.Migrator) error {
					if c.NArg() == 0 {
						return errors.New("a migration name is required")
					}
					name := strings.Join(c.Args().Slice(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name, migrate.WithGoTemplate(migrationTemplate))
					if err != nil {
						return errors.WithStack(err)
					}
					fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: withMigrator(func(c *cli.Context, migrator *migrate.Migrator) error {
					ms, err := migrator.MigrationsWithStatus(c.Context)
					if err != nil {
						return errors.WithStack(err)
					}
					fmt.Printf("Migrations: %s\n", ms)
					fmt.Printf("Unapplied migrations: %s\n", ms.Unapplied())
					fmt.Printf("Last migration group: %s\n", ms.LastGroup())
					return nil
				}),
			},
			{
				Name:  "ensure-admin",
				Usage: "create the configured admin user, or promote it if it exists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "admin email (defaults to ADMIN_EMAIL)"},
					&cli.StringFlag{Name: "password", Usage: "password for a new admin (defaults to ADMIN_PASSWORD)", EnvVars: []string{"MANKAI_ADMIN_PASSWORD"}},
				},
				Action: func(c *cli.Context) error {
					email := c.String("email")
					if email == "" {
						email = cfg.AdminEmail
					}
					password := c.String("password")
					if password == "" {
						password = cfg.AdminPassword
					}
					if email == "" {
						return errors.New("no admin email given and ADMIN_EMAIL is unset")
					}

					created, err := auth.NewService(db, cfg).EnsureAdmin(log.WithContext(c.Context), email, password)
					if err != nil {
						return err
					}
					if created {
						fmt.Printf("Created admin %s\n", email)
					} else {
						fmt.Printf("%s is an admin\n", email)
					}
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, "")
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, "")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
