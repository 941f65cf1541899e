// Command civicctl runs one-off maintenance tasks against the CivicPulse
// database: seeding categories, promoting staff, resetting passwords,
// building indexes and running the SLA sweep by hand.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"civicpulse-be/config"
	"civicpulse-be/notify"
	"civicpulse-be/repository"
	"civicpulse-be/services"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "civicctl",
		Usage: "CivicPulse maintenance commands",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mongodb-uri", Sources: cli.EnvVars("MONGODB_URI"), Usage: "MongoDB connection string"},
			&cli.StringFlag{Name: "database", Value: "civicpulse", Sources: cli.EnvVars("MONGODB_DATABASE"), Usage: "database name"},
		},
		Commands: []*cli.Command{
			seedCategoriesCommand(),
			setRoleCommand(),
			setPasswordCommand(),
			ensureIndexesCommand(),
			escalateCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func seedCategoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed-categories",
		Usage: "Insert or refresh the default complaint categories",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withDB(ctx, c, func(ctx context.Context, db *mongo.Database) error {
				return seedCategories(ctx, repository.NewStores(db).Categories, os.Stdout)
			})
		},
	}
}

func setRoleCommand() *cli.Command {
	return &cli.Command{
		Name:  "make-admin",
		Usage: "Give an existing account a staff role",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "role", Value: "admin", Usage: "admin, worker or citizen"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withDB(ctx, c, func(ctx context.Context, db *mongo.Database) error {
				if err := setRole(ctx, repository.NewStores(db).Users, c.String("email"), c.String("role")); err != nil {
					return err
				}
				fmt.Printf("%s is now %s\n", c.String("email"), c.String("role"))
				return nil
			})
		},
	}
}

func setPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:  "set-password",
		Usage: "Reset an account's password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withDB(ctx, c, func(ctx context.Context, db *mongo.Database) error {
				if err := setPassword(ctx, repository.NewStores(db).Users, c.String("email"), c.String("password"), time.Now()); err != nil {
					return err
				}
				fmt.Println("password updated")
				return nil
			})
		},
	}
}

func ensureIndexesCommand() *cli.Command {
	return &cli.Command{
		Name:  "ensure-indexes",
		Usage: "Create the collection indexes",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withDB(ctx, c, func(ctx context.Context, db *mongo.Database) error {
				if err := repository.EnsureIndexes(ctx, db); err != nil {
					return err
				}
				fmt.Println("indexes are in place")
				return nil
			})
		},
	}
}

func escalateCommand() *cli.Command {
	return &cli.Command{
		Name:  "escalate-overdue",
		Usage: "Flag open complaints whose SLA deadline has passed",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withDB(ctx, c, func(ctx context.Context, db *mongo.Database) error {
				tasks := services.NewDispatcher(1, 16, 30*time.Second)
				defer tasks.Close()

				svc := services.NewComplaintService(repository.NewStores(db), notify.LogNotifier{}, tasks)
				n, err := svc.EscalateOverdue(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("escalated %d complaint(s)\n", n)
				return nil
			})
		},
	}
}

// withDB connects using the root flags and disconnects once fn returns.
func withDB(ctx context.Context, c *cli.Command, fn func(context.Context, *mongo.Database) error) error {
	cfg := &config.Config{MongoURI: c.String("mongodb-uri"), MongoDatabase: c.String("database")}
	if cfg.MongoURI == "" {
		return fmt.Errorf("please define the MONGODB_URI environment variable or pass --mongodb-uri")
	}
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.DisconnectDB(context.Background()); err != nil {
			log.Printf("disconnect: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return fn(ctx, db)
}
