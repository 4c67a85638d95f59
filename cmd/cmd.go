package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devconnect/realtime-service/config"
	"github.com/devconnect/realtime-service/internal/auth"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/store"
)

const ServiceName = "realtime-service"

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Real-time event delivery service for DevConnect",
		Commands: []*cli.Command{
			serverCmd(),
			addUserCmd(),
			tokenCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the delivery server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case <-stop:
			case <-app.Done():
			}

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}

// addUserCmd seeds a principal directly into the store. Account management
// proper lives in the main DevConnect backend; this exists for local setups
// and integration environments.
func addUserCmd() *cli.Command {
	return &cli.Command{
		Name:  "adduser",
		Usage: "Create a principal in the configured store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config_file", Usage: "Path to the configuration file"},
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "role", Value: "user", Usage: "user or admin"},
			&cli.StringFlag{Name: "avatar", Usage: "Avatar URL"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}
			s, err := store.OpenSQLite(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			p := &model.Principal{
				Username: c.String("username"),
				Role:     model.ParseRole(c.String("role")),
				Avatar:   c.String("avatar"),
			}
			if err := s.CreatePrincipal(c.Context, p); err != nil {
				return err
			}

			fmt.Printf("created principal id=%d username=%s\n", p.ID, p.Username)
			return nil
		},
	}
}

// tokenCmd mints a bearer token for a principal, for curl and wscat runs.
func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a bearer token for an existing principal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config_file", Usage: "Path to the configuration file"},
			&cli.Int64Flag{Name: "id", Required: true, Usage: "Principal id"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}

			token, err := auth.Mint(cfg.Auth.Secret, c.Int64("id"), c.Duration("ttl"))
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}
}
