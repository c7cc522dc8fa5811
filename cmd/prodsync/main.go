// Command prodsync runs catalog imports and exports from the shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/prodsync/internal/application"
	"github.com/JonMunkholm/prodsync/internal/config"
	"github.com/JonMunkholm/prodsync/internal/core"
	"github.com/JonMunkholm/prodsync/internal/logging"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitRowErrors = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// backend is what the commands need from the catalog.
type backend struct {
	service *core.Service
	migrate func(ctx context.Context) error
	close   func()
}

// cli carries the streams and the backend factory so tests can swap both.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	connect func(ctx context.Context) (*backend, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{stdout: os.Stdout, stderr: os.Stderr, connect: connectDatabase}
	code := c.execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command line and maps the outcome to an exit code.
func (c *cli) execute(ctx context.Context, args []string) int {
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code != exitRowErrors {
			fmt.Fprintln(c.stderr, "error:", core.FormatUserError(ee.err))
		}
		return ee.code
	}
	fmt.Fprintln(c.stderr, "error:", err)
	return exitUsage
}

// connectDatabase loads the environment configuration and opens the
// PostgreSQL backed service. Logs go to stderr so exports on stdout stay
// clean.
func connectDatabase(ctx context.Context) (*backend, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	app, err := application.New(ctx, cfg)
	if err != nil {
		return nil, withCode(exitFailure, err)
	}
	return &backend{service: app.Service, migrate: app.Migrate, close: app.Close}, nil
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prodsync",
		Short:         "Reconcile product catalog spreadsheets with the store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		c.importCmd(),
		c.exportCmd(),
		c.migrateCmd(),
		c.statsCmd(),
		c.codesCmd(),
	)
	return root
}
