package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"libdesk/internal/config"
	"libdesk/internal/http/handlers"
	"libdesk/internal/repos"
	"libdesk/internal/validate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var port, apiBase, logFile string

	load := func() config.Config {
		cfg := config.Load()
		if port != "" {
			cfg.Port = port
		}
		if apiBase != "" {
			cfg.APIBaseURL = strings.TrimRight(apiBase, "/")
		}
		if logFile != "" {
			cfg.LogFile = logFile
		}
		return cfg
	}

	root := &cobra.Command{
		Use:          "libdesk",
		Short:        "Library management front end",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(load())
		},
	}
	root.PersistentFlags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	root.PersistentFlags().StringVar(&apiBase, "api", "", "backend base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (overrides LOG_FILE)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(load())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print dashboard counts from the backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return stats(cmd.Context(), cmd.OutOrStdout(), load())
		},
	})

	var username string
	passwd := &cobra.Command{
		Use:   "passwd",
		Short: "Change a librarian password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return changePassword(cmd.Context(), cmd.OutOrStdout(), load(), username)
		},
	}
	passwd.Flags().StringVarP(&username, "username", "u", "", "librarian username")
	_ = passwd.MarkFlagRequired("username")
	root.AddCommand(passwd)

	return root
}

func serve(cfg config.Config) error {
	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.SessionDSN)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer db.Close()

	sessions := repos.NewSessionRepo(db, cfg.SessionTTL)
	if n, err := sessions.Purge(); err != nil {
		log.Printf("[warn] purge sessions: %v", err)
	} else if n > 0 {
		log.Printf("[sessions] purged %d expired", n)
	}

	deps := handlers.NewDeps(db, cfg, nil)
	app := handlers.NewApp(cfg, deps)
	log.Printf("[static] /static -> %s", cfg.StaticDir)
	log.Printf("[backend] %s", cfg.APIBaseURL)
	return app.Listen(":" + cfg.Port)
}

func stats(ctx context.Context, out io.Writer, cfg config.Config) error {
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	deps := handlers.NewDeps(db, cfg, nil)
	counts, err := deps.OverviewHandler.Stats.Counts(ctx)
	fmt.Fprintf(out, "Books:    %d\n", counts.Books)
	fmt.Fprintf(out, "Members:  %d\n", counts.Members)
	fmt.Fprintf(out, "Borrowed: %d\n", counts.Borrowed)
	fmt.Fprintf(out, "Returned: %d\n", counts.Returned)
	if err != nil {
		return fmt.Errorf("some counts are missing: %w", err)
	}
	return nil
}

// readPassword reads a password from the terminal without echo.
func readPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func changePassword(ctx context.Context, out io.Writer, cfg config.Config, username string) error {
	var in validate.PasswordInput
	var err error
	if in.Old, err = readPassword(out, "Current password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if in.New, err = readPassword(out, "New password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if in.Confirm, err = readPassword(out, "Confirm new password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if errs := validate.ChangePassword(in); !errs.OK() {
		for _, msg := range errs {
			fmt.Fprintln(out, msg)
		}
		return errors.New("invalid input")
	}

	db, err := repos.OpenDB(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	deps := handlers.NewDeps(db, cfg, nil)
	msg, err := deps.Auth.ChangePassword(ctx, username, in)
	if err != nil {
		if m := repos.Message(err); m != "" {
			return errors.New(m)
		}
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}
