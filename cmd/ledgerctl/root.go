// Command ledgerctl administers the access registry and inspects ledgers
// and the audit log from a terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/brandonwu32/financedashboard/internal/backend"
	"github.com/brandonwu32/financedashboard/internal/cli"
	"github.com/brandonwu32/financedashboard/internal/config"
	"github.com/brandonwu32/financedashboard/internal/log"
)

// app holds what every subcommand shares. The fields are filled in by the
// root command's PersistentPreRunE.
type app struct {
	settingsPath string
	adminFlag    string
	assumeYes    bool

	cfg      *config.Config
	settings Settings
	logger   *log.Logger
	now      func() time.Time
	confirm  func(title string) (bool, error)
}

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Finance dashboard administration",
		Long:         "Approve access requests, check ledgers and read the audit log.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.settingsPath, "config", SettingsPath(), "Settings file")
	root.PersistentFlags().StringVar(&a.adminFlag, "admin", "", "Acting admin email (default from settings or LEDGERCTL_ADMIN)")
	root.PersistentFlags().BoolVarP(&a.assumeYes, "yes", "y", false, "Skip confirmation prompts")

	root.AddCommand(
		newPendingCmd(a),
		newApproveCmd(a),
		newRejectCmd(a),
		newStatusCmd(a),
		newVerifyCmd(a),
		newBootstrapCmd(a),
		newPeriodsCmd(a),
		newAuditCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	s, err := LoadSettings(a.settingsPath)
	if err != nil {
		return err
	}
	a.settings = s

	cfg := config.Load()
	s.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		level := slog.LevelWarn
		if l, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
			level = l
		}
		a.logger = log.New(log.Config{
			Level:     level,
			Component: "ledgerctl",
			Handler:   log.NewHandler(stderr, os.Getenv("LOG_FORMAT"), level),
		})
		log.SetDefault(a.logger)
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.confirm == nil {
		a.confirm = promptConfirm
	}
	return nil
}

// open builds the backend without document parsing.
func (a *app) open(ctx context.Context) (*backend.Backend, error) {
	return backend.Open(ctx, a.cfg, backend.Options{
		Logger:     a.logger,
		Now:        a.now,
		SkipParser: true,
	})
}

func (a *app) admin() (string, error) {
	if a.adminFlag != "" {
		return a.adminFlag, nil
	}
	if v := a.settings.AdminEmail(); v != "" {
		return v, nil
	}
	return "", errors.New("no admin given: pass --admin, set LEDGERCTL_ADMIN or admin in " + a.settingsPath)
}

// confirmed asks before a registry change unless --yes was given.
func (a *app) confirmed(title string) (bool, error) {
	if a.assumeYes {
		return true, nil
	}
	return a.confirm(title)
}

func promptConfirm(title string) (bool, error) {
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return ok, nil
}
