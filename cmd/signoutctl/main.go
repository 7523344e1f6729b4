package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethanesterson-creator/SignOut/internal/app"
	"github.com/ethanesterson-creator/SignOut/internal/config"
	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
)

// cli holds what the subcommands share once PersistentPreRunE has run.
type cli struct {
	storeFlag  string
	dbPathFlag string
	jsonOutput bool

	cfg    config.Config
	stores *app.Stores
	dir    *credential.Directory
	boards service.Boards
	admin  *service.Admin
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "signoutctl",
		Short:         "Maintenance CLI for the camp sign-out ledgers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.stores == nil {
				return nil
			}
			return c.stores.Close()
		},
	}

	root.PersistentFlags().StringVar(&c.storeFlag, "store", "", "store backend (sqlite|postgres|memory); default $SIGNOUT_STORE")
	root.PersistentFlags().StringVar(&c.dbPathFlag, "db-path", "", "sqlite database path; default $SIGNOUT_DB_PATH")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "output as JSON")

	root.AddCommand(c.statusCmd())
	root.AddCommand(c.exportCmd())
	root.AddCommand(c.purgeCmd())
	root.AddCommand(c.rosterCmd())
	return root
}

// open layers the flags over the environment and opens the stores.
func (c *cli) open(cmd *cobra.Command) error {
	vars := environ()
	if c.storeFlag != "" {
		vars["SIGNOUT_STORE"] = c.storeFlag
	}
	if c.dbPathFlag != "" {
		vars["SIGNOUT_DB_PATH"] = c.dbPathFlag
	}
	cfg, err := config.FromMap(vars)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores, err := app.OpenStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	c.cfg, c.stores = cfg, stores
	c.dir = app.Directory(cfg, stores)
	c.boards = app.Boards(cfg, stores, c.dir, service.Options{Logger: logger})
	c.admin = service.NewAdmin(cfg.AdminPassword, c.boards, c.dir, logger)
	return nil
}

func environ() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}
