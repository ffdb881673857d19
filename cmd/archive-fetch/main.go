// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the archive-fetch CLI, which lists
// the items of an archive.org collection and downloads each item's PDF.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/archive-fetch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// app carries the state shared by the commands of one CLI invocation.
type app struct {
	v       *viper.Viper
	secrets map[string]string
	out     io.Writer
	errOut  io.Writer
}

// newRootCmd builds the command tree. Nothing is kept in package state, so
// tests can build as many independent trees as they like.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "archive-fetch <collection>",
		Short: "Fetch and save PDFs from an archive.org collection",
		Long: `archive-fetch lists every item in an archive.org collection and downloads
each item's PDF into the output directory as <identifier>.pdf.

The collection listing is cached in <collection>.json the first time it is
fetched and reused on every later run; delete that file to force a re-fetch.
Items whose identifier embeds a date before --min-year, and items whose PDF
is already on disk, are skipped without contacting the server.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(cmd); err != nil {
				return err
			}
			s, err := secrets.Load(a.v.GetString("secrets-dir"), a.errOut)
			if err != nil {
				return err
			}
			a.secrets = s
			if len(s) > 0 {
				keys := make([]string, 0, len(s))
				for k := range s {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintf(a.errOut, "Loaded secrets: %v\n", keys)
			}
			return nil
		},
		RunE: a.runFetch,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./archive-fetch.yaml or ~/.config/archive-fetch/config.yaml)")
	pf.String("secrets-dir", ".secrets", "directory holding ia-access-key and ia-secret-key")
	pf.String("ledger", "", "SQLite file recording the outcome of every item (disabled when empty)")

	addFetchFlags(rootCmd)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newHistoryCmd(a))
	return rootCmd
}

// initConfig binds flags, environment and the optional config file into
// the app's viper instance. Flags win over the environment, which wins
// over the file.
func (a *app) initConfig(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	cfgFile := a.v.GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("archive-fetch")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "archive-fetch"))
		}
	}

	a.v.SetEnvPrefix("ARCHIVE_FETCH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err == nil {
		fmt.Fprintln(a.errOut, "Using config file:", a.v.ConfigFileUsed())
	} else if cfgFile != "" {
		return fmt.Errorf("reading config file %s: %w", cfgFile, err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
