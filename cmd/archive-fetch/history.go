// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/archive-fetch/internal/ledger"
	"github.com/pdiddy/archive-fetch/pkg/types"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show what previous runs did with each item",
		Long: `History reads the ledger written by runs that were given --ledger and
prints the recorded item outcomes, newest first. The ledger is an audit log
only; deleting it does not change which items are downloaded.`,
		Args: cobra.NoArgs,
		RunE: a.runHistory,
	}
	cmd.Flags().String("collection", "", "only show items of this collection")
	cmd.Flags().String("identifier", "", "only show this item")
	cmd.Flags().String("outcome", "", "only show this outcome: downloaded, skipped-too-old, skipped-exists, failed")
	cmd.Flags().Int("limit", 0, "maximum rows (0 = 50, -1 = all)")
	cmd.Flags().String("format", "table", "output format: table, yaml or json")
	return cmd
}

func (a *app) runHistory(cmd *cobra.Command, args []string) error {
	path := a.v.GetString("ledger")
	if path == "" {
		return fmt.Errorf("no ledger configured: pass --ledger or set ledger in the config file")
	}

	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	outcome := types.Outcome(a.v.GetString("outcome"))
	switch outcome {
	case "", types.OutcomeDownloaded, types.OutcomeSkippedOld, types.OutcomeSkippedExists, types.OutcomeFailed:
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	opts := ledger.QueryOptions{
		Collection: a.v.GetString("collection"),
		Identifier: a.v.GetString("identifier"),
		Outcome:    outcome,
		Limit:      a.v.GetInt("limit"),
	}

	ctx := cmd.Context()
	switch format := a.v.GetString("format"); format {
	case "yaml":
		return store.ExportYAML(ctx, a.out, opts)
	case "json":
		return store.ExportJSON(ctx, a.out, opts)
	case "table", "":
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml or json", format)
	}

	items, err := store.History(ctx, opts)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No items recorded.")
		return nil
	}

	fmt.Fprintf(a.out, "%-20s  %-16s  %-40s  %10s  %s\n", "When", "Outcome", "Identifier", "Bytes", "Error")
	fmt.Fprintln(a.out, strings.Repeat("-", 110))
	for _, item := range items {
		id := item.Identifier
		if len(id) > 40 {
			id = id[:37] + "..."
		}
		fmt.Fprintf(a.out, "%-20s  %-16s  %-40s  %10d  %s\n",
			item.At.Format("2006-01-02 15:04:05"), item.Outcome, id, item.Bytes, item.Error)
	}

	summary, err := store.Summarize(ctx, opts.Collection)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%d rows; totals: %d downloaded, %d too old, %d already existed, %d failed\n",
		len(items), summary[types.OutcomeDownloaded], summary[types.OutcomeSkippedOld],
		summary[types.OutcomeSkippedExists], summary[types.OutcomeFailed])
	return nil
}
