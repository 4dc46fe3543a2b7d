package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/internal/store"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored search snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		target, _ := cmd.Flags().GetString("target")
		limit, _ := cmd.Flags().GetInt("limit")

		snaps, err := st.ListSnapshots(ctx, store.SnapshotFilter{Target: target, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "snapshots list")
		}

		if len(snaps) == 0 {
			fmt.Fprintln(os.Stderr, "No snapshots found.")
			return nil
		}

		formatSnapshotsList(cmd.OutOrStdout(), snaps)
		return nil
	},
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Show a stored snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.GetSnapshot(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "snapshots show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	snapshotsCmd.Flags().String("target", "", "only snapshots for this target")
	snapshotsCmd.Flags().Int("limit", 50, "max number of snapshots to display")

	snapshotsCmd.AddCommand(snapshotsShowCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

// formatSnapshotsList writes a tabular list of snapshots to w.
func formatSnapshotsList(out io.Writer, snaps []model.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tQUERY\tTARGET\tMODE\tVISIBILITY\tAVG_POS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t----\t----------\t-------\t-------")

	for _, s := range snaps {
		visibility, avg := "-", "-"
		if s.Analysis != nil {
			visibility = fmt.Sprintf("%.0f%%", s.Analysis.VisibilityScore*100)
			if s.Analysis.AveragePosition != nil {
				avg = fmt.Sprintf("%.1f", *s.Analysis.AveragePosition)
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(s.ID),
			truncateText(s.Query, 40),
			truncateText(s.Target, 24),
			s.Mode,
			visibility,
			avg,
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
