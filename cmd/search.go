package main

import (
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/internal/pipeline"
)

var (
	searchQuery    string
	searchTarget   string
	searchMode     string
	searchLocation string
	searchSave     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one query against every configured provider",
	Example: `  geosight search --query "best running shoes" --target "Nike Pegasus"
  geosight search --query "hotels in Lisbon" --mode select_location --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initSearch(ctx, "search", searchSave)
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Fetcher.Search(ctx, pipeline.Query{
			Text:     searchQuery,
			Target:   searchTarget,
			Mode:     model.Mode(searchMode),
			Location: searchLocation,
		})
		if err != nil {
			return eris.Wrap(err, "search")
		}

		if env.Store != nil {
			if err := env.Store.SaveSnapshot(ctx, snap); err != nil {
				return eris.Wrap(err, "save snapshot")
			}
			zap.L().Info("snapshot saved", zap.String("id", snap.ID))
		}

		return writeSearchOutput(cmd.OutOrStdout(), snap)
	},
}

// searchOutput is the JSON document the search command prints.
type searchOutput struct {
	SnapshotID     string                `json:"snapshotId,omitempty"`
	Result         *model.FetchResult    `json:"result"`
	TargetAnalysis *model.TargetAnalysis `json:"targetAnalysis,omitempty"`
}

func writeSearchOutput(w io.Writer, snap *model.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(searchOutput{
		SnapshotID:     snap.ID,
		Result:         snap.Result,
		TargetAnalysis: snap.Analysis,
	})
}

func init() {
	searchCmd.Flags().StringVar(&searchQuery, "query", "", "search query sent to every provider")
	searchCmd.Flags().StringVar(&searchTarget, "target", "", "brand or product to measure visibility for")
	searchCmd.Flags().StringVar(&searchMode, "mode", string(model.ModeResults), "results, results_10 or select_location")
	searchCmd.Flags().StringVar(&searchLocation, "location", "", "location for select_location (default parsed from the query)")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "persist the result as a snapshot")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}
