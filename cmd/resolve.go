package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethoscan/evidence-resolver/internal/resolver"
)

func newResolveCmd() *cobra.Command {
	var (
		mode     string
		limit    int
		eventID  string
		sourceID string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Runs one resolution batch and prints the run summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			parsedMode, err := resolver.ParseMode(mode)
			if err != nil {
				return err
			}

			summary, err := appInstance.Orchestrator.Resolve(cmd.Context(), resolver.BatchRequest{
				Mode:       parsedMode,
				Limit:      limit,
				EventID:    eventID,
				CitationID: sourceID,
			})
			if err != nil {
				return fmt.Errorf("run resolution batch: %w", err)
			}

			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return fmt.Errorf("encode summary: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "resolution mode (agency-only, agency-first, full)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max citations to process (0 uses the configured default)")
	cmd.Flags().StringVar(&eventID, "event-id", "", "restrict the batch to one event")
	cmd.Flags().StringVar(&sourceID, "source-id", "", "restrict the batch to one citation")

	return cmd
}
