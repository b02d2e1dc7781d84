package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/fetcher"
	"github.com/memetrace/attribution/internal/model"
)

var (
	analyzeFile string
	analyzeURL  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the attribution pipeline on one image",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (analyzeFile == "") == (analyzeURL == "") {
			return eris.New("exactly one of --file or --url is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var payload model.MediaPayload
		if analyzeFile != "" {
			payload, err = fetcher.EncodeFile(analyzeFile)
		} else {
			payload, err = env.Fetcher.FetchMedia(ctx, analyzeURL)
		}
		if err != nil {
			return eris.Wrap(err, "load media")
		}

		result, err := env.Pipeline.Run(ctx, payload)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analysis complete",
			zap.String("run_id", result.RunID),
			zap.String("creator", result.FinalMatch.Creator),
			zap.Float64("similarity_score", result.FinalMatch.SimilarityScore),
			zap.Float64("match_percentage", result.MatchResult.Percentage),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to local image file")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "URL of remote image")
	rootCmd.AddCommand(analyzeCmd)
}
