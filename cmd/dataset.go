package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/dataset"
)

var datasetImportFile string

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the known-post dataset",
}

var datasetImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import dataset records from a CSV or YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := dataset.LoadFile(datasetImportFile)
		if err != nil {
			return err
		}

		inserted, err := st.InsertDatasetRecords(ctx, records)
		if err != nil {
			return eris.Wrap(err, "insert records")
		}

		zap.L().Info("dataset import complete",
			zap.Int("parsed", len(records)),
			zap.Int("inserted", inserted),
			zap.String("file", datasetImportFile),
		)
		return nil
	},
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dataset records as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		records, err := st.ListDatasetRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "list records")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	datasetImportCmd.Flags().StringVar(&datasetImportFile, "file", "", "path to CSV or YAML file (required)")
	_ = datasetImportCmd.MarkFlagRequired("file")
	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetListCmd)
	rootCmd.AddCommand(datasetCmd)
}
