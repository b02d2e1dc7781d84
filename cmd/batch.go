package main

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memetrace/attribution/internal/fetcher"
)

var (
	batchDir         string
	batchConcurrency int
	batchKeepGoing   bool
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the attribution pipeline on every image in a directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := os.ReadDir(batchDir)
		if err != nil {
			return eris.Wrapf(err, "read directory %s", batchDir)
		}

		var paths []string
		for _, entry := range entries {
			if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			paths = append(paths, filepath.Join(batchDir, entry.Name()))
		}
		if len(paths) == 0 {
			return eris.Errorf("no image files in %s", batchDir)
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentFiles
		}

		var completed, failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, path := range paths {
			g.Go(func() error {
				payload, err := fetcher.EncodeFile(path)
				if err == nil {
					_, err = env.Pipeline.Run(gctx, payload)
				}
				if err != nil {
					failed.Add(1)
					zap.L().Error("batch file failed", zap.String("file", path), zap.Error(err))
					if batchKeepGoing {
						return nil
					}
					return err
				}
				completed.Add(1)
				return nil
			})
		}

		err = g.Wait()
		zap.L().Info("batch complete",
			zap.Int("files", len(paths)),
			zap.Int64("completed", completed.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory of image files (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent files (default from config)")
	batchCmd.Flags().BoolVar(&batchKeepGoing, "keep-going", false, "continue after per-file failures")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}
