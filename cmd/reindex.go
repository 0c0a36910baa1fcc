package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-catalog/internal/catalog"
	"github.com/kozaktomas/face-catalog/internal/config"
	"github.com/kozaktomas/face-catalog/internal/detector"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the embedding index from the database",
	Long: `Load every stored face embedding and rebuild the in-process
embedding index. Useful to verify the stored embeddings after a model
change or a bulk import. Requires DATABASE_URL.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().Bool("quiet", false, "Suppress the progress bar")
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return fmt.Errorf("reindex requires DATABASE_URL")
	}

	ctx := context.Background()
	st, idx, cleanup, _, err := buildBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	det := detector.NewHTTPClient(cfg.Detector.URL, time.Duration(cfg.Detector.TimeoutSeconds)*time.Second)
	cat := catalog.New(st, idx, det, cfg, log)

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if mustGetBool(cmd, "quiet") {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Indexing faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("faces"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	}

	start := time.Now()
	n, err := cat.RebuildIndex(ctx, progress)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	fmt.Printf("Indexed %d faces in %s\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}
