package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/PJ1229/OOTD/internal/config"
	"github.com/PJ1229/OOTD/internal/logging"
	"github.com/PJ1229/OOTD/internal/media"
	"github.com/PJ1229/OOTD/internal/supabase"
)

func newTryOnCmd() *cobra.Command {
	var model, garment string

	cmd := &cobra.Command{
		Use:   "tryon",
		Short: "Run one try-on job and print the result URL",
		Long: `Submits a model photo and a garment image to the synthesis API and waits
for the job to finish. Each image may be a local file or an http(s) URL.`,
		Example: `  ootd tryon --model ./me.jpg --garment https://example.com/stussy-sweater.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.Environment)
			ctx := cmd.Context()

			modelImg, err := loadImage(ctx, model, logger)
			if err != nil {
				return fmt.Errorf("model image: %w", err)
			}
			garmentImg, err := loadImage(ctx, garment, logger)
			if err != nil {
				return fmt.Errorf("garment image: %w", err)
			}

			sb, err := supabase.NewClient(cfg)
			if err != nil {
				return err
			}
			service, err := newTryOnService(ctx, cfg, logger, sb, nil)
			if err != nil {
				return err
			}

			job, archiveURL, err := service.Run(ctx, modelImg, garmentImg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.ResultURL)
			if archiveURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "archived: %s\n", archiveURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model photo (file path or URL)")
	cmd.Flags().StringVar(&garment, "garment", "", "Garment image (file path or URL)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("garment")

	return cmd
}

// loadImage fetches URLs and pushes local files through the capture path so
// they are re-encoded at native resolution like a camera snapshot.
func loadImage(ctx context.Context, src string, logger zerolog.Logger) (media.Image, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return media.Fetch(ctx, &http.Client{Timeout: 30 * time.Second}, src)
	}

	capture := media.NewCapture(media.FileCamera{Path: src}, logger)
	if err := capture.Start(ctx); err != nil {
		return media.Image{}, err
	}
	defer capture.Stop()
	return capture.Snapshot()
}
