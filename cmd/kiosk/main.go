// Package main provides the kiosk CLI: one headless booth cycle against the
// photo backend, and a listing of stored photos.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiagofoks/photo-app-challenge/internal/capture"
	"github.com/tiagofoks/photo-app-challenge/internal/kiosk"
	"github.com/tiagofoks/photo-app-challenge/internal/platform/config"
	"github.com/tiagofoks/photo-app-challenge/internal/platform/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "kiosk",
		Short: "Photo booth kiosk client",
		Long: `Photo booth kiosk client.

Examples:
  kiosk run --frame visitor.jpg --qr-out qr.png   # One capture cycle from a still image
  kiosk photos                                    # List uploaded photos, newest first
  kiosk --config booth.yaml run --frame f.png     # Custom kiosk configuration
`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.KioskConfigFile, "Kiosk YAML configuration file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	load := func() (*config.Kiosk, *slog.Logger, error) {
		cfg, err := config.LoadKioskConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		return cfg, logger.NewWithWriter(os.Stderr, logLevel, "text"), nil
	}

	cmd.AddCommand(runCmd(load))
	cmd.AddCommand(photosCmd(load))

	return cmd
}

type loadFunc func() (*config.Kiosk, *slog.Logger, error)

func runCmd(load loadFunc) *cobra.Command {
	var (
		framePath string
		qrOut     string
		noWait    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one booth cycle: capture, upload, show QR code",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := kiosk.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
			booth := kiosk.NewBooth(cfg, capture.StillDevice{Path: framePath}, client, log)

			cycle, final, err := booth.RunCycle(ctx)
			if err != nil {
				var uerr *kiosk.UploadError
				if errors.As(err, &uerr) {
					return errors.New(uerr.Message)
				}
				return err
			}
			defer final.Close()

			if qrOut != "" {
				if err := os.WriteFile(qrOut, cycle.QR.PNG, 0o644); err != nil {
					return fmt.Errorf("write qr code: %w", err)
				}
				log.Info("qr code written", slog.String("path", qrOut))
			}
			fmt.Fprintln(cmd.OutOrStdout(), cycle.QR.URL)

			if noWait {
				return nil
			}
			log.Info("showing final screen", slog.Duration("dwell", cfg.Display.Dwell))
			waitCtx, cancel := context.WithTimeout(ctx, cfg.Display.Dwell+time.Second)
			defer cancel()
			return booth.WaitForStart(waitCtx)
		},
	}

	cmd.Flags().StringVar(&framePath, "frame", "", "Still image used as the camera frame (PNG or JPEG)")
	cmd.Flags().StringVar(&qrOut, "qr-out", "", "Write the final QR code PNG to this path")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Exit right after the QR code is rendered")
	_ = cmd.MarkFlagRequired("frame")

	return cmd
}

func photosCmd(load loadFunc) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "photos",
		Short: "List uploaded photos, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}

			client := kiosk.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
			photos, err := client.ListPhotos(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(photos)
			}
			for _, p := range photos {
				fmt.Fprintf(out, "%s\t%s\n", p.ID, p.ImageURL())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output records as JSON")
	return cmd
}
