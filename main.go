package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"viewport-preview/api"
	"viewport-preview/capture"
	"viewport-preview/config"
	"viewport-preview/events"
	"viewport-preview/export"
	"viewport-preview/preset"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string
	var cfg config.Config

	root := &cobra.Command{
		Use:          "viewport-preview",
		Short:        "Viewport preset and page image backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			cfg = c
			setupLogging(cfg)
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "load environment from these files instead of .env")

	var port string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	var dir string
	exportCmd := &cobra.Command{
		Use:   "export <url>...",
		Short: "Save images to a directory as image-<n>.<ext>",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				cfg.ExportDir = dir
			}
			return exportURLs(cmd.Context(), cmd.OutOrStdout(), cfg, args)
		},
	}
	exportCmd.Flags().StringVar(&dir, "dir", "", "target directory (overrides EXPORT_DIR)")

	root.AddCommand(serveCmd, exportCmd)
	return root
}

func setupLogging(cfg config.Config) {
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})))
}

func newExporter(cfg config.Config, opener export.ContextOpener) *export.Exporter {
	return export.New(
		export.NewHTTPFetcher(cfg.FetchTimeout, cfg.FetchMaxSize),
		export.TempMaterializer{},
		export.DirSink{Dir: cfg.ExportDir},
		opener,
	)
}

func serve(ctx context.Context, cfg config.Config) error {
	builtins, err := preset.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	pm, err := preset.NewManager(preset.NewFileStore(cfg.PresetFile), builtins)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}
	hub := events.NewHub()
	captures := capture.NewManager(cfg.CaptureCmd, cfg.CaptureDir)
	router := api.RegisterRoutes(pm, newExporter(cfg, hub), captures, hub)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("viewport-preview listening", "addr", srv.Addr, "presets", cfg.PresetFile, "captures", captures.Configured())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func exportURLs(ctx context.Context, out io.Writer, cfg config.Config, urls []string) error {
	assets := make([]export.ImageAsset, len(urls))
	for i, u := range urls {
		assets[i] = export.ImageAsset{Src: u}
	}
	results, err := newExporter(cfg, nil).ExportAll(ctx, assets)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", r.Src, r.Err)
			continue
		}
		fmt.Fprintf(out, "ok   %s -> %s\n", r.Src, r.Filename)
	}
	return err
}
