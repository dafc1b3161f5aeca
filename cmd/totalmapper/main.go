// Totalmapper: a deterministic chorded key remapping daemon for Linux.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiaohuirong/totalmapper/internal/config"
	"github.com/xiaohuirong/totalmapper/internal/handler"
	"github.com/xiaohuirong/totalmapper/internal/keyboard"
	"github.com/xiaohuirong/totalmapper/internal/layout"
	"github.com/xiaohuirong/totalmapper/internal/tray"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	flagConfig   string
	flagLayout   string
	flagLogLevel string
	flagNoTray   bool
)

func main() {
	root := &cobra.Command{
		Use:     "totalmapper",
		Short:   "Deterministic chorded key remapping daemon",
		Version: fmt.Sprintf("%s (%s) built %s", version, commit, buildDate),
		RunE:    runDaemon,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&flagLayout, "layout", "", "layout name to use")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&flagNoTray, "no-tray", false, "run without system tray")

	root.AddCommand(newLayoutsCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch flagLogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func newLayoutsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "List available layouts in the config directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			names, err := cfg.AvailableLayouts()
			if err != nil {
				return fmt.Errorf("listing layouts: %w", err)
			}
			for _, name := range names {
				marker := "  "
				if name == cfg.Layout {
					marker = "* "
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", marker, name)
			}
			return nil
		},
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagLayout != "" {
		cfg.Layout = flagLayout
	}
	if flagLogLevel == "" {
		flagLogLevel = cfg.LogLevel
	}

	logger := newLogger()

	logger.Info("totalmapper starting", "version", version, "layout", cfg.Layout)

	if err := ensureConfigDir(cfg); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	layoutPath := cfg.LayoutPath(cfg.Layout)
	logger.Debug("loading layout file", "path", layoutPath)
	activeLayout, err := layout.Load(layoutPath)
	if err != nil {
		return fmt.Errorf("loading layout %q at %s: %w", cfg.Layout, layoutPath, err)
	}
	logger.Info("loaded layout", "name", activeLayout.Name, "description", activeLayout.Description, "path", layoutPath)

	vkb, err := keyboard.NewVirtualKeyboard(logger)
	if err != nil {
		logger.Error("make sure you have write access to /dev/uinput")
		return fmt.Errorf("creating virtual keyboard: %w", err)
	}
	defer vkb.Close()

	devManager := keyboard.NewDeviceManager(logger)
	defer devManager.Close()

	keyboards, err := devManager.FindKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboards found")
	}

	for _, kb := range keyboards {
		if err := devManager.GrabDevice(kb); err != nil {
			logger.Error("failed to grab keyboard", "name", kb.Name(), "error", err)
			continue
		}
	}

	events := make(chan *keyboard.KeyEvent, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, kb := range keyboards {
		go func(dev *keyboard.Device) {
			if err := keyboard.ReadEvents(ctx, dev, events); err != nil {
				logger.Error("error reading events", "device", dev.Name(), "error", err)
			}
		}(kb)
	}

	h, err := handler.New(*activeLayout, vkb, logger)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}
	defer func() {
		if err := h.Shutdown(); err != nil {
			logger.Error("error releasing active mappings on shutdown", "error", err)
		}
	}()

	go func() {
		if err := h.ProcessEvents(ctx, events); err != nil && err != context.Canceled {
			logger.Error("error processing events", "error", err)
		}
	}()

	availableLayouts, err := cfg.AvailableLayouts()
	if err != nil {
		logger.Warn("could not list layouts", "error", err)
		availableLayouts = []string{cfg.Layout}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if flagNoTray {
		logger.Info("running without system tray, press Ctrl+C to quit")
		<-sigChan
		logger.Info("shutting down...")
		return nil
	}

	trayCfg := tray.Config{
		CurrentLayout:    cfg.Layout,
		AvailableLayouts: availableLayouts,
		Enabled:          true,
		OnLayoutChange: func(layoutName string) {
			newLayout, err := layout.Load(cfg.LayoutPath(layoutName))
			if err != nil {
				logger.Error("failed to load layout", "layout", layoutName, "error", err)
				return
			}
			if err := h.SetLayout(*newLayout); err != nil {
				logger.Error("failed to swap layout", "layout", layoutName, "error", err)
				return
			}
			cfg.Layout = layoutName
			if err := cfg.Save(); err != nil {
				logger.Warn("failed to persist config", "error", err)
			}
		},
		OnToggle: func(enabled bool) {
			if err := h.SetEnabled(enabled); err != nil {
				logger.Error("failed to toggle enabled state", "error", err)
			}
		},
		OnQuit: func() {
			logger.Info("shutting down...")
			cancel()
		},
		Logger: logger,
	}

	trayIcon := tray.New(trayCfg)

	go func() {
		<-sigChan
		logger.Info("shutting down...")
		trayIcon.Quit()
	}()

	trayIcon.Run()
	logger.Info("totalmapper stopped")
	return nil
}

func ensureConfigDir(cfg *config.Config) error {
	layoutDir := filepath.Join(cfg.ConfigDir, "layouts")
	return os.MkdirAll(layoutDir, 0755)
}
